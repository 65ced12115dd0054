package reconcile

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation targets an item id that is not
// present in the local mirror.
var ErrNotFound = errors.New("synced item not found")

// NetworkError wraps a shared-store failure so callers can distinguish
// transport problems from logical ones.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("sync %s failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
