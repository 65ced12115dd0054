package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"habitsync/internal/model"
	"habitsync/internal/reconcile"
	"habitsync/pkg/mq"
	"habitsync/pkg/util"
)

const (
	handlerName = "sync-changed"
	maxRetries  = 5
)

// Subscriber consumes broadcast change events and fans them out to active
// reconcilers. Duplicate deliveries are dropped via the redis deduper;
// events that keep failing to decode are counted and dropped instead of
// poisoning the queue.
type Subscriber struct {
	consumer     *mq.Consumer
	manager      *reconcile.Manager
	deduper      *util.Deduper
	retryCounter *util.RetryCounter
	logger       *zap.Logger
}

func NewSubscriber(
	consumer *mq.Consumer,
	manager *reconcile.Manager,
	deduper *util.Deduper,
	retryCounter *util.RetryCounter,
	logger *zap.Logger,
) *Subscriber {
	s := &Subscriber{
		consumer:     consumer,
		manager:      manager,
		deduper:      deduper,
		retryCounter: retryCounter,
		logger:       logger,
	}
	consumer.SetHandler(s.handle)
	return s
}

// Start blocks consuming messages; run it in a goroutine.
func (s *Subscriber) Start() error {
	return s.consumer.StartConsuming()
}

func (s *Subscriber) Stop() {
	s.consumer.Stop()
}

func (s *Subscriber) handle(ctx context.Context, data json.RawMessage) error {
	var ev model.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// Malformed payloads never decode on redelivery; drop them.
		s.logger.Error("Dropping undecodable change event", zap.Error(err))
		return nil
	}
	if ev.ID == "" || ev.UserID == "" {
		s.logger.Warn("Dropping change event without id or user",
			zap.String("event_id", ev.ID),
		)
		return nil
	}

	if !s.deduper.AcquireOnce(ctx, handlerName, ev.ID) {
		return nil
	}

	if err := s.dispatch(ev); err != nil {
		return s.escalate(ctx, ev.ID, err)
	}

	if err := s.retryCounter.Reset(ctx, util.FormatRetryKey(handlerName, ev.ID)); err != nil {
		s.logger.Debug("Failed to reset retry counter", zap.Error(err))
	}
	return nil
}

// dispatch converts a fan-out panic into an error so the retry budget
// applies instead of the consumer requeueing forever.
func (s *Subscriber) dispatch(ev model.ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()
	s.manager.Dispatch(ev)
	return nil
}

// escalate counts failures per event and drops the message once the retry
// budget is spent, so a poison message cannot requeue forever.
func (s *Subscriber) escalate(ctx context.Context, eventID string, cause error) error {
	key := util.FormatRetryKey(handlerName, eventID)
	count, err := s.retryCounter.IncrementAndGet(ctx, key)
	if err != nil {
		s.logger.Warn("Retry counter unavailable, requeueing", zap.Error(err))
		return cause
	}
	if count >= maxRetries {
		s.logger.Error("Dropping poison change event",
			zap.String("event_id", eventID),
			zap.Int64("attempts", count),
			zap.Error(cause),
		)
		return nil
	}
	return fmt.Errorf("attempt %d: %w", count, cause)
}
