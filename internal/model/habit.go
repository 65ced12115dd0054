package model

// DateLayout is the calendar-date key format used across all collections.
// Dates are calendar dates in the viewer's zone; no conversion happens here.
const DateLayout = "2006-01-02"

type Category string

const (
	CategoryHealth       Category = "health"
	CategoryProductivity Category = "productivity"
	CategoryLearning     Category = "learning"
	CategorySocial       Category = "social"
	CategoryOther        Category = "other"
)

// Habit is a recurring action tracked per calendar day against a weekly
// schedule. RecurringDays holds weekday indices (0=Sunday..6=Saturday); a
// habit with an empty schedule is never scheduled and never counts.
type Habit struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Category        Category        `json:"category"`
	RecurringDays   []int           `json:"recurring_days"`
	Completed       map[string]bool `json:"completed"`
	Paused          bool            `json:"paused"`
	ReminderTime    string          `json:"reminder_time,omitempty"`
	ReminderEnabled bool            `json:"reminder_enabled,omitempty"`
}

// Normalize fills fields that older stored payloads may lack: category
// defaults to "other", a missing schedule defaults to every day, and the
// completion map is made non-nil.
func (h *Habit) Normalize() {
	if h.Category == "" {
		h.Category = CategoryOther
	}
	if h.RecurringDays == nil {
		h.RecurringDays = []int{0, 1, 2, 3, 4, 5, 6}
	}
	if h.Completed == nil {
		h.Completed = make(map[string]bool)
	}
}
