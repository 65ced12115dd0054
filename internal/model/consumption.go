package model

// ConsumptionRecord tracks per-day substance counts. At most one record
// exists per calendar date; writers upsert by date, never append duplicates.
type ConsumptionRecord struct {
	Date       string `json:"date"`
	Cigarettes int    `json:"cigarettes"`
	Joints     int    `json:"joints"`
}

// Note is a per-date free-form note, upserted by date like consumption.
type Note struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

type StreakType string

const (
	StreakCigarettes StreakType = "cigarettes"
	StreakJoints     StreakType = "joints"
)

// ConsumptionStreak is the persisted days-clean counter shown on public
// profiles.
type ConsumptionStreak struct {
	UserID        string     `json:"user_id"`
	StreakType    StreakType `json:"streak_type"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
}
