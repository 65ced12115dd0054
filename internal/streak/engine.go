// Package streak derives display statistics from the habit and consumption
// collections. Every function is pure: inputs are never mutated and no
// errors are returned. Malformed habits (empty schedule, stray completion
// entries on unscheduled days) degrade to "never scheduled" instead of
// failing.
package streak

import (
	"math"
	"time"

	"habitsync/internal/model"
)

// DefaultLookbackDays bounds every backward day-walk. Callers needing longer
// history must page.
const DefaultLookbackDays = 365

// IsScheduled reports whether the habit is scheduled on date's weekday.
func IsScheduled(h model.Habit, date time.Time) bool {
	weekday := int(date.Weekday())
	for _, d := range h.RecurringDays {
		if d == weekday {
			return true
		}
	}
	return false
}

// completedOn applies the defensive-read rule: a habit counts as completed
// only on a day it is scheduled, even if a stray completion entry exists.
func completedOn(h model.Habit, date time.Time) bool {
	if !IsScheduled(h, date) {
		return false
	}
	return h.Completed[date.Format(model.DateLayout)]
}

// DailyCompletion returns how many habits were completed out of how many were
// scheduled on date. Paused habits contribute to neither count.
func DailyCompletion(habits []model.Habit, date time.Time) (completed, scheduled int) {
	for _, h := range habits {
		if h.Paused || !IsScheduled(h, date) {
			continue
		}
		scheduled++
		if completedOn(h, date) {
			completed++
		}
	}
	return completed, scheduled
}

// CompletionRatio is completed/scheduled, 0 when nothing was scheduled.
func CompletionRatio(completed, scheduled int) float64 {
	if scheduled == 0 {
		return 0
	}
	return float64(completed) / float64(scheduled)
}

// PerfectDay reports whether at least one habit was scheduled on date and
// every scheduled, non-paused habit was completed.
func PerfectDay(habits []model.Habit, date time.Time) bool {
	completed, scheduled := DailyCompletion(habits, date)
	return scheduled > 0 && completed == scheduled
}

// HabitChain walks backward from referenceDate counting consecutive
// completions of one habit. Days the habit is not scheduled are skipped
// outright: a Mon/Wed/Fri habit is not penalized for Tuesdays. The walk
// terminates on the first scheduled-but-uncompleted day. A paused habit has
// no active chain.
func HabitChain(h model.Habit, referenceDate time.Time, lookbackDays int) int {
	if h.Paused {
		return 0
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	chain := 0
	day := referenceDate
	for i := 0; i < lookbackDays; i++ {
		if IsScheduled(h, day) {
			if !h.Completed[day.Format(model.DateLayout)] {
				break
			}
			chain++
		}
		day = day.AddDate(0, 0, -1)
	}
	return chain
}

// StrictStreak counts consecutive days ending at referenceDate on which every
// scheduled, non-paused habit was completed. A day with zero scheduled habits
// does not qualify and terminates the streak.
func StrictStreak(habits []model.Habit, referenceDate time.Time, lookbackDays int) int {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	streak := 0
	day := referenceDate
	for i := 0; i < lookbackDays; i++ {
		if !PerfectDay(habits, day) {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// AnyCompletionStreak counts consecutive days ending at referenceDate on
// which at least one non-paused habit scheduled that day was completed. This
// is the lighter-weight variant shown on the stats card; it must not be
// conflated with StrictStreak.
func AnyCompletionStreak(habits []model.Habit, referenceDate time.Time, lookbackDays int) int {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	streak := 0
	day := referenceDate
	for i := 0; i < lookbackDays; i++ {
		anyCompleted := false
		for _, h := range habits {
			if h.Paused {
				continue
			}
			if completedOn(h, day) {
				anyCompleted = true
				break
			}
		}
		if !anyCompleted {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// WeekdayStats aggregates one weekday across all historical dates.
type WeekdayStats struct {
	Weekday       time.Weekday `json:"weekday"`
	Completed     int          `json:"completed"`
	Scheduled     int          `json:"scheduled"`
	Percentage    float64      `json:"percentage"`
	Cigarettes    int          `json:"cigarettes"`
	Joints        int          `json:"joints"`
	Records       int          `json:"records"`
	AvgCigarettes float64      `json:"avg_cigarettes"`
	AvgJoints     float64      `json:"avg_joints"`
}

// DayOfWeekAggregate buckets habit completion and consumption by weekday.
// category filters habits only ("" means all categories); consumption is
// never category-scoped. Weekdays without data report zero, not an error.
func DayOfWeekAggregate(habits []model.Habit, records []model.ConsumptionRecord, category model.Category) [7]WeekdayStats {
	var stats [7]WeekdayStats
	for i := range stats {
		stats[i].Weekday = time.Weekday(i)
	}

	for _, h := range habits {
		if h.Paused {
			continue
		}
		if category != "" && h.Category != category {
			continue
		}
		for dateStr, done := range h.Completed {
			date, err := time.Parse(model.DateLayout, dateStr)
			if err != nil {
				continue
			}
			if !IsScheduled(h, date) {
				continue
			}
			wd := int(date.Weekday())
			stats[wd].Scheduled++
			if done {
				stats[wd].Completed++
			}
		}
	}

	for _, r := range records {
		date, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			continue
		}
		wd := int(date.Weekday())
		stats[wd].Cigarettes += r.Cigarettes
		stats[wd].Joints += r.Joints
		stats[wd].Records++
	}

	for i := range stats {
		if stats[i].Scheduled > 0 {
			stats[i].Percentage = math.Round(float64(stats[i].Completed) / float64(stats[i].Scheduled) * 100)
		}
		if stats[i].Records > 0 {
			stats[i].AvgCigarettes = math.Round(float64(stats[i].Cigarettes)/float64(stats[i].Records)*10) / 10
			stats[i].AvgJoints = math.Round(float64(stats[i].Joints)/float64(stats[i].Records)*10) / 10
		}
	}
	return stats
}

// BestDay returns the weekday with the highest completion percentage among
// weekdays that have scheduled data. ok is false when no weekday has data.
func BestDay(stats [7]WeekdayStats) (day time.Weekday, ok bool) {
	best := -1
	for i := range stats {
		if stats[i].Scheduled == 0 {
			continue
		}
		if best == -1 || stats[i].Percentage > stats[best].Percentage {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return time.Weekday(best), true
}

// WorstDay returns the weekday with the lowest completion percentage among
// weekdays that have scheduled data.
func WorstDay(stats [7]WeekdayStats) (day time.Weekday, ok bool) {
	worst := -1
	for i := range stats {
		if stats[i].Scheduled == 0 {
			continue
		}
		if worst == -1 || stats[i].Percentage < stats[worst].Percentage {
			worst = i
		}
	}
	if worst == -1 {
		return 0, false
	}
	return time.Weekday(worst), true
}

func substanceCount(r model.ConsumptionRecord, kind model.StreakType) int {
	if kind == model.StreakJoints {
		return r.Joints
	}
	return r.Cigarettes
}

// ConsumptionStreak counts consecutive days ending at referenceDate whose
// record shows zero of the substance. A missing record breaks the run:
// untracked days do not count as clean days.
func ConsumptionStreak(records []model.ConsumptionRecord, referenceDate time.Time, lookbackDays int, kind model.StreakType) int {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	byDate := make(map[string]model.ConsumptionRecord, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}

	streak := 0
	day := referenceDate
	for i := 0; i < lookbackDays; i++ {
		r, ok := byDate[day.Format(model.DateLayout)]
		if !ok || substanceCount(r, kind) > 0 {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestConsumptionStreak scans the whole lookback window and returns the
// longest run of recorded clean days.
func LongestConsumptionStreak(records []model.ConsumptionRecord, referenceDate time.Time, lookbackDays int, kind model.StreakType) int {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	byDate := make(map[string]model.ConsumptionRecord, len(records))
	for _, r := range records {
		byDate[r.Date] = r
	}

	longest, run := 0, 0
	day := referenceDate.AddDate(0, 0, -(lookbackDays - 1))
	for i := 0; i < lookbackDays; i++ {
		r, ok := byDate[day.Format(model.DateLayout)]
		if ok && substanceCount(r, kind) == 0 {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
		day = day.AddDate(0, 0, 1)
	}
	return longest
}
