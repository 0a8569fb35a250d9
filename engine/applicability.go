package engine

import (
	"strings"
	"time"

	"github.com/PolDiaz18/nexotime/models"
)

// weekdayKey lowers a weekday to the three-letter keys stored on habits and
// reminders ("mon" through "sun").
func weekdayKey(t time.Time) string {
	return strings.ToLower(t.Weekday().String()[:3])
}

// AppliesOn reports whether a habit is expected on the given day. Daily
// habits always apply. Specific-days habits apply when the day's weekday key
// is listed. Times-per-week habits apply every day: the weekly quota is a
// target, not a schedule, so no single day can break them. Malformed day
// lists fail open rather than silently exempting the habit.
func AppliesOn(habit *models.Habit, day time.Time) bool {
	switch habit.Frequency {
	case models.FrequencySpecificDays:
		if len(habit.SpecificDays) == 0 {
			return true
		}
		key := weekdayKey(day)
		for _, d := range habit.SpecificDays {
			if strings.ToLower(d) == key {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// applicableHabits returns the user's active, non-archived habits that apply
// on the given day.
func applicableHabits(habits []models.Habit, day time.Time) []models.Habit {
	out := make([]models.Habit, 0, len(habits))
	for i := range habits {
		h := habits[i]
		if !h.Active || h.Archived {
			continue
		}
		if AppliesOn(&h, day) {
			out = append(out, h)
		}
	}
	return out
}
