package engine

import (
	"testing"
	"time"

	"github.com/PolDiaz18/nexotime/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAppliesOn(t *testing.T) {
	monday := date(2025, time.June, 2)
	sunday := date(2025, time.June, 8)

	daily := &models.Habit{Frequency: models.FrequencyDaily}
	if !AppliesOn(daily, monday) || !AppliesOn(daily, sunday) {
		t.Error("daily habit must apply every day")
	}

	weekdays := &models.Habit{
		Frequency:    models.FrequencySpecificDays,
		SpecificDays: []string{"mon", "wed", "fri"},
	}
	if !AppliesOn(weekdays, monday) {
		t.Error("specific_days habit must apply on a listed day")
	}
	if AppliesOn(weekdays, sunday) {
		t.Error("specific_days habit must not apply on an unlisted day")
	}

	// An empty day set means no restriction was configured.
	unrestricted := &models.Habit{Frequency: models.FrequencySpecificDays}
	if !AppliesOn(unrestricted, sunday) {
		t.Error("specific_days habit with no days must fail open")
	}

	weekly := &models.Habit{Frequency: models.FrequencyTimesPerWeek, TimesPerWeek: 3}
	if !AppliesOn(weekly, monday) || !AppliesOn(weekly, sunday) {
		t.Error("times_per_week habit must apply every day")
	}

	unknown := &models.Habit{Frequency: models.HabitFrequency("biweekly")}
	if !AppliesOn(unknown, monday) {
		t.Error("unknown frequency must fail open")
	}
}
