package models

import "fmt"

// HabitType distinguishes yes/no habits from quantity-target habits.
type HabitType string

const (
	HabitTypeBoolean  HabitType = "boolean"
	HabitTypeQuantity HabitType = "quantity"
)

// ParseHabitType validates a habit type coming in over the wire.
func ParseHabitType(s string) (HabitType, error) {
	switch HabitType(s) {
	case HabitTypeBoolean, HabitTypeQuantity:
		return HabitType(s), nil
	}
	return "", fmt.Errorf("unknown habit type %q", s)
}

// HabitFrequency is a habit's scheduling rule.
type HabitFrequency string

const (
	FrequencyDaily        HabitFrequency = "daily"
	FrequencySpecificDays HabitFrequency = "specific_days"
	FrequencyTimesPerWeek HabitFrequency = "times_per_week"
)

// ParseHabitFrequency validates a frequency coming in over the wire.
func ParseHabitFrequency(s string) (HabitFrequency, error) {
	switch HabitFrequency(s) {
	case FrequencyDaily, FrequencySpecificDays, FrequencyTimesPerWeek:
		return HabitFrequency(s), nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// UserMode gates proactive notifications and streak reconciliation.
type UserMode string

const (
	ModeNormal   UserMode = "normal"
	ModeVacation UserMode = "vacation"
	ModeSick     UserMode = "sick"
)

// ParseUserMode validates a mode coming in over the wire.
func ParseUserMode(s string) (UserMode, error) {
	switch UserMode(s) {
	case ModeNormal, ModeVacation, ModeSick:
		return UserMode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// ReminderType selects the template a reminder renders with.
type ReminderType string

const (
	ReminderMorning       ReminderType = "morning"
	ReminderMidday        ReminderType = "midday"
	ReminderEvening       ReminderType = "evening"
	ReminderNight         ReminderType = "night"
	ReminderSummary       ReminderType = "summary"
	ReminderWeeklySummary ReminderType = "weekly_summary"
	ReminderRoutine       ReminderType = "routine"
	ReminderCustom        ReminderType = "custom"
)

// ParseReminderType validates a reminder type coming in over the wire.
func ParseReminderType(s string) (ReminderType, error) {
	switch ReminderType(s) {
	case ReminderMorning, ReminderMidday, ReminderEvening, ReminderNight,
		ReminderSummary, ReminderWeeklySummary, ReminderRoutine, ReminderCustom:
		return ReminderType(s), nil
	}
	return "", fmt.Errorf("unknown reminder type %q", s)
}

// TaskPriority orders the task list.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ParseTaskPriority validates a priority coming in over the wire.
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch TaskPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return TaskPriority(s), nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}
