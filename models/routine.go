package models

import "time"

// Routine is an ordered container of steps ("morning routine", "pre-gym").
type Routine struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Name        string `gorm:"size:100;not null" json:"name"`
	Icon        string `gorm:"size:10" json:"icon"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	ScheduledTime string   `gorm:"size:5" json:"scheduled_time,omitempty"`
	ScheduledDays []string `gorm:"serializer:json" json:"scheduled_days,omitempty"`

	Active bool `gorm:"default:true" json:"active"`
	Order  int  `gorm:"column:sort_order;default:0" json:"order"`

	CreatedAt time.Time `json:"created_at"`

	Steps []RoutineStep `gorm:"constraint:OnDelete:CASCADE" json:"steps"`
}

// RoutineStep is one step of a routine. A step may be linked to a habit,
// in which case completing the step marks the habit through the engine.
type RoutineStep struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	UserID    uint `gorm:"index;not null" json:"user_id"`
	RoutineID uint `gorm:"index;not null" json:"routine_id"`

	StepOrder       int    `gorm:"not null" json:"step_order"`
	Description     string `gorm:"size:200;not null" json:"description"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`

	LinkedHabitID *uint `json:"linked_habit_id,omitempty"`
}
