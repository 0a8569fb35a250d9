package models

import "time"

// Task is a one-off todo, separate from habits. Completing one awards XP
// through the engine but never touches streaks.
type Task struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Title       string       `gorm:"size:200;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Priority    TaskPriority `gorm:"size:20;default:'medium'" json:"priority"`

	DueDate string `gorm:"size:10" json:"due_date,omitempty"`
	DueTime string `gorm:"size:5" json:"due_time,omitempty"`

	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
