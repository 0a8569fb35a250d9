package models

import "time"

// Habit is a recurring behavior tracked once per calendar day.
// Streak fields are owned by the engine; archived habits keep their history
// but are excluded from applicability.
type Habit struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Name        string `gorm:"size:100;not null" json:"name"`
	Icon        string `gorm:"size:10" json:"icon"`
	Category    string `gorm:"size:30;default:'other'" json:"category"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	HabitType      HabitType `gorm:"size:20;default:'boolean'" json:"habit_type"`
	TargetQuantity float64   `json:"target_quantity,omitempty"`
	QuantityUnit   string    `gorm:"size:30" json:"quantity_unit,omitempty"`

	Frequency    HabitFrequency `gorm:"size:20;default:'daily'" json:"frequency"`
	SpecificDays []string       `gorm:"serializer:json" json:"specific_days,omitempty"`
	TimesPerWeek int            `json:"times_per_week,omitempty"`

	CurrentStreak int `gorm:"default:0" json:"current_streak"`
	BestStreak    int `gorm:"default:0" json:"best_streak"`

	Active   bool `gorm:"default:true" json:"active"`
	Archived bool `gorm:"default:false" json:"archived"`
	Order    int  `gorm:"column:sort_order;default:0" json:"order"`

	CreatedAt time.Time `json:"created_at"`

	Logs []HabitLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// HabitLog is the single record of a habit on one calendar day.
// Date is the user-local calendar day as "YYYY-MM-DD"; the (habit_id, date)
// pair is unique, concurrent writers converge on the same row.
type HabitLog struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	UserID  uint `gorm:"index;not null" json:"user_id"`
	HabitID uint `gorm:"not null;uniqueIndex:uq_habit_date" json:"habit_id"`

	Date           string  `gorm:"size:10;not null;uniqueIndex:uq_habit_date;index" json:"date"`
	Completed      bool    `gorm:"default:false" json:"completed"`
	QuantityLogged float64 `gorm:"default:0" json:"quantity_logged"`
	Note           string  `gorm:"type:text" json:"note,omitempty"`

	// Set exactly when Completed transitions false to true, cleared on the
	// reverse transition, untouched by redundant re-marks.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DateKey normalizes a time to the engine's canonical calendar-day key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
