package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account. Passwords are stored as bcrypt hashes only.
// Gamification counters (xp, level, streaks) are mutated exclusively by the
// engine; level is always recomputed from xp after any xp change.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"`
	Name         string `gorm:"size:100;not null" json:"name"`
	Provider     string `gorm:"size:32" json:"provider"`
	ProviderID   string `gorm:"size:255" json:"-"`

	// Chat gateway link. Empty until the user pairs a chat session.
	ChatID string `gorm:"size:64;index" json:"chat_id,omitempty"`

	Timezone     string   `gorm:"size:50;default:'Europe/Madrid'" json:"timezone"`
	Mode         UserMode `gorm:"size:20;default:'normal'" json:"mode"`
	DoNotDisturb bool     `gorm:"default:false" json:"do_not_disturb"`

	XP               int `gorm:"default:0" json:"xp"`
	Level            int `gorm:"default:1" json:"level"`
	GlobalStreak     int `gorm:"default:0" json:"global_streak"`
	BestGlobalStreak int `gorm:"default:0" json:"best_global_streak"`

	OnboardingCompleted bool `gorm:"default:false" json:"onboarding_completed"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastActive time.Time `json:"last_active"`

	Habits    []Habit    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reminders []Reminder `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate hook ensures timestamps and defaults are set even when the
// row is created outside the normal registration path (OAuth, tests).
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.LastActive.IsZero() {
		u.LastActive = now
	}
	u.UpdatedAt = now
	if u.Level == 0 {
		u.Level = 1
	}
	if u.Mode == "" {
		u.Mode = ModeNormal
	}
	if u.Timezone == "" {
		u.Timezone = "Europe/Madrid"
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
