package models

import "time"

// Achievement is a system-owned catalog row. Immutable after seeding.
type Achievement struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:300;not null" json:"description"`
	Icon        string `gorm:"size:10" json:"icon"`
	XPReward    int    `gorm:"default:0" json:"xp_reward"`
}

// UserAchievement records a single unlock. The (user, achievement) pair is
// unique so a racing double-evaluation cannot grant twice.
type UserAchievement struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	UserID        uint `gorm:"not null;uniqueIndex:uq_user_achievement" json:"user_id"`
	AchievementID uint `gorm:"not null;uniqueIndex:uq_user_achievement" json:"achievement_id"`

	UnlockedAt time.Time `json:"unlocked_at"`

	Achievement Achievement `json:"achievement"`
}
