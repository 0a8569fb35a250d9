package models

import "time"

// MoodLog records one mood rating (1..5) per user per day.
type MoodLog struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:uq_mood_date" json:"user_id"`

	Date  string `gorm:"size:10;not null;uniqueIndex:uq_mood_date" json:"date"`
	Level int    `gorm:"not null" json:"level"`
	Note  string `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// WaterLog tracks glasses of water against a daily target, one row per day.
type WaterLog struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex:uq_water_date" json:"user_id"`

	Date    string `gorm:"size:10;not null;uniqueIndex:uq_water_date" json:"date"`
	Glasses int    `gorm:"default:0" json:"glasses"`
	Target  int    `gorm:"default:8" json:"target"`
}

// Quote is a motivational quote surfaced in morning reminders and /quote.
type Quote struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	Author   string `gorm:"size:100" json:"author,omitempty"`
	Category string `gorm:"size:50" json:"category,omitempty"`
}
