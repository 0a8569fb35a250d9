package models

// Reminder is a per-user scheduled notification rule. Time is local "HH:MM"
// in the user's timezone; a nil Days slice means every day.
type Reminder struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Type ReminderType `gorm:"size:30;not null" json:"type"`
	Time string       `gorm:"size:5;not null" json:"time"`
	Days []string     `gorm:"serializer:json" json:"days,omitempty"`

	// Custom reminders carry their own message text.
	Message string `gorm:"type:text" json:"message,omitempty"`

	// Routine reminders render the linked routine's step list.
	LinkedRoutineID *uint `json:"linked_routine_id,omitempty"`

	Active bool `gorm:"default:true" json:"active"`
}
