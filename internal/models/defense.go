package models

import "time"

// DefenseStatus is the scheduling state of a defense session.
type DefenseStatus string

const (
	DefenseScheduled DefenseStatus = "scheduled"
	DefenseCompleted DefenseStatus = "completed"
	DefenseCancelled DefenseStatus = "cancelled"
)

// DefenseModel is a scheduled defense (viva) session for a project.
type DefenseModel struct {
	Base
	ProjectID       string        `json:"project_id"       gorm:"index;not null"`
	Room            string        `json:"room"`
	ScheduledAt     time.Time     `json:"scheduled_at"     gorm:"index"`
	DurationMinutes int           `json:"duration_minutes" gorm:"default:30"`
	Committee       StringArray   `json:"committee"        gorm:"type:longtext"` // advisor ids
	Status          DefenseStatus `json:"status"           gorm:"index;default:'scheduled'"`
	ReminderSentAt  *time.Time    `json:"-"`
}

func (DefenseModel) TableName() string { return "defenses" }
