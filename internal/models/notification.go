package models

import "time"

// RecipientType selects the addressing mode of a notification.
// Exactly one of the three modes applies; it is fixed at creation.
type RecipientType string

const (
	RecipientAll  RecipientType = "all"
	RecipientRole RecipientType = "role"
	RecipientUser RecipientType = "user"
)

// Valid reports whether t is a known addressing mode.
func (t RecipientType) Valid() bool {
	switch t {
	case RecipientAll, RecipientRole, RecipientUser:
		return true
	}
	return false
}

// NotificationModel is a persisted notification record.
// RecipientID holds a role name when RecipientType is "role",
// a user id when it is "user", and is empty for "all".
type NotificationModel struct {
	Base
	Title         string        `json:"title"          gorm:"not null"`
	Message       string        `json:"message"        gorm:"type:text"`
	Type          string        `json:"type"           gorm:"index;default:'info'"`
	Priority      string        `json:"priority"       gorm:"index;default:'normal'"`
	RecipientType RecipientType `json:"recipient_type" gorm:"index;not null;default:'user'"`
	RecipientID   string        `json:"recipient_id"   gorm:"index"`
	Read          bool          `json:"read"           gorm:"index;default:false"`
	ReadAt        *time.Time    `json:"read_at"`
	ActionURL     string        `json:"action_url"`
	ActionText    string        `json:"action_text"`
}

func (NotificationModel) TableName() string { return "notifications" }
