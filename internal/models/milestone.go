package models

import "time"

// MilestoneStatus is the progress state of a milestone.
type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneSubmitted MilestoneStatus = "submitted"
	MilestoneCompleted MilestoneStatus = "completed"
	MilestoneOverdue   MilestoneStatus = "overdue"
)

// MilestoneModel is one checkpoint in a project's timeline.
type MilestoneModel struct {
	Base
	ProjectID   string          `json:"project_id"   gorm:"index;not null"`
	Title       string          `json:"title"        gorm:"not null"`
	Description string          `json:"description"  gorm:"type:text"`
	DueDate     time.Time       `json:"due_date"     gorm:"index"`
	Weight      int             `json:"weight"       gorm:"default:0"` // percent of final grade
	Status      MilestoneStatus `json:"status"       gorm:"index;default:'pending'"`
	CompletedAt *time.Time      `json:"completed_at"`
}

func (MilestoneModel) TableName() string { return "milestones" }
