package models

// AdvisorModel is a faculty member who supervises final projects.
type AdvisorModel struct {
	Base
	UserID     string `json:"user_id"    gorm:"index"`
	Name       string `json:"name"       gorm:"not null"`
	Email      string `json:"email"`
	Department string `json:"department" gorm:"index"`
	Title      string `json:"title"`
	Capacity   int    `json:"capacity"   gorm:"default:5"`
}

func (AdvisorModel) TableName() string { return "advisors" }
