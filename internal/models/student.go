package models

// StudentModel is a student enrolled in the final-project programme.
type StudentModel struct {
	Base
	UserID        string `json:"user_id"        gorm:"index"`
	Name          string `json:"name"           gorm:"not null"`
	StudentNumber string `json:"student_number" gorm:"uniqueIndex;not null"`
	Email         string `json:"email"`
	CohortYear    int    `json:"cohort_year"    gorm:"index"`
	Major         string `json:"major"`
}

func (StudentModel) TableName() string { return "students" }
