package models

// ProjectStatus is the lifecycle state of a final project.
type ProjectStatus string

const (
	ProjectProposed   ProjectStatus = "proposed"
	ProjectApproved   ProjectStatus = "approved"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectSubmitted  ProjectStatus = "submitted"
	ProjectDefended   ProjectStatus = "defended"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectProposed, ProjectApproved, ProjectInProgress, ProjectSubmitted, ProjectDefended:
		return true
	}
	return false
}

// ProjectModel is a student's final (graduation) project.
type ProjectModel struct {
	Base
	Title        string        `json:"title"         gorm:"not null"`
	Abstract     string        `json:"abstract"      gorm:"type:text"`
	StudentID    string        `json:"student_id"    gorm:"index;not null"`
	AdvisorID    string        `json:"advisor_id"    gorm:"index"`
	AcademicYear string        `json:"academic_year" gorm:"index"`
	Status       ProjectStatus `json:"status"        gorm:"index;default:'proposed'"`
	Tags         StringArray   `json:"tags"          gorm:"type:longtext"`

	Student *StudentModel `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Advisor *AdvisorModel `json:"advisor,omitempty" gorm:"foreignKey:AdvisorID"`
}

func (ProjectModel) TableName() string { return "projects" }
