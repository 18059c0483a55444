package models

// ScoreModel is one grading entry for a project.
// A grader scores each criterion at most once per project.
type ScoreModel struct {
	Base
	ProjectID string  `json:"project_id" gorm:"uniqueIndex:uniq_project_grader_criterion;not null"`
	GraderID  string  `json:"grader_id"  gorm:"uniqueIndex:uniq_project_grader_criterion;not null"`
	Criterion string  `json:"criterion"  gorm:"uniqueIndex:uniq_project_grader_criterion;not null"`
	Score     float64 `json:"score"`
	Weight    int     `json:"weight"     gorm:"default:0"`
	Comment   string  `json:"comment"    gorm:"type:text"`
}

func (ScoreModel) TableName() string { return "scores" }
