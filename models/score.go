package models

import "time"

// Score is one candidate's result within a grading run.
type Score struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	CandidateID   uint   `gorm:"index;not null;uniqueIndex:idx_run_candidate"`
	QuestionID    uint   `gorm:"index;not null"`
	RunID         string `gorm:"size:36;index;not null;uniqueIndex:idx_run_candidate"`
	Correctness   int
	Syntax        int
	CodeStructure int
	Efficiency    int
	EdgeCases     int
	FinalScore    int    `gorm:"not null"`
	ExamPoints    int    `gorm:"not null"`
	Method        string `gorm:"size:16;not null"`
	Feedback      string `gorm:"type:text"`
}
