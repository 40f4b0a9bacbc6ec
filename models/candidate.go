package models

import "time"

// Candidate is one student's answer to a question.
type Candidate struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	QuestionID uint   `gorm:"index;not null;uniqueIndex:idx_question_name"`
	Name       string `gorm:"size:255;not null;uniqueIndex:idx_question_name"`
	ImageKey   string `gorm:"size:512"`
	Text       string `gorm:"type:text"`
	Quality    int
	// Failed marks an answer whose image could not be transcribed; it is kept for review.
	Failed       bool    `gorm:"default:false;index"`
	FailedReason string  `gorm:"size:255"`
	Scores       []Score `gorm:"foreignKey:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:",omitempty"`
}
