package models

import "time"

// Question is an exam question with its (generated or supplied) reference answer.
type Question struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	OwnerID      uint   `gorm:"index;not null"`
	Text         string `gorm:"type:text;not null"`
	LanguageHint string `gorm:"size:64"`
	Points       int    `gorm:"not null"`
	Reference    string `gorm:"type:text"`
	// ImageKey is set when the question itself was transcribed from an image.
	ImageKey   string      `gorm:"size:512"`
	Candidates []Candidate `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:",omitempty"`
}
