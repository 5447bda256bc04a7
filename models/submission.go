package models

import (
	"math"
	"time"
)

// Submission is one classification request made by a user against an image.
type Submission struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID         uint      `gorm:"not null;index" json:"image_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Filename        string    `gorm:"size:255;not null;default:''" json:"filename"`
	ExpectedLabelID *uint     `gorm:"index" json:"expected_label_id,omitempty"`
	CreatedAt       time.Time `gorm:"not null;index" json:"created_at"`

	// Relationships
	Image         *Image  `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"image,omitempty"`
	User          *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ExpectedLabel *Label  `gorm:"foreignKey:ExpectedLabelID;constraint:OnDelete:SET NULL" json:"expected_label,omitempty"`
	Scores        []Score `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"submission_scores,omitempty"`
}

func (Submission) TableName() string {
	return "submissions"
}

// Score is the probability the classifier assigned to one label for a submission.
type Score struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	SubmissionID uint    `gorm:"not null;index" json:"submission_id"`
	LabelID      uint    `gorm:"not null;index" json:"label_id"`
	Score        float64 `gorm:"not null" json:"score"`

	Label *Label `gorm:"foreignKey:LabelID;constraint:OnDelete:CASCADE" json:"label,omitempty"`
}

func (Score) TableName() string {
	return "scores"
}

// Rounded returns the score rounded to two decimals.
func (s Score) Rounded() float64 {
	return math.Round(s.Score*100) / 100
}
