package model

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionKind string

const (
	SubmissionContact SubmissionKind = "contact"
	SubmissionCareer  SubmissionKind = "career"
)

func (k SubmissionKind) Valid() bool {
	return k == SubmissionContact || k == SubmissionCareer
}

type SubmissionStatus string

const (
	SubmissionNew      SubmissionStatus = "new"
	SubmissionReviewed SubmissionStatus = "reviewed"
)

// Submission is a contact or career form sent from the public site.
// Subject holds the contact topic or the position applied for.
type Submission struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Kind       SubmissionKind   `gorm:"type:varchar(16);not null;index" json:"kind"`
	Name       string           `gorm:"type:varchar(128);not null" json:"name"`
	Email      string           `gorm:"type:varchar(320);not null" json:"email"`
	Phone      string           `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Company    string           `gorm:"type:varchar(128)" json:"company,omitempty"`
	Subject    string           `gorm:"type:varchar(256)" json:"subject,omitempty"`
	Message    string           `gorm:"type:text;not null" json:"message"`
	Status     SubmissionStatus `gorm:"type:varchar(16);not null;default:'new';index" json:"status"`
	ReviewedBy *uuid.UUID       `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (Submission) TableName() string { return "submissions" }
