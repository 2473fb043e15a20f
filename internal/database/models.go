package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Print job lifecycle states.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Print job kinds.
const (
	JobKindPrint   = "print"
	JobKindPreview = "preview"
)

// PrintJob records one requested generation: the submitted resume payload,
// the requested output, and the outcome.
type PrintJob struct {
	gorm.Model
	OwnerID    uint   `gorm:"index"`
	DocumentID string `gorm:"size:64;index"`
	Title      string `gorm:"size:255"`
	// Kind is print or preview.
	Kind string `gorm:"size:16"`
	// Format is the requested physical page format; empty means continuous.
	Format string `gorm:"size:16"`
	// Payload is the structured resume document as submitted.
	Payload      datatypes.JSON `gorm:"type:jsonb"`
	Status       string         `gorm:"size:32"`
	ResultURL    string         `gorm:"size:1024"`
	ErrorCode    string         `gorm:"size:64"`
	ErrorMessage string         `gorm:"size:512"`
}
