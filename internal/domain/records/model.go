// Package records manages uploaded medical documents. The file bytes go
// to a blobstore; this package owns the metadata and who may see it:
// the patient always, a doctor only while an appointment relationship
// with the patient exists.
package records

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Categories for medical records.
const (
	CategoryPrescription     = "prescription"
	CategoryLabReport        = "lab-report"
	CategoryScan             = "scan"
	CategoryDischargeSummary = "discharge-summary"
	CategoryOther            = "other"
)

var allowedCategories = map[string]bool{
	CategoryPrescription:     true,
	CategoryLabReport:        true,
	CategoryScan:             true,
	CategoryDischargeSummary: true,
	CategoryOther:            true,
}

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
}

type Record struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	FileName    string    `db:"file_name" json:"file_name"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Hash        string    `db:"hash" json:"hash"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (r *Record) Validate() error {
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !allowedCategories[r.Category] {
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if !allowedContentTypes[r.ContentType] {
		return fmt.Errorf("content type %q is not allowed", r.ContentType)
	}
	return nil
}
