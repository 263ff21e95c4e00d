package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/cv-builder/internal/cv"
)

// ErrSubdomainTaken is returned by PublishCV when another CV already uses
// the requested subdomain.
var ErrSubdomainTaken = errors.New("subdomain already taken")

// CVRow is a stored CV and its ownership metadata.
type CVRow struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Subdomain *string   `json:"subdomain,omitempty"`
	Record    cv.Record `json:"record"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document rebuilds the editable document from the stored record.
func (r *CVRow) Document() *cv.Document {
	subdomain := ""
	if r.Subdomain != nil {
		subdomain = *r.Subdomain
	}
	return cv.FromRecord(r.Record, subdomain)
}

// CVSummary is a lightweight view of a CV for listing
type CVSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	TemplateID string    `json:"template_id"`
	Subdomain  *string   `json:"subdomain,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// encodedRecord holds the JSONB columns of a record.
type encodedRecord struct {
	cvData  []byte
	display []byte
}

func encodeRecord(r cv.Record) (encodedRecord, error) {
	data, err := json.Marshal(r.CVData)
	if err != nil {
		return encodedRecord{}, fmt.Errorf("failed to marshal cv data: %w", err)
	}
	display, err := json.Marshal(r.DisplaySettings)
	if err != nil {
		return encodedRecord{}, fmt.Errorf("failed to marshal display settings: %w", err)
	}
	return encodedRecord{cvData: data, display: display}, nil
}

func decodeRecord(r *cv.Record, cvData, display []byte) error {
	if len(cvData) > 0 {
		if err := json.Unmarshal(cvData, &r.CVData); err != nil {
			return fmt.Errorf("failed to unmarshal cv data: %w", err)
		}
	}
	if len(display) > 0 {
		if err := json.Unmarshal(display, &r.DisplaySettings); err != nil {
			return fmt.Errorf("failed to unmarshal display settings: %w", err)
		}
	}
	return nil
}
