package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/schemas"
)

// loadRecordFile reads a CV record JSON file, validates it against the
// record schema and returns the editable document.
func loadRecordFile(path string) (*cv.Document, error) {
	if err := schemas.ValidateRecordFile(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CV file: %w", err)
	}

	var record cv.Record
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CV JSON: %w", err)
	}
	return cv.FromRecord(record, ""), nil
}
