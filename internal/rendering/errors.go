// Package rendering produces the downloadable PDF of a resume.
package rendering

import (
	"errors"
	"fmt"
)

// ErrGenerationInProgress is returned when a PDF for the same resume is
// already being generated.
var ErrGenerationInProgress = errors.New("PDF generation already in progress")

// RenderError wraps any failure raised while generating a PDF.
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

func generationError(cause error) *RenderError {
	return &RenderError{Message: "PDF generation error", Cause: cause}
}
