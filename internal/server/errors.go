package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/cv-builder/internal/cv"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/rendering"
	"github.com/jonathan/cv-builder/internal/schemas"
)

// ErrNotFound indicates a missing resource, or one owned by someone else
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrConflict indicates the request clashes with current state
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrNotImplemented indicates a feature disabled on this deployment
type ErrNotImplemented struct {
	Feature string
}

func (e *ErrNotImplemented) Error() string {
	return fmt.Sprintf("%s is not enabled on this server", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound       *ErrNotFound
		validation     *ErrValidation
		conflict       *ErrConflict
		notImplemented *ErrNotImplemented
		kindErr        *cv.KindError
		patchErr       *cv.PatchError
		schemaErr      *schemas.ValidationError
		fieldErrs      validator.ValidationErrors
	)

	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &kindErr), errors.As(err, &patchErr),
		errors.As(err, &schemaErr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.As(err, &conflict),
		errors.Is(err, db.ErrSubdomainTaken),
		errors.Is(err, rendering.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.As(err, &notImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// validationError converts validator errors into an ErrValidation naming
// the first failing field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ErrValidation{Field: fe.Field(), Message: fe.Tag()}
	}
	return &ErrValidation{Field: "(request)", Message: err.Error()}
}
