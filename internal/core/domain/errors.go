package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrState           = errors.New("invalid state")
	ErrConflict        = errors.New("concurrent modification")
	ErrTemporary       = errors.New("temporary failure")
)

// Ledger state violations. They are always wrapped with ErrState.
var (
	ErrAlreadyConfirmed       = errors.New("already confirmed")
	ErrMustSignFirst          = errors.New("must sign first")
	ErrApprovedNoResign       = errors.New("cannot re-sign an approved record")
	ErrPreviousLevelPending   = errors.New("previous level not complete")
	ErrPreparedByMissing      = errors.New("prepared-by signature missing")
	ErrDocumentNotUnderReview = errors.New("document is not under review")
	ErrApprovalClosed         = errors.New("approval is closed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors collects field-level validation failures. Use Err to turn it into an
// ErrInvalidInput-kinded error.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return strings.Join(parts, "; ")
}

func (fe *FieldErrors) Add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

func (fe FieldErrors) Err(operation string) error {
	if len(fe) == 0 {
		return nil
	}
	return WrapError(ErrInvalidInput, operation, fe)
}

// FieldErrorsOf extracts field detail from a validation error, if any.
func FieldErrorsOf(err error) FieldErrors {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}
