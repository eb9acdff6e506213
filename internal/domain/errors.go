package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrDuplicate             = errors.New("duplicate image")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrDependency            = errors.New("dependency error")
	ErrTimeout               = errors.New("timed out")
	ErrNotFound              = errors.New("not found")
)

// Error kind codes surfaced to API callers.
const (
	KindValidation            = "validation"
	KindDuplicate             = "duplicate"
	KindDependencyUnavailable = "dependency_unavailable"
	KindDependency            = "dependency"
	KindTimeout               = "timeout"
	KindNotFound              = "not_found"
	KindInternal              = "internal"
)

// DuplicateError reports a perceptual hash collision inside one batch.
type DuplicateError struct {
	Hash     string
	Filename string
	FirstOf  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate: %s matches %s (hash %s)", e.Filename, e.FirstOf, e.Hash)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Validationf wraps a formatted reason with ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps a formatted reason with ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Kind maps an error onto its stable code.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrDependencyUnavailable):
		return KindDependencyUnavailable
	case errors.Is(err, ErrDependency):
		return KindDependency
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
