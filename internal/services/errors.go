package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/diewo77/go-crm/validation"
	"gorm.io/gorm"
)

var (
	// ErrNotFound covers missing rows and rows outside the actor's visible set.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a visible row may not be changed by the actor.
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUpstream           = errors.New("upstream failure")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ArgumentError is an ErrInvalidArgument carrying the offending reason.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string { return "invalid argument: " + e.Reason }

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func invalidArgument(format string, args ...any) error {
	return &ArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports field-level input errors as codes.
type ValidationError struct {
	Fields validation.Violations
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func fieldError(field, code string) *ValidationError {
	return &ValidationError{Fields: validation.Violations{field: code}}
}

func checkViolations(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Fields: v}
}

func upstream(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, what, err)
}

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
