package leads

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownField is returned when a field name is not part of the schema.
	ErrUnknownField = errors.New("leads: unknown field")

	// ErrVerificationRequired is returned when no bot-challenge token was sent.
	ErrVerificationRequired = errors.New("leads: verification token required")

	// ErrVerificationFailed is returned when the challenge provider rejected the token.
	ErrVerificationFailed = errors.New("leads: verification failed")

	// ErrVerificationUnavailable is returned when the token could not be checked.
	ErrVerificationUnavailable = errors.New("leads: verification unavailable")

	// ErrDispatchFailed is returned when the customer confirmation could not be sent.
	ErrDispatchFailed = errors.New("leads: dispatch failed")
)

// ValidationError carries the per-field messages of a rejected submission.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return fmt.Sprintf("leads: invalid submission: %s", strings.Join(names, ", "))
}
