package service

import (
	"errors"
)

// --- Error Definitions ---
var (
	ErrValidation             = errors.New("validation failed")
	ErrTrainerNotSelected     = errors.New("Please select a trainer first.")
	ErrStudentNotFound        = errors.New("student not found")
	ErrTrainerNotFound        = errors.New("trainer not found")
	ErrRoutineNotFound        = errors.New("routine not found")
	ErrInjuryNotFound         = errors.New("injury not found")
	ErrExerciseNotFound       = errors.New("exercise not found in routine")
	ErrVideoNotFound          = errors.New("exercise has no video")
	ErrProfileNotProvisioned  = errors.New("Could not retrieve the user information.")
	ErrPasswordChangeRequired = errors.New("Password change required before continuing.")
	ErrRegistrationFailed     = errors.New("There was an error during registration. Try again.")
)

// ValidationError is a user-facing input error raised before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
