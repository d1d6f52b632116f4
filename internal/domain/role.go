package domain

import (
	"errors"
	"fmt"
)

// Role type to distinguish between account roles
type Role string

const (
	RoleStudent Role = "student"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "adminmaster"
)

// ErrUnrecognizedRole is returned for any role value outside the three known roles.
var ErrUnrecognizedRole = errors.New("role not recognized")

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts a stored role tag into a Role.
// An empty or unknown value is an error, never a default.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedRole, raw)
	}
	return r, nil
}
