// Package session turns identity changes into the navigator a client should show.
package session

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository"
)

// Status names a routing outcome.
type Status string

const (
	StatusUnauthenticated       Status = "unauthenticated"
	StatusLoading               Status = "loading"
	StatusStudent               Status = "student"
	StatusTrainer               Status = "trainer"
	StatusAdmin                 Status = "admin"
	StatusChangePassword        Status = "change-password"
	StatusRoleNotRecognized     Status = "role-not-recognized"
	StatusProfileNotProvisioned Status = "profile-not-provisioned"
	StatusError                 Status = "error"
)

const (
	msgRoleNotRecognized = "Role not recognized, please contact support."
	msgNotProvisioned    = "Could not retrieve the user information."
	msgStoreFailure      = "Something went wrong. Please try again."
)

// State is what the client renders. Only navigator states carry a Role.
type State struct {
	Status     Status      `json:"status"`
	Role       domain.Role `json:"role,omitempty"`
	IdentityID string      `json:"identityId,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Navigator reports whether the state mounts a role navigator.
func (s State) Navigator() bool {
	switch s.Status {
	case StatusStudent, StatusTrainer, StatusAdmin, StatusChangePassword:
		return true
	}
	return false
}

// AccountReader fetches profile documents.
type AccountReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error)
}

// Resolve fetches the account of ident and maps its role to a state.
// It never falls back to the student navigator.
func Resolve(ctx context.Context, accounts AccountReader, ident *identity.Identity, logger *slog.Logger) State {
	if ident == nil {
		return State{Status: StatusUnauthenticated}
	}
	id := ident.ID.Hex()

	account, err := accounts.GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return State{Status: StatusProfileNotProvisioned, IdentityID: id, Message: msgNotProvisioned}
		}
		logger.ErrorContext(ctx, "account lookup failed", "identityId", id, "error", err)
		return State{Status: StatusError, IdentityID: id, Message: msgStoreFailure}
	}

	role, err := domain.ParseRole(string(account.Role))
	if err != nil {
		logger.WarnContext(ctx, "unrecognized role", "identityId", id, "role", account.Role)
		return State{Status: StatusRoleNotRecognized, IdentityID: id, Message: msgRoleNotRecognized}
	}

	switch role {
	case domain.RoleStudent:
		return State{Status: StatusStudent, Role: role, IdentityID: id}
	case domain.RoleTrainer:
		if ident.IsFirstLogin() {
			return State{Status: StatusChangePassword, Role: role, IdentityID: id}
		}
		return State{Status: StatusTrainer, Role: role, IdentityID: id}
	default:
		return State{Status: StatusAdmin, Role: role, IdentityID: id}
	}
}
