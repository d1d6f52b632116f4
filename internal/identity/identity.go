// Package identity is the email/password identity provider: credential
// storage, sign-in sessions backed by signed tokens, and identity-change
// notifications.
package identity

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User-facing authentication errors.
var (
	ErrUnknownUser    = errors.New("User not registered. Please sign up.")
	ErrWrongPassword  = errors.New("Incorrect password. Try again.")
	ErrSignInFailed   = errors.New("Sign-in failed. Please try again later.")
	ErrEmailTaken     = errors.New("An account with this email already exists.")
	ErrSessionInvalid = errors.New("session is invalid or has expired")
)

// Identity is an authenticated principal as issued by the provider.
type Identity struct {
	ID             primitive.ObjectID `json:"id"`
	Email          string             `json:"email"`
	CreationTime   time.Time          `json:"creationTime"`
	LastSignInTime time.Time          `json:"lastSignInTime"`
}

// IsFirstLogin reports whether the identity has never signed in before the
// current session. Timestamps are compared at one-second granularity.
func (i *Identity) IsFirstLogin() bool {
	return i.CreationTime.Truncate(time.Second).Equal(i.LastSignInTime.Truncate(time.Second))
}

// Session is the result of a successful sign-in.
type Session struct {
	ID        string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Identity  *Identity `json:"identity"`
}

// Event is delivered to identity-change handlers. A nil Identity means the
// session ended (sign-out, expiry or identity deletion).
type Event struct {
	SessionID string
	Identity  *Identity
}
