package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/access"
	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/session"
)

// Caller is an authenticated request's identity resolved to its account.
type Caller struct {
	SessionID string
	Identity  *identity.Identity
	Account   *domain.Account
	Principal access.Principal
}

// MustChangePassword reports whether a trainer is still on the first-login password step.
func (c *Caller) MustChangePassword() bool {
	return c.Principal.Role == domain.RoleTrainer && c.Identity.IsFirstLogin()
}

// SignInResult is the session plus the navigator it routes to.
type SignInResult struct {
	Session *identity.Session `json:"session"`
	State   session.State     `json:"state"`
}

// --- Service Interface ---
type AuthService interface {
	RegisterStudent(ctx context.Context, in RegisterStudentInput) (*domain.Student, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	SignOut(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to its caller.
	Authenticate(ctx context.Context, token string) (*Caller, error)
	// SessionState resolves the navigator for a token; an empty token is unauthenticated.
	SessionState(ctx context.Context, token string) (session.State, error)
	ChangePassword(ctx context.Context, caller access.Principal, newPassword, confirmation string) error
}

// --- Service Implementation ---

type authService struct {
	provider    identity.Provider
	accountRepo repository.AccountRepository
	studentRepo repository.StudentRepository
	scope       *access.Scope
	logger      *slog.Logger
}

// NewAuthService creates a new instance of authService.
func NewAuthService(
	provider identity.Provider,
	accountRepo repository.AccountRepository,
	studentRepo repository.StudentRepository,
	scope *access.Scope,
	logger *slog.Logger,
) AuthService {
	return &authService{
		provider:    provider,
		accountRepo: accountRepo,
		studentRepo: studentRepo,
		scope:       scope,
		logger:      logger.With("service", "auth"),
	}
}

// RegisterStudent signs up a new identity and provisions its student account.
func (s *authService) RegisterStudent(ctx context.Context, in RegisterStudentInput) (*domain.Student, error) {
	// 1. Validate before touching the provider
	profile, err := in.validate()
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	// 2. Create the identity
	ident, err := s.provider.SignUp(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "sign-up failed", "error", err)
		return nil, ErrRegistrationFailed
	}

	// 3. Provision account and student profile under the identity id
	account := &domain.Account{ID: ident.ID, Name: name, Email: email, Role: domain.RoleStudent}
	student := &domain.Student{
		ID:       ident.ID,
		Name:     name,
		Email:    email,
		Age:      profile.age,
		Gender:   strings.TrimSpace(in.Gender),
		WeightKg: profile.weightKg,
		HeightCm: profile.heightCm,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		s.abandonIdentity(ctx, ident.ID, err)
		return nil, ErrRegistrationFailed
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		if delErr := s.accountRepo.Delete(ctx, ident.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "rollback of account failed", "identityId", ident.ID.Hex(), "error", delErr)
		}
		s.abandonIdentity(ctx, ident.ID, err)
		return nil, ErrRegistrationFailed
	}

	s.logger.InfoContext(ctx, "student registered", "studentId", student.ID.Hex())
	return student, nil
}

// abandonIdentity removes an identity whose profile could not be provisioned so the email can be reused.
func (s *authService) abandonIdentity(ctx context.Context, id primitive.ObjectID, cause error) {
	s.logger.ErrorContext(ctx, "provisioning profile failed", "identityId", id.Hex(), "error", cause)
	if err := s.provider.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "removing unprovisioned identity failed", "identityId", id.Hex(), "error", err)
	}
}

// SignIn authenticates and reports the navigator the session routes to.
func (s *authService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	state := session.Resolve(ctx, s.accountRepo, sess.Identity, s.logger)
	s.logger.InfoContext(ctx, "signed in", "identityId", sess.Identity.ID.Hex(), "state", state.Status)
	return &SignInResult{Session: sess, State: state}, nil
}

func (s *authService) SignOut(ctx context.Context, token string) error {
	return s.provider.SignOut(ctx, token)
}

func (s *authService) SessionState(ctx context.Context, token string) (session.State, error) {
	ident, err := s.provider.CurrentIdentity(ctx, token)
	if err != nil {
		return session.State{}, err
	}
	return session.Resolve(ctx, s.accountRepo, ident, s.logger), nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*Caller, error) {
	if token == "" {
		return nil, identity.ErrSessionInvalid
	}
	ident, err := s.provider.CurrentIdentity(ctx, token)
	if err != nil {
		return nil, err
	}
	sid, err := s.provider.SessionID(token)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotProvisioned
		}
		return nil, fmt.Errorf("load account %s: %w", ident.ID.Hex(), err)
	}
	role, err := domain.ParseRole(string(account.Role))
	if err != nil {
		return nil, err
	}

	return &Caller{
		SessionID: sid,
		Identity:  ident,
		Account:   account,
		Principal: access.Principal{ID: ident.ID, Role: role},
	}, nil
}

// ChangePassword replaces the caller's own password. Only trainers have this step.
func (s *authService) ChangePassword(ctx context.Context, caller access.Principal, newPassword, confirmation string) error {
	if err := s.scope.AuthorizeOwner(ctx, caller, access.ActionUpdate, access.ResourcePassword, caller.ID); err != nil {
		return err
	}
	if err := check(PasswordChangeInput{NewPassword: newPassword, Confirmation: confirmation}); err != nil {
		return err
	}
	if err := s.provider.ChangePassword(ctx, caller.ID, newPassword); err != nil {
		s.logger.ErrorContext(ctx, "password change failed", "identityId", caller.ID.Hex(), "error", err)
		return err
	}
	s.logger.InfoContext(ctx, "password changed", "identityId", caller.ID.Hex())
	return nil
}
