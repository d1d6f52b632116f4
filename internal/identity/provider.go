package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository"
)

const tokenIssuer = "fitness-coach"

// Provider is the identity provider used by services and the session router.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// CurrentIdentity returns the identity bound to token, or nil for an empty token.
	CurrentIdentity(ctx context.Context, token string) (*Identity, error)
	// SessionID returns the session a valid token belongs to.
	SessionID(token string) (string, error)
	// OnIdentityChange registers handler for every session change and returns its unsubscribe func.
	OnIdentityChange(handler func(Event)) (unsubscribe func())
	ChangePassword(ctx context.Context, id primitive.ObjectID, newPassword string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// SweepExpired ends expired sessions and notifies their handlers.
	SweepExpired()
}

type tokenClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type provider struct {
	creds      repository.CredentialRepository
	secret     []byte
	expiration time.Duration
	logger     *slog.Logger
	now        func() time.Time

	sessions *sessionRegistry

	mu       sync.RWMutex
	nextID   int
	handlers map[int]func(Event)
}

// Option configures a provider.
type Option func(*provider)

// WithClock sets the clock used for credential timestamps and token issue times.
func WithClock(now func() time.Time) Option {
	return func(p *provider) { p.now = now }
}

// NewProvider creates a provider storing credentials in creds and signing tokens with secret.
func NewProvider(creds repository.CredentialRepository, secret string, expiration time.Duration, logger *slog.Logger, opts ...Option) Provider {
	if secret == "" {
		panic("JWT secret cannot be empty")
	}
	if expiration <= 0 {
		expiration = time.Hour
	}
	p := &provider{
		creds:      creds,
		secret:     []byte(secret),
		expiration: expiration,
		logger:     logger.With("component", "identity"),
		now:        time.Now,
		sessions:   newSessionRegistry(time.Now),
		handlers:   make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *provider) SignUp(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Truncated to what the store keeps, so the first sign-in compares equal.
	created := p.now().UTC().Truncate(time.Millisecond)
	cred := &domain.Credential{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    created,
		LastSignInAt: created,
	}
	id, err := p.creds.Create(ctx, cred)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}
	cred.ID = id
	return toIdentity(cred), nil
}

func (p *provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrSignInFailed
	}

	cred, err := p.creds.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		p.logger.ErrorContext(ctx, "sign-in lookup failed", "error", err)
		return nil, ErrSignInFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	// The session sees the timestamps as they were before this sign-in.
	ident := toIdentity(cred)
	at := p.now()
	if at.Before(cred.LastSignInAt) {
		at = cred.LastSignInAt
	}
	if err := p.creds.RecordSignIn(ctx, cred.ID, at); err != nil {
		p.logger.ErrorContext(ctx, "recording sign-in failed", "identityId", cred.ID.Hex(), "error", err)
		return nil, ErrSignInFailed
	}

	session, err := p.issue(*ident)
	if err != nil {
		p.logger.ErrorContext(ctx, "token generation failed", "error", err)
		return nil, ErrSignInFailed
	}
	p.emit(Event{SessionID: session.ID, Identity: session.Identity})
	return session, nil
}

func (p *provider) issue(ident Identity) (*Session, error) {
	sid := uuid.NewString()
	issued := p.now()
	expires := issued.Add(p.expiration)
	claims := &tokenClaims{
		UserID: ident.ID.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			Subject:   ident.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(issued),
			Issuer:    tokenIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, err
	}
	p.sessions.Set(sid, ident, expires)
	return &Session{ID: sid, Token: token, ExpiresAt: expires, Identity: &ident}, nil
}

func (p *provider) parse(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid || claims.ID == "" || claims.UserID == "" {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}

func (p *provider) SessionID(token string) (string, error) {
	claims, err := p.parse(token)
	if err != nil {
		return "", err
	}
	if _, ok := p.sessions.Get(claims.ID); !ok {
		return "", ErrSessionInvalid
	}
	return claims.ID, nil
}

func (p *provider) CurrentIdentity(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := p.parse(token)
	if err != nil {
		return nil, err
	}
	ident, ok := p.sessions.Get(claims.ID)
	if !ok || ident.ID.Hex() != claims.UserID {
		return nil, ErrSessionInvalid
	}
	return &ident, nil
}

func (p *provider) SignOut(_ context.Context, token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return err
	}
	if !p.sessions.Revoke(claims.ID) {
		return ErrSessionInvalid
	}
	p.emit(Event{SessionID: claims.ID})
	return nil
}

func (p *provider) ChangePassword(ctx context.Context, id primitive.ObjectID, newPassword string) error {
	if newPassword == "" {
		return errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := p.creds.UpdatePasswordHash(ctx, id, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// A password change counts as a sign-in. The first-login check compares whole
	// seconds, so the recorded time must land after the creation second.
	cred, err := p.creds.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("reload credential: %w", err)
	}
	at := p.now()
	if floor := cred.CreatedAt.Truncate(time.Second).Add(time.Second); at.Before(floor) {
		at = floor
	}
	if err := p.creds.RecordSignIn(ctx, id, at); err != nil {
		return fmt.Errorf("record sign-in: %w", err)
	}
	cred.LastSignInAt = at.UTC()

	// Live sessions pick up the new sign-in time, which ends the first-login state.
	ident := toIdentity(cred)
	for _, sid := range p.sessions.ForIdentity(id) {
		if p.sessions.Rebind(sid, *ident) {
			fresh := *ident
			p.emit(Event{SessionID: sid, Identity: &fresh})
		}
	}
	return nil
}

func (p *provider) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := p.creds.Delete(ctx, id); err != nil {
		return err
	}
	for _, sid := range p.sessions.ForIdentity(id) {
		if p.sessions.Revoke(sid) {
			p.emit(Event{SessionID: sid})
		}
	}
	return nil
}

func (p *provider) SweepExpired() {
	for _, sid := range p.sessions.Sweep() {
		p.emit(Event{SessionID: sid})
	}
}

func (p *provider) OnIdentityChange(handler func(Event)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.handlers, id)
			p.mu.Unlock()
		})
	}
}

// listenerCount reports the registered identity-change handlers.
func (p *provider) listenerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers)
}

func (p *provider) emit(ev Event) {
	p.mu.RLock()
	handlers := make([]func(Event), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

func toIdentity(cred *domain.Credential) *Identity {
	return &Identity{
		ID:             cred.ID,
		Email:          cred.Email,
		CreationTime:   cred.CreatedAt,
		LastSignInTime: cred.LastSignInAt,
	}
}
