package identity

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/repository/memory"
)

func newTestProvider(t *testing.T) *provider {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, ok := NewProvider(memory.New().Credentials(), "test-secret", time.Hour, logger).(*provider)
	require.True(t, ok)
	return p
}

// useClock makes the provider read a manually advanced clock that starts in the past.
func useClock(p *provider) func(time.Duration) {
	current := time.Now().Add(-10 * time.Minute)
	WithClock(func() time.Time { return current })(p)
	return func(d time.Duration) { current = current.Add(d) }
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	advance := useClock(p)

	ident, err := p.SignUp(ctx, "Coach@Example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "coach@example.com", ident.Email)
	assert.True(t, ident.IsFirstLogin())

	_, err = p.SignUp(ctx, "coach@example.com", "other-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)

	advance(time.Minute)
	first, err := p.SignIn(ctx, "coach@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, first.Identity.IsFirstLogin(), "first sign-in sees provisioning timestamps")

	advance(time.Minute)
	second, err := p.SignIn(ctx, "coach@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, second.Identity.IsFirstLogin())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSignInErrors(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	_, err := p.SignUp(ctx, "student@example.com", "secret1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"unknown user", "nobody@example.com", "secret1", ErrUnknownUser},
		{"wrong password", "student@example.com", "nope", ErrWrongPassword},
		{"empty fields", "", "", ErrSignInFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := p.SignIn(ctx, tt.email, tt.password)
			assert.Nil(t, session)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCurrentIdentityAndSignOut(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	_, err := p.SignUp(ctx, "student@example.com", "secret1")
	require.NoError(t, err)
	session, err := p.SignIn(ctx, "student@example.com", "secret1")
	require.NoError(t, err)

	ident, err := p.CurrentIdentity(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, ident)

	ident, err = p.CurrentIdentity(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.ID, ident.ID)

	sid, err := p.SessionID(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, sid)

	_, err = p.CurrentIdentity(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	require.NoError(t, p.SignOut(ctx, session.Token))
	_, err = p.CurrentIdentity(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.ErrorIs(t, p.SignOut(ctx, session.Token), ErrSessionInvalid)
}

func TestTokenFromAnotherSecretIsRejected(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	_, err := p.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	session, err := p.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	other := newTestProvider(t)
	other.secret = []byte("different")
	_, err = other.CurrentIdentity(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestIdentityChangeEvents(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	advance := useClock(p)
	log := &eventLog{}
	unsubscribe := p.OnIdentityChange(log.record)

	ident, err := p.SignUp(ctx, "trainer@example.com", "temp123")
	require.NoError(t, err)
	advance(time.Minute)
	session, err := p.SignIn(ctx, "trainer@example.com", "temp123")
	require.NoError(t, err)
	require.True(t, session.Identity.IsFirstLogin())

	require.NoError(t, p.ChangePassword(ctx, ident.ID, "newpass1"))
	current, err := p.CurrentIdentity(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, current.IsFirstLogin(), "password change ends the first-login state")

	require.NoError(t, p.SignOut(ctx, session.Token))

	events := log.all()
	require.Len(t, events, 3)
	assert.Equal(t, session.ID, events[0].SessionID)
	assert.NotNil(t, events[0].Identity)
	assert.Equal(t, session.ID, events[1].SessionID)
	assert.False(t, events[1].Identity.IsFirstLogin())
	assert.Equal(t, session.ID, events[2].SessionID)
	assert.Nil(t, events[2].Identity)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, p.listenerCount())
}

func TestChangePasswordEndsFirstLoginWithinOneSecond(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	useClock(p)

	ident, err := p.SignUp(ctx, "trainer@example.com", "temp123")
	require.NoError(t, err)
	session, err := p.SignIn(ctx, "trainer@example.com", "temp123")
	require.NoError(t, err)
	require.True(t, session.Identity.IsFirstLogin())

	require.NoError(t, p.ChangePassword(ctx, ident.ID, "newpass1"))

	current, err := p.CurrentIdentity(ctx, session.Token)
	require.NoError(t, err)
	assert.False(t, current.IsFirstLogin())
	assert.True(t, current.LastSignInTime.After(current.CreationTime))

	for i := 0; i < 2; i++ {
		again, err := p.SignIn(ctx, "trainer@example.com", "newpass1")
		require.NoError(t, err)
		assert.False(t, again.Identity.IsFirstLogin(), "sign-in %d", i+1)
	}
}

func TestDeleteRevokesSessions(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	ident, err := p.SignUp(ctx, "gone@example.com", "secret1")
	require.NoError(t, err)
	session, err := p.SignIn(ctx, "gone@example.com", "secret1")
	require.NoError(t, err)

	log := &eventLog{}
	defer p.OnIdentityChange(log.record)()

	require.NoError(t, p.Delete(ctx, ident.ID))
	_, err = p.CurrentIdentity(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = p.SignIn(ctx, "gone@example.com", "secret1")
	assert.ErrorIs(t, err, ErrUnknownUser)

	events := log.all()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].Identity)
}

func TestSweepExpired(t *testing.T) {
	p := newTestProvider(t)
	now := time.Now()
	p.sessions.now = func() time.Time { return now }
	p.sessions.Set("old", Identity{ID: primitive.NewObjectID()}, now.Add(-time.Minute))
	p.sessions.Set("live", Identity{ID: primitive.NewObjectID()}, now.Add(time.Minute))

	log := &eventLog{}
	defer p.OnIdentityChange(log.record)()
	p.SweepExpired()

	events := log.all()
	require.Len(t, events, 1)
	assert.Equal(t, "old", events[0].SessionID)
	_, ok := p.sessions.Get("live")
	assert.True(t, ok)
}

func TestIsFirstLoginGranularity(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 100, time.UTC)
	tests := []struct {
		name   string
		signIn time.Time
		want   bool
	}{
		{"equal", base, true},
		{"same second", base.Add(500 * time.Millisecond), true},
		{"later", base.Add(2 * time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident := Identity{CreationTime: base, LastSignInTime: tt.signIn}
			assert.Equal(t, tt.want, ident.IsFirstLogin())
		})
	}
}
