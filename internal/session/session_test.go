package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
	"alcyxob/fitness-coach/internal/repository"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]domain.Account
	gates    map[primitive.ObjectID]chan struct{}
	err      error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		accounts: map[primitive.ObjectID]domain.Account{},
		gates:    map[primitive.ObjectID]chan struct{}{},
	}
}

func (f *fakeAccounts) add(role domain.Role) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := primitive.NewObjectID()
	f.accounts[id] = domain.Account{ID: id, Role: role}
	return id
}

// hold makes lookups of id block until the returned func is called.
func (f *fakeAccounts) hold(id primitive.ObjectID) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[id] = gate
	return func() { close(gate) }
}

func (f *fakeAccounts) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Account, error) {
	f.mu.Lock()
	gate := f.gates[id]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

type fakeSource struct {
	mu       sync.Mutex
	handlers map[int]func(identity.Event)
	next     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: map[int]func(identity.Event){}}
}

func (s *fakeSource) OnIdentityChange(handler func(identity.Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

func (s *fakeSource) emit(ev identity.Event) {
	s.mu.Lock()
	handlers := make([]func(identity.Event), 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

func returningIdentity(id primitive.ObjectID) *identity.Identity {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return &identity.Identity{ID: id, CreationTime: created, LastSignInTime: created.Add(24 * time.Hour)}
}

func firstLoginIdentity(id primitive.ObjectID) *identity.Identity {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return &identity.Identity{ID: id, CreationTime: created, LastSignInTime: created}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	accounts := newFakeAccounts()
	student := accounts.add(domain.RoleStudent)
	trainer := accounts.add(domain.RoleTrainer)
	admin := accounts.add(domain.RoleAdmin)
	coach := accounts.add(domain.Role("coach"))
	blank := accounts.add(domain.Role(""))

	tests := []struct {
		name  string
		ident *identity.Identity
		want  Status
		role  domain.Role
	}{
		{"no identity", nil, StatusUnauthenticated, ""},
		{"student", returningIdentity(student), StatusStudent, domain.RoleStudent},
		{"student first login is not forced", firstLoginIdentity(student), StatusStudent, domain.RoleStudent},
		{"trainer", returningIdentity(trainer), StatusTrainer, domain.RoleTrainer},
		{"trainer first login", firstLoginIdentity(trainer), StatusChangePassword, domain.RoleTrainer},
		{"adminmaster", returningIdentity(admin), StatusAdmin, domain.RoleAdmin},
		{"unknown role", returningIdentity(coach), StatusRoleNotRecognized, ""},
		{"missing role", returningIdentity(blank), StatusRoleNotRecognized, ""},
		{"no profile", returningIdentity(primitive.NewObjectID()), StatusProfileNotProvisioned, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Resolve(ctx, accounts, tt.ident, discard)
			assert.Equal(t, tt.want, state.Status)
			assert.Equal(t, tt.role, state.Role)
			if tt.want != StatusUnauthenticated {
				assert.Equal(t, tt.ident.ID.Hex(), state.IdentityID)
			}
		})
	}
}

func TestResolveStoreFailure(t *testing.T) {
	accounts := newFakeAccounts()
	id := accounts.add(domain.RoleStudent)
	accounts.err = errors.New("connection reset")

	state := Resolve(context.Background(), accounts, returningIdentity(id), discard)
	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, msgStoreFailure, state.Message)
	assert.False(t, state.Navigator())
}

// next reads states until one that is not loading arrives.
func next(t *testing.T, ch <-chan State) State {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case s, ok := <-ch:
			require.True(t, ok, "subscription closed")
			if s.Status != StatusLoading {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for a settled state")
		}
	}
}

func TestRouterFollowsIdentityChanges(t *testing.T) {
	source := newFakeSource()
	accounts := newFakeAccounts()
	student := accounts.add(domain.RoleStudent)
	trainer := accounts.add(domain.RoleTrainer)

	router := NewRouter(source, accounts, "s1", nil, discard)
	defer router.Close()
	states, cancel := router.Subscribe()
	defer cancel()

	assert.Equal(t, StatusUnauthenticated, next(t, states).Status)

	source.emit(identity.Event{SessionID: "s1", Identity: returningIdentity(student)})
	assert.Equal(t, StatusStudent, next(t, states).Status)
	assert.Equal(t, domain.RoleStudent, router.Role())

	// Cached role does not survive a sign-out.
	source.emit(identity.Event{SessionID: "s1"})
	assert.Equal(t, StatusUnauthenticated, next(t, states).Status)
	assert.Empty(t, router.Role())

	source.emit(identity.Event{SessionID: "s1", Identity: firstLoginIdentity(trainer)})
	assert.Equal(t, StatusChangePassword, next(t, states).Status)

	source.emit(identity.Event{SessionID: "s1", Identity: returningIdentity(trainer)})
	assert.Equal(t, StatusTrainer, next(t, states).Status)
}

func TestRouterIgnoresOtherSessions(t *testing.T) {
	source := newFakeSource()
	accounts := newFakeAccounts()
	student := accounts.add(domain.RoleStudent)

	router := NewRouter(source, accounts, "mine", returningIdentity(student), discard)
	defer router.Close()
	states, cancel := router.Subscribe()
	defer cancel()
	require.Equal(t, StatusStudent, next(t, states).Status)

	source.emit(identity.Event{SessionID: "theirs"})
	assert.Equal(t, StatusStudent, router.State().Status)
}

func TestRouterHoldsLoadingWhileFetching(t *testing.T) {
	source := newFakeSource()
	accounts := newFakeAccounts()
	admin := accounts.add(domain.RoleAdmin)
	release := accounts.hold(admin)

	router := NewRouter(source, accounts, "s1", returningIdentity(admin), discard)
	defer router.Close()

	state := router.State()
	assert.Equal(t, StatusLoading, state.Status)
	assert.False(t, state.Navigator())
	assert.Empty(t, state.Role)

	states, cancel := router.Subscribe()
	defer cancel()
	release()
	assert.Equal(t, StatusAdmin, next(t, states).Status)
}

func TestRouterDropsStaleResults(t *testing.T) {
	source := newFakeSource()
	accounts := newFakeAccounts()
	slowAdmin := accounts.add(domain.RoleAdmin)
	student := accounts.add(domain.RoleStudent)
	release := accounts.hold(slowAdmin)

	router := NewRouter(source, accounts, "s1", returningIdentity(slowAdmin), discard)
	defer router.Close()
	states, cancel := router.Subscribe()
	defer cancel()

	source.emit(identity.Event{SessionID: "s1", Identity: returningIdentity(student)})
	assert.Equal(t, StatusStudent, next(t, states).Status)

	release()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusStudent, router.State().Status)
	assert.Equal(t, domain.RoleStudent, router.Role())
}

func TestRouterCloseUnsubscribes(t *testing.T) {
	source := newFakeSource()
	accounts := newFakeAccounts()
	trainer := accounts.add(domain.RoleTrainer)
	release := accounts.hold(trainer)

	router := NewRouter(source, accounts, "s1", returningIdentity(trainer), discard)
	states, _ := router.Subscribe()
	require.Equal(t, 1, source.count())

	router.Close()
	router.Close()
	release()
	assert.Equal(t, 0, source.count())

	for s := range states {
		assert.Equal(t, StatusLoading, s.Status)
	}

	late, _ := router.Subscribe()
	_, ok := <-late
	assert.False(t, ok)
}
