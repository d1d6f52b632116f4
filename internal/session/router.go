package session

import (
	"context"
	"log/slog"
	"sync"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/identity"
)

// IdentitySource delivers identity changes.
type IdentitySource interface {
	OnIdentityChange(handler func(identity.Event)) (unsubscribe func())
}

// Router re-resolves one session's state on every identity change of that
// session and publishes the result to its subscribers.
type Router struct {
	accounts  AccountReader
	sessionID string
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	role        domain.Role // cached from the last resolved account
	generation  uint64
	closed      bool
	nextSub     int
	subscribers map[int]chan State
	unsubscribe func()
}

// NewRouter starts routing sessionID from its current identity (nil when signed out).
func NewRouter(source IdentitySource, accounts AccountReader, sessionID string, current *identity.Identity, logger *slog.Logger) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		accounts:    accounts,
		sessionID:   sessionID,
		logger:      logger.With("component", "session-router", "sessionId", sessionID),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: make(map[int]chan State),
	}
	r.unsubscribe = source.OnIdentityChange(r.handle)
	r.apply(current)
	return r
}

func (r *Router) handle(ev identity.Event) {
	if ev.SessionID != r.sessionID {
		return
	}
	r.apply(ev.Identity)
}

func (r *Router) apply(ident *identity.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.generation++

	if ident == nil {
		r.role = ""
		r.publish(State{Status: StatusUnauthenticated})
		return
	}

	r.publish(State{Status: StatusLoading, IdentityID: ident.ID.Hex()})
	gen := r.generation
	snapshot := *ident
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		state := Resolve(r.ctx, r.accounts, &snapshot, r.logger)
		r.settle(gen, state)
	}()
}

// settle publishes a resolved state unless a newer identity change superseded it.
func (r *Router) settle(gen uint64, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.generation {
		return
	}
	r.role = state.Role
	r.publish(state)
}

// publish must be called with r.mu held. Slow subscribers only see the latest state.
func (r *Router) publish(state State) {
	r.state = state
	for _, ch := range r.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}

// State returns the current state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Role returns the role cached from the last resolved account; empty after sign-out.
func (r *Router) Role() domain.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.role
}

// Subscribe returns a channel that receives the current state and every later
// one. It is closed by the returned cancel func or by Close.
func (r *Router) Subscribe() (<-chan State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan State, 1)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = ch
	ch <- r.state

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(c)
		}
	}
}

// Close stops listening for identity changes, abandons pending fetches and
// closes every subscriber channel.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.cancel()
	for id, ch := range r.subscribers {
		delete(r.subscribers, id)
		close(ch)
	}
	r.mu.Unlock()

	r.unsubscribe()
	r.wg.Wait()
}
