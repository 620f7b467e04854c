// Package session tracks the caller's identity state and fans out
// transitions to everything that depends on the active storage mode.
package session

import (
	"sync"

	"github.com/daymark/core/internal/bridge"
	"github.com/daymark/core/internal/infrastructure/logger"
)

// Session is the current identity: nil means guest.
type Session struct {
	UID   string
	Email string
}

// Listener is invoked synchronously on every session transition. A nil
// session means signed out.
type Listener func(*Session)

// Source holds the current session and notifies registered consumers of
// every transition. On each transition it also posts one AUTH_STATE_CHANGE
// event to the host bridge.
type Source struct {
	mu        sync.Mutex
	current   *Session
	loading   bool
	listeners map[int]Listener
	nextID    int

	bridge bridge.Poster
	logger *logger.Logger
}

// NewSource creates a session source. It starts in the loading state with
// no session; Resolve marks the initial resolution complete.
func NewSource(poster bridge.Poster, log *logger.Logger) *Source {
	return &Source{
		loading:   true,
		listeners: make(map[int]Listener),
		bridge:    poster,
		logger:    log.WithComponent("session"),
	}
}

// Current returns the active session, or nil for guest.
func (s *Source) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Loading reports whether the initial session resolution is still pending.
func (s *Source) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// OnChange registers a listener and returns a function that removes it.
// The listener is NOT invoked with the current state at registration; the
// facade reads Current directly when it attaches.
func (s *Source) OnChange(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Resolve completes the initial session resolution with the given state
// and notifies consumers. Identity providers call this once at startup.
func (s *Source) Resolve(sess *Session) {
	s.transition(sess, true)
}

// SignIn transitions to an authenticated session.
func (s *Source) SignIn(uid, email string) {
	s.transition(&Session{UID: uid, Email: email}, false)
}

// SignOut transitions to guest.
func (s *Source) SignOut() {
	s.transition(nil, false)
}

func (s *Source) transition(sess *Session, resolving bool) {
	s.mu.Lock()
	if resolving && !s.loading {
		// Already resolved; treat as a normal transition.
		resolving = false
	}
	s.current = sess
	s.loading = false
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	if sess != nil {
		s.logger.Infow("Session established", "uid", sess.UID, "resolving", resolving)
	} else {
		s.logger.Infow("Session cleared", "resolving", resolving)
	}

	// Listeners run synchronously so the facade has re-subscribed to the
	// right adapter before the transition's caller observes completion.
	for _, fn := range fns {
		fn(sess)
	}

	s.postAuthState(sess)
}

func (s *Source) postAuthState(sess *Session) {
	if s.bridge == nil {
		return
	}
	payload := bridge.AuthStatePayload{}
	if sess != nil {
		payload.IsAuthenticated = true
		payload.UID = sess.UID
		payload.Email = sess.Email
	}
	s.bridge.Post(bridge.Message{Type: bridge.TypeAuthStateChange, Payload: payload})
}
