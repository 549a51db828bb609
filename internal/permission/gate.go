// Package permission implements the approval gate that suspends
// sensitive tool executions until an external actor decides.
//
// Each session owns a set of pending requests and a set of remembered
// "always" approvals. Ask blocks the calling goroutine on a completion
// channel; Respond releases it from outside the loop's call stack. One
// "always" decision releases every pending request in the session whose
// match keys it covers.
package permission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Response is an external decision on a pending request.
type Response string

const (
	// ResponseOnce approves the single pending request.
	ResponseOnce Response = "once"
	// ResponseAlways approves the request and remembers its match keys
	// for the rest of the session.
	ResponseAlways Response = "always"
	// ResponseReject denies the request.
	ResponseReject Response = "reject"
)

// Info describes one permission request as shown to observers.
type Info struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Patterns  []string       `json:"patterns,omitempty"`
	SessionID string         `json:"session_id"`
	MessageID string         `json:"message_id,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Request is the input to Ask. When Patterns is empty the request's
// Type is used as its own matching key.
type Request struct {
	Type      string
	Title     string
	Patterns  []string
	SessionID string
	MessageID string
	CallID    string
	Metadata  map[string]any
}

func (r Request) matchKeys() []string {
	if len(r.Patterns) > 0 {
		return r.Patterns
	}
	return []string{r.Type}
}

// Observer is notified when a request needs an external decision.
// Notifications happen outside the gate's lock; implementations may
// call back into the gate (e.g. Respond) freely.
type Observer interface {
	PermissionRequested(info Info)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(info Info)

// PermissionRequested implements Observer.
func (f ObserverFunc) PermissionRequested(info Info) { f(info) }

type pendingEntry struct {
	info Info
	keys []string
	// done receives exactly one value: nil on approval, *RejectedError
	// on denial. Buffered so the decider never blocks.
	done chan error
}

type sessionState struct {
	pending  map[string]*pendingEntry
	approved map[string]bool
}

// Gate tracks pending requests and remembered approvals per session.
// All methods are safe for concurrent use; every mutation of a
// session's state is applied atomically under the gate's lock.
type Gate struct {
	mu        sync.Mutex
	sessions  map[string]*sessionState
	observers []Observer
	logger    *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the gate's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates an empty permission gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		sessions: make(map[string]*sessionState),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscribe registers an observer for future permission requests.
func (g *Gate) Subscribe(obs Observer) {
	if obs == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, obs)
}

func (g *Gate) session(sessionID string) *sessionState {
	s, ok := g.sessions[sessionID]
	if !ok {
		s = &sessionState{
			pending:  make(map[string]*pendingEntry),
			approved: make(map[string]bool),
		}
		g.sessions[sessionID] = s
	}
	return s
}

// Ask requests permission for an operation and blocks until it is
// granted, denied, or the context is cancelled. Requests whose match
// keys are all covered by a prior "always" decision resolve
// immediately without a pending entry or observer notification.
//
// A denial returns *RejectedError; callers should treat it as "tool
// declined", not as a crash.
func (g *Gate) Ask(ctx context.Context, req Request) error {
	keys := req.matchKeys()

	g.mu.Lock()
	s := g.session(req.SessionID)
	if coveredAll(s.approved, keys) {
		g.mu.Unlock()
		return nil
	}

	entry := &pendingEntry{
		info: Info{
			ID:        uuid.NewString(),
			Type:      req.Type,
			Title:     req.Title,
			Patterns:  req.Patterns,
			SessionID: req.SessionID,
			MessageID: req.MessageID,
			CallID:    req.CallID,
			Metadata:  req.Metadata,
			CreatedAt: time.Now(),
		},
		keys: keys,
		done: make(chan error, 1),
	}
	s.pending[entry.info.ID] = entry
	observers := make([]Observer, len(g.observers))
	copy(observers, g.observers)
	g.mu.Unlock()

	g.logger.Debug("permission requested",
		"permission_id", entry.info.ID,
		"type", req.Type,
		"session_id", req.SessionID,
	)
	for _, obs := range observers {
		obs.PermissionRequested(entry.info)
	}

	select {
	case err := <-entry.done:
		return err
	case <-ctx.Done():
		g.dropPending(req.SessionID, entry.info.ID)
		return ctx.Err()
	}
}

// dropPending removes an entry abandoned by a cancelled Ask. A
// decision that raced the cancellation has already removed it; that is
// fine either way.
func (g *Gate) dropPending(sessionID, permissionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[sessionID]; ok {
		delete(s.pending, permissionID)
	}
}

// Respond delivers an external decision for a pending request. It
// returns false when no matching entry exists; stale or duplicate
// responses are tolerated silently.
//
// ResponseAlways also remembers the request's match keys and releases
// every other pending request in the session that the enlarged
// approved set now covers.
func (g *Gate) Respond(sessionID, permissionID string, response Response) bool {
	g.mu.Lock()
	s, ok := g.sessions[sessionID]
	if !ok {
		g.mu.Unlock()
		return false
	}
	entry, ok := s.pending[permissionID]
	if !ok {
		g.mu.Unlock()
		return false
	}
	delete(s.pending, permissionID)

	var released []*pendingEntry
	switch response {
	case ResponseAlways:
		for _, k := range entry.keys {
			s.approved[k] = true
		}
		for id, other := range s.pending {
			if coveredAll(s.approved, other.keys) {
				delete(s.pending, id)
				released = append(released, other)
			}
		}
		fallthrough
	case ResponseOnce:
		entry.done <- nil
	case ResponseReject:
		entry.done <- &RejectedError{
			SessionID:    sessionID,
			PermissionID: permissionID,
			CallID:       entry.info.CallID,
			Metadata:     entry.info.Metadata,
		}
	default:
		// Unknown responses are treated as a rejection rather than
		// leaving the caller suspended forever.
		entry.done <- &RejectedError{
			SessionID:    sessionID,
			PermissionID: permissionID,
			CallID:       entry.info.CallID,
			Metadata:     entry.info.Metadata,
			Reason:       "unrecognized response: " + string(response),
		}
	}
	g.mu.Unlock()

	for _, other := range released {
		other.done <- nil
	}

	g.logger.Debug("permission decided",
		"permission_id", permissionID,
		"session_id", sessionID,
		"response", string(response),
		"cascade_released", len(released),
	)
	return true
}

// Pending returns a snapshot of all pending request infos for a
// session, for observers that (re)connect after requests were issued.
func (g *Gate) Pending(sessionID string) []Info {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[sessionID]
	if !ok {
		return nil
	}
	infos := make([]Info, 0, len(s.pending))
	for _, entry := range s.pending {
		infos = append(infos, entry.info)
	}
	return infos
}

// Approved reports whether every given key is already covered by the
// session's remembered approvals.
func (g *Gate) Approved(sessionID string, keys ...string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[sessionID]
	if !ok {
		return false
	}
	return coveredAll(s.approved, keys)
}

// ClearSession rejects every pending request in the session and
// discards its state, remembered approvals included. Used when the
// delegation or its parent conversation is aborted.
func (g *Gate) ClearSession(sessionID string) {
	g.mu.Lock()
	s, ok := g.sessions[sessionID]
	if !ok {
		g.mu.Unlock()
		return
	}
	delete(g.sessions, sessionID)
	pending := make([]*pendingEntry, 0, len(s.pending))
	for _, entry := range s.pending {
		pending = append(pending, entry)
	}
	g.mu.Unlock()

	for _, entry := range pending {
		entry.done <- &RejectedError{
			SessionID:    sessionID,
			PermissionID: entry.info.ID,
			CallID:       entry.info.CallID,
			Metadata:     entry.info.Metadata,
			Reason:       "session cleared",
		}
	}
	if len(pending) > 0 {
		g.logger.Debug("session cleared",
			"session_id", sessionID,
			"rejected_pending", len(pending),
		)
	}
}
