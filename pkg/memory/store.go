// Package memory keeps short-term conversation history per session.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/model"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
)

// MaxTurns is the number of turns kept per session. Older turns are dropped first.
const MaxTurns = 10

// Session is a read-only copy of a session history
type Session struct {
	ID    string
	Turns []model.Turn
}

// Last returns up to n most recent turns in order
func (s Session) Last(n int) []model.Turn {
	if n <= 0 || n >= len(s.Turns) {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

type entry struct {
	mu       sync.Mutex
	turns    []model.Turn
	lastUsed time.Time
	// retired is set under mu once the entry has left the map. Writers
	// holding a stale pointer must look the session up again.
	retired bool
}

// Store owns every session history. It is the only writer of turns.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	idleTTL  time.Duration
	archiver Archiver
	now      func() time.Time
	closed   bool
}

type Option func(*Store)

// WithIdleTTL evicts sessions that have not been used for ttl when the janitor runs
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.idleTTL = ttl
	}
}

// WithArchiver sends the transcript of every evicted or closed session to the given Archiver
func WithArchiver(a Archiver) Option {
	return func(s *Store) {
		s.archiver = a
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

var ErrClosed = goerr.New("memory store is closed")

func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup returns the entry of sessionID, creating it on first access. The store
// lock is held only for the map access so distinct sessions never wait on each other.
// It returns nil once the store is closed.
func (s *Store) lookup(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	closed := s.closed
	s.mu.RUnlock()
	if ok || closed {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if e, ok := s.sessions[sessionID]; ok {
		return e
	}
	e = &entry{lastUsed: s.now()}
	s.sessions[sessionID] = e
	return e
}

// Get returns a copy of the session history, creating an empty one on first access.
// After Close it returns an empty history without creating a session.
func (s *Store) Get(sessionID string) Session {
	e := s.lookup(sessionID)
	if e == nil {
		return Session{ID: sessionID, Turns: []model.Turn{}}
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	turns := make([]model.Turn, len(e.turns))
	copy(turns, e.turns)
	return Session{ID: sessionID, Turns: turns}
}

// Add appends a turn and truncates the history to the last MaxTurns
func (s *Store) Add(sessionID string, role model.Role, text string) error {
	if err := role.Validate(); err != nil {
		return err
	}

	for {
		e := s.lookup(sessionID)
		if e == nil {
			return goerr.Wrap(ErrClosed, "cannot add turn", goerr.V("session_id", sessionID))
		}

		e.mu.Lock()
		if e.retired {
			// Evicted or closed between lookup and lock
			e.mu.Unlock()
			continue
		}
		e.append(model.Turn{Role: role, Text: text}, s.now())
		e.mu.Unlock()
		return nil
	}
}

// append must be called with e.mu held
func (e *entry) append(turn model.Turn, now time.Time) {
	e.turns = append(e.turns, turn)
	if len(e.turns) > MaxTurns {
		kept := make([]model.Turn, MaxTurns)
		copy(kept, e.turns[len(e.turns)-MaxTurns:])
		e.turns = kept
	}
	e.lastUsed = now
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle removes sessions idle for longer than the configured TTL and
// archives them. It returns the number of evicted sessions.
func (s *Store) EvictIdle(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}

	deadline := s.now().Add(-s.idleTTL)
	var evicted []Session

	s.mu.Lock()
	for id, e := range s.sessions {
		e.mu.Lock()
		if e.lastUsed.Before(deadline) {
			evicted = append(evicted, Session{ID: id, Turns: e.turns})
			e.retired = true
			delete(s.sessions, id)
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	s.archive(ctx, evicted)
	return len(evicted)
}

// StartJanitor runs EvictIdle every interval until ctx is done
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if s.idleTTL <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.EvictIdle(ctx); n > 0 {
					logging.From(ctx).Debug("evicted idle sessions", "count", n)
				}
			}
		}
	}()
}

// Close archives every remaining session and refuses further writes
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	remaining := make([]Session, 0, len(s.sessions))
	for id, e := range s.sessions {
		e.mu.Lock()
		remaining = append(remaining, Session{ID: id, Turns: e.turns})
		e.retired = true
		e.mu.Unlock()
	}
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	return s.archive(ctx, remaining)
}

func (s *Store) archive(ctx context.Context, sessions []Session) error {
	if s.archiver == nil {
		return nil
	}

	var errs []error
	for _, sess := range sessions {
		if len(sess.Turns) == 0 {
			continue
		}
		if err := s.archiver.Archive(ctx, sess); err != nil {
			logging.From(ctx).Warn("failed to archive session", "session_id", sess.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
