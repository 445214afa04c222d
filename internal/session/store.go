package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNilFactory indicates the Store was constructed without a factory.
var ErrNilFactory = errors.New("session factory is required")

// Conversation is an ongoing exchange with the AI backend. Defined here by
// the consumer; satisfied by *gemini.Session in production and by fakes in
// tests.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
}

// Factory constructs a new Conversation for a first-time (or freshly reset)
// user. In production this is Gateway.NewSession adapted to the interface.
type Factory func(ctx context.Context) (Conversation, error)

// entry is the per-user slot. The once serializes construction so that
// concurrent GetOrCreate calls for the same id observe a single instance.
type entry struct {
	once sync.Once
	conv Conversation
	err  error
}

// Store maps user identities to live conversations.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]*entry
	factory Factory
	logger  *slog.Logger
}

// New creates a Store. The factory is invoked lazily, at most once per user
// id between resets.
func New(factory Factory, logger *slog.Logger) (*Store, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[int64]*entry),
		factory: factory,
		logger:  logger,
	}, nil
}

// GetOrCreate returns the conversation for userID, constructing it through
// the factory if absent. The bool reports whether this call performed the
// construction. Concurrent callers for the same id block only on each
// other's construction, never on unrelated ids; all of them observe the
// same instance or the same construction error.
//
// A failed construction is not cached: the slot is removed so a later
// message can retry against the backend.
func (s *Store) GetOrCreate(ctx context.Context, userID int64) (Conversation, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		e, ok = s.entries[userID]
		if !ok {
			e = &entry{}
			s.entries[userID] = e
		}
		s.mu.Unlock()
	}

	created := false
	e.once.Do(func() {
		created = true
		s.logger.Info("creating new chat session", "user_id", userID)
		e.conv, e.err = s.factory(ctx)
	})

	if e.err != nil {
		// Drop the failed slot, but only if it is still ours — a concurrent
		// evict-and-recreate may have replaced it already.
		s.mu.Lock()
		if s.entries[userID] == e {
			delete(s.entries, userID)
		}
		s.mu.Unlock()
		return nil, false, e.err
	}

	return e.conv, created, nil
}

// Evict removes the conversation for userID, reporting whether one existed.
// Evicting an absent session is not an error.
func (s *Store) Evict(userID int64) bool {
	s.mu.Lock()
	_, existed := s.entries[userID]
	delete(s.entries, userID)
	s.mu.Unlock()

	if existed {
		s.logger.Info("evicted chat session", "user_id", userID)
	}
	return existed
}

// Len returns the number of live conversations. Sessions are never evicted
// automatically, so this grows with the number of distinct users seen.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
