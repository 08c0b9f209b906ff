package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/vehicle"
)

const (
	DefaultMaxSessions = 1000
	DefaultIdleTTL     = time.Hour
)

var ErrUnknownSession = errors.New("unknown session")

// StoreOption tunes a Store.
type StoreOption func(*Store)

// WithMaxSessions caps the live sessions. Creating one past the cap evicts
// the least recently used. Values below 1 keep the default.
func WithMaxSessions(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithIdleTTL drops sessions not touched for d. Values below 1 keep the default.
func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.idleTTL = d
		}
	}
}

type entry struct {
	controller *Controller
	lastSeen   time.Time
}

// Store keeps live sessions in memory. Nothing is persisted.
type Store struct {
	inventory   *vehicle.Vehicles
	ranker      Ranker
	logger      *zap.Logger
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewStore(inv *vehicle.Vehicles, ranker Ranker, log *zap.Logger, opts ...StoreOption) *Store {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		inventory:   inv,
		ranker:      ranker,
		logger:      log,
		maxSessions: DefaultMaxSessions,
		idleTTL:     DefaultIdleTTL,
		now:         time.Now,
		sessions:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new session and registers it.
func (s *Store) Create() *Controller {
	c := New(s.inventory, s.ranker, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	for len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}
	s.sessions[c.ID()] = &entry{controller: c, lastSeen: now}

	return c
}

// Get returns a live session and marks it as used.
func (s *Store) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	now := s.now()
	if now.Sub(e.lastSeen) > s.idleTTL {
		delete(s.sessions, id)
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	e.lastSeen = now

	return e.controller, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	delete(s.sessions, id)
	return nil
}

// Len counts the live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	return len(s.sessions)
}

func (s *Store) expireLocked(now time.Time) {
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.idleTTL {
			delete(s.sessions, id)
			s.logger.Debug("session expired", zap.String(logger.FieldSessionID, id))
		}
	}
}

func (s *Store) evictOldestLocked() {
	var oldest string
	var seen time.Time
	for id, e := range s.sessions {
		if oldest == "" || e.lastSeen.Before(seen) {
			oldest, seen = id, e.lastSeen
		}
	}
	delete(s.sessions, oldest)
	s.logger.Debug("session evicted", zap.String(logger.FieldSessionID, oldest))
}
