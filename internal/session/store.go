// Package session keeps one query controller per browser session for the
// HTTP surface.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"moviefind/internal/controller"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrTooManySessions is returned by Create when the store is full.
var ErrTooManySessions = errors.New("too many live sessions")

// Session pairs an id with its controller.
type Session struct {
	ID         string
	Controller *controller.Controller
	CreatedAt  time.Time

	lastSeen time.Time
}

// Store is a concurrency-safe registry of sessions with idle expiry.
type Store struct {
	newController func() *controller.Controller
	idleTTL       time.Duration
	maxSessions   int
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	cron *cron.Cron
}

// NewStore creates a store. newController must return an unstarted controller.
// maxSessions <= 0 disables the limit.
func NewStore(newController func() *controller.Controller, idleTTL time.Duration, maxSessions int) *Store {
	return &Store{
		newController: newController,
		idleTTL:       idleTTL,
		maxSessions:   maxSessions,
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}
}

// Create registers a session and starts its controller. It fails with
// ErrTooManySessions once maxSessions are live.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		Controller: s.newController(),
		CreatedAt:  now,
		lastSeen:   now,
	}
	s.sessions[sess.ID] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	sess.Controller.Start()
	log.Debug().Str("session", sess.ID).Int("active", count).Msg("session created")
	return sess, nil
}

// Get returns a session and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// Delete closes and removes a session.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.Controller.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Controller.Close()
	}
	if len(expired) > 0 {
		log.Info().Int("expired", len(expired)).Msg("🧹 Idle sessions closed")
	}
	return len(expired)
}

// StartSweeper schedules Sweep with a cron spec such as "@every 1m".
func (s *Store) StartSweeper(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	return nil
}

// Close stops the sweeper and closes every session.
func (s *Store) Close() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Controller.Close()
	}
}
