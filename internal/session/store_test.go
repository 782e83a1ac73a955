package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviefind/internal/controller"
	"moviefind/internal/model"
)

type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Discover(context.Context, int) ([]model.MovieSummary, error) {
	p.calls.Add(1)
	return nil, nil
}

func (p *countingProvider) Trending(context.Context) ([]model.MovieSummary, error) {
	p.calls.Add(1)
	return nil, nil
}

func (p *countingProvider) Search(context.Context, string) ([]model.MovieSummary, error) {
	p.calls.Add(1)
	return nil, nil
}

func newTestStore(p controller.Provider, ttl time.Duration) *Store {
	return newLimitedStore(p, ttl, 0)
}

func newLimitedStore(p controller.Provider, ttl time.Duration, max int) *Store {
	return NewStore(func() *controller.Controller {
		return controller.New(p, controller.WithDebounce(10*time.Millisecond))
	}, ttl, max)
}

func mustCreate(t *testing.T, s *Store) *Session {
	t.Helper()
	sess, err := s.Create()
	require.NoError(t, err)
	return sess
}

func TestCreateStartsController(t *testing.T) {
	p := &countingProvider{}
	s := newTestStore(p, time.Minute)
	defer s.Close()

	sess := mustCreate(t, s)
	require.NotEmpty(t, sess.ID)

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, s.Len())

	require.Eventually(t, func() bool { return p.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDelete(t *testing.T) {
	s := newTestStore(&countingProvider{}, time.Minute)
	defer s.Close()

	sess := mustCreate(t, s)
	assert.True(t, s.Delete(sess.ID))
	assert.False(t, s.Delete(sess.ID))

	_, ok := s.Get(sess.ID)
	assert.False(t, ok)
	assert.False(t, sess.Controller.SetPage(1), "closed controller ignores input")
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	s := newTestStore(&countingProvider{}, 10*time.Minute)
	defer s.Close()

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle := mustCreate(t, s)
	active := mustCreate(t, s)

	now = now.Add(8 * time.Minute)
	_, ok := s.Get(active.ID)
	require.True(t, ok)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, s.Sweep())

	_, ok = s.Get(idle.ID)
	assert.False(t, ok)
	_, ok = s.Get(active.ID)
	assert.True(t, ok)
}

func TestStartSweeperRejectsBadSpec(t *testing.T) {
	s := newTestStore(&countingProvider{}, time.Minute)
	defer s.Close()

	assert.Error(t, s.StartSweeper("every now and then"))
	assert.NoError(t, s.StartSweeper("@every 1m"))
}

func TestCreateRespectsLimit(t *testing.T) {
	p := &countingProvider{}
	s := newLimitedStore(p, time.Minute, 2)
	defer s.Close()

	first := mustCreate(t, s)
	mustCreate(t, s)

	sess, err := s.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Nil(t, sess)
	assert.Equal(t, 2, s.Len())

	// a freed slot can be reused
	require.True(t, s.Delete(first.ID))
	mustCreate(t, s)
	assert.Equal(t, 2, s.Len())
}
