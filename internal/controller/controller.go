// Package controller implements the movie query controller: it owns the
// listing state, debounces search input, and turns input events into
// provider requests whose responses are applied only while still current.
package controller

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"moviefind/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDebounce = 500 * time.Millisecond
	MinPage         = 1
	DefaultMaxPage  = 100

	// FetchErrorMessage is the only failure text the presentation sees.
	FetchErrorMessage = "Failed to fetch movies. Please try again later."
)

// Provider is the movie metadata API as seen by the controller.
type Provider interface {
	Discover(ctx context.Context, page int) ([]model.MovieSummary, error)
	Trending(ctx context.Context) ([]model.MovieSummary, error)
	Search(ctx context.Context, query string) ([]model.MovieSummary, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the search debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) { c.debounce = d }
}

// WithMaxPage sets the highest browsable page.
func WithMaxPage(n int) Option {
	return func(c *Controller) { c.maxPage = n }
}

// WithOnChange registers a callback invoked with a snapshot after every
// state change. It is called outside the controller lock, possibly from
// several goroutines; use QueryState.Version to order snapshots.
func WithOnChange(fn func(model.QueryState)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

type slotKind int

const (
	slotResults slotKind = iota
	slotTrending
)

func (k slotKind) String() string {
	if k == slotTrending {
		return "trending"
	}
	return "results"
}

// slot tracks the newest request issued for one result list.
type slot struct {
	seq     uint64
	loading bool
	cancel  context.CancelFunc
}

type fetchFunc func(ctx context.Context) ([]model.MovieSummary, error)

// Controller owns one QueryState. All methods are safe for concurrent use.
type Controller struct {
	provider Provider
	debounce time.Duration
	maxPage  int
	onChange func(model.QueryState)
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	raw         string
	debounced   string
	mode        mode
	timer       *time.Timer
	debounceGen uint64
	results     []model.MovieSummary
	trending    []model.MovieSummary
	errMsg      string
	slots       [2]slot
	version     uint64
	started     bool
	closed      bool
}

// New creates a controller in Browsing{page 1}. Call Start to issue the
// initial requests.
func New(provider Provider, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		provider: provider,
		debounce: DefaultDebounce,
		maxPage:  DefaultMaxPage,
		log:      log.Logger,
		ctx:      ctx,
		cancel:   cancel,
		mode:     browsing{page: MinPage},
		results:  []model.MovieSummary{},
		trending: []model.MovieSummary{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start issues the trending request and the first browse page concurrently.
// Subsequent calls are no-ops.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.issueTrending()
	c.issueResults()
	snap := c.changed()
	c.mu.Unlock()

	c.notify(snap)
}

// SetSearchText records the raw text immediately and re-arms the debounce
// timer. Only the value that survives the window is fetched.
func (c *Controller) SetSearchText(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.raw = text
	if c.timer != nil {
		c.timer.Stop()
	}
	c.debounceGen++
	gen := c.debounceGen
	c.timer = time.AfterFunc(c.debounce, func() { c.settle(gen, text) })
	snap := c.changed()
	c.mu.Unlock()

	c.notify(snap)
}

// settle runs when the debounce timer fires uncancelled.
func (c *Controller) settle(gen uint64, text string) {
	c.mu.Lock()
	if c.closed || gen != c.debounceGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if text == c.debounced {
		c.mu.Unlock()
		return
	}
	c.debounced = text
	next := c.mode.withQuery(strings.TrimSpace(text))
	if next != c.mode {
		c.mode = next
		c.issueResults()
	}
	snap := c.changed()
	c.mu.Unlock()

	c.notify(snap)
}

// SetPage moves the browse page by delta, clamped to [1, maxPage]. It
// reports whether a request was issued; it does nothing while searching or
// when the clamped page equals the current one.
func (c *Controller) SetPage(delta int) bool {
	c.mu.Lock()
	b, ok := c.mode.(browsing)
	if c.closed || !ok {
		c.mu.Unlock()
		return false
	}
	target := min(max(b.page+delta, MinPage), c.maxPage)
	if target == b.page {
		c.mu.Unlock()
		return false
	}
	c.mode = browsing{page: target}
	c.issueResults()
	snap := c.changed()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

// Refresh re-issues the current results request, and the trending request
// when the trending list is empty and idle. It is the recovery path after a
// failure.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	if len(c.trending) == 0 && !c.slots[slotTrending].loading {
		c.issueTrending()
	}
	c.issueResults()
	snap := c.changed()
	c.mu.Unlock()

	c.notify(snap)
}

// State returns a snapshot of the current state.
func (c *Controller) State() model.QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Close stops the debounce timer and abandons in-flight requests. The
// controller ignores all input afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.cancel()
}

// issueResults starts the request for the current mode. Caller holds mu.
func (c *Controller) issueResults() {
	var fetch fetchFunc
	switch m := c.mode.(type) {
	case searching:
		query := m.query
		fetch = func(ctx context.Context) ([]model.MovieSummary, error) {
			return c.provider.Search(ctx, query)
		}
	case browsing:
		page := m.page
		fetch = func(ctx context.Context) ([]model.MovieSummary, error) {
			return c.provider.Discover(ctx, page)
		}
	}
	c.errMsg = ""
	c.issue(slotResults, fetch)
}

// issueTrending starts the trending request. Caller holds mu.
func (c *Controller) issueTrending() {
	c.issue(slotTrending, c.provider.Trending)
}

// issue supersedes whatever the slot had in flight. Caller holds mu.
func (c *Controller) issue(kind slotKind, fetch fetchFunc) {
	s := &c.slots[kind]
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	ctx, cancel := context.WithCancel(c.ctx)
	s.cancel = cancel
	s.loading = true

	go func() {
		movies, err := fetch(ctx)
		c.apply(kind, seq, movies, err)
	}()
}

// apply installs a response if it belongs to the newest request of its slot.
func (c *Controller) apply(kind slotKind, seq uint64, movies []model.MovieSummary, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	s := &c.slots[kind]
	if seq != s.seq {
		c.mu.Unlock()
		c.log.Debug().
			Stringer("slot", kind).
			Uint64("seq", seq).
			Uint64("latest", s.seq).
			Msg("discarding stale response")
		return
	}
	s.cancel()
	s.cancel = nil
	s.loading = false

	if movies == nil {
		movies = []model.MovieSummary{}
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Error().Err(err).Stringer("slot", kind).Msg("Error fetching movies")
		}
		movies = []model.MovieSummary{}
		c.errMsg = FetchErrorMessage
	}
	if kind == slotTrending {
		c.trending = movies
	} else {
		c.results = movies
	}
	snap := c.changed()
	c.mu.Unlock()

	c.notify(snap)
}

// changed bumps the version and returns a snapshot. Caller holds mu.
func (c *Controller) changed() model.QueryState {
	c.version++
	return c.snapshot()
}

func (c *Controller) snapshot() model.QueryState {
	st := model.QueryState{
		RawSearchText:       c.raw,
		DebouncedSearchText: c.debounced,
		IsLoading:           c.slots[slotResults].loading,
		TrendingLoading:     c.slots[slotTrending].loading,
		ErrorMessage:        c.errMsg,
		Results:             slices.Clone(c.results),
		Trending:            slices.Clone(c.trending),
		Version:             c.version,
	}
	switch m := c.mode.(type) {
	case browsing:
		st.Mode = model.ModeBrowsing
		st.Page = m.page
	case searching:
		st.Mode = model.ModeSearching
		st.Page = m.resumePage
	}
	return st
}

func (c *Controller) notify(st model.QueryState) {
	if c.onChange != nil {
		c.onChange(st)
	}
}
