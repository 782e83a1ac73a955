package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviefind/internal/model"
)

const (
	testDebounce = 30 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

// fakeProvider records calls and answers with one movie titled after the
// call. Gated calls block until released and ignore cancellation, so stale
// responses really do arrive late.
type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan struct{}
	fails map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		gates: map[string]chan struct{}{},
		fails: map[string]error{},
	}
}

func (f *fakeProvider) gate(call string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[call] = ch
	return ch
}

func (f *fakeProvider) fail(call string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[call] = err
}

func (f *fakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeProvider) answer(call string) ([]model.MovieSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate := f.gates[call]
	err := f.fails[call]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return []model.MovieSummary{{ID: len(call), Title: call}}, nil
}

func (f *fakeProvider) Discover(_ context.Context, page int) ([]model.MovieSummary, error) {
	return f.answer(fmt.Sprintf("discover:%d", page))
}

func (f *fakeProvider) Trending(context.Context) ([]model.MovieSummary, error) {
	return f.answer("trending")
}

func (f *fakeProvider) Search(_ context.Context, query string) ([]model.MovieSummary, error) {
	return f.answer("search:" + query)
}

func newTestController(t *testing.T, p Provider, opts ...Option) *Controller {
	t.Helper()
	c := New(p, append([]Option{WithDebounce(testDebounce)}, opts...)...)
	t.Cleanup(c.Close)
	return c
}

func settled(c *Controller) func() bool {
	return func() bool {
		st := c.State()
		return !st.IsLoading && !st.TrendingLoading
	}
}

func titles(movies []model.MovieSummary) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.Title)
	}
	return out
}

func TestStartIssuesTrendingAndFirstPage(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p)

	st := c.State()
	assert.Equal(t, 1, st.Page)
	assert.Equal(t, model.ModeBrowsing, st.Mode)
	assert.False(t, st.IsLoading)

	c.Start()
	c.Start()

	require.Eventually(t, settled(c), waitFor, tick)
	assert.ElementsMatch(t, []string{"trending", "discover:1"}, p.Calls())

	st = c.State()
	assert.Equal(t, []string{"discover:1"}, titles(st.Results))
	assert.Equal(t, []string{"trending"}, titles(st.Trending))
	assert.Empty(t, st.ErrorMessage)
}

func TestLoadingFlagTracksResultsRequest(t *testing.T) {
	p := newFakeProvider()
	release := p.gate("discover:1")
	c := newTestController(t, p)

	c.Start()
	require.Eventually(t, func() bool { return !c.State().TrendingLoading }, waitFor, tick)
	assert.True(t, c.State().IsLoading)

	close(release)
	require.Eventually(t, func() bool { return !c.State().IsLoading }, waitFor, tick)
}

func TestDebounceCollapsesBurst(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p)

	c.SetSearchText("b")
	c.SetSearchText("bat")
	c.SetSearchText("batman")

	st := c.State()
	assert.Equal(t, "batman", st.RawSearchText)
	assert.Empty(t, st.DebouncedSearchText)

	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, waitFor, tick)
	time.Sleep(3 * testDebounce)

	assert.Equal(t, []string{"search:batman"}, p.Calls())
	require.Eventually(t, settled(c), waitFor, tick)
	st = c.State()
	assert.Equal(t, "batman", st.DebouncedSearchText)
	assert.Equal(t, model.ModeSearching, st.Mode)
	assert.Equal(t, []string{"search:batman"}, titles(st.Results))
}

func TestSameDebouncedTextDoesNotRefetch(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p)

	c.SetSearchText("alien")
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, waitFor, tick)

	c.SetSearchText("aliens")
	c.SetSearchText("alien")
	time.Sleep(3 * testDebounce)

	assert.Equal(t, []string{"search:alien"}, p.Calls())
}

func TestPaginationClampsToRange(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p, WithMaxPage(3))

	assert.False(t, c.SetPage(-1), "page 0 is out of range")
	assert.True(t, c.SetPage(1))
	assert.True(t, c.SetPage(1))
	assert.False(t, c.SetPage(1), "page 4 is out of range")
	assert.Equal(t, 3, c.State().Page)

	assert.True(t, c.SetPage(-10))
	assert.Equal(t, 1, c.State().Page)

	require.Eventually(t, settled(c), waitFor, tick)
	assert.ElementsMatch(t, []string{"discover:2", "discover:3", "discover:1"}, p.Calls())
	for _, call := range p.Calls() {
		var page int
		_, err := fmt.Sscanf(call, "discover:%d", &page)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, page, MinPage)
		assert.LessOrEqual(t, page, 3)
	}
}

func TestPaginationIgnoredWhileSearching(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p)

	require.True(t, c.SetPage(1))
	c.SetSearchText("heat")
	require.Eventually(t, func() bool { return c.State().Mode == model.ModeSearching }, waitFor, tick)

	assert.False(t, c.SetPage(1))
	assert.False(t, c.SetPage(-1))

	require.Eventually(t, settled(c), waitFor, tick)
	assert.Equal(t, []string{"discover:2", "search:heat"}, p.Calls())
}

func TestClearingSearchResumesBrowsePage(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p)

	require.True(t, c.SetPage(4))
	c.SetSearchText("heat")
	require.Eventually(t, func() bool { return c.State().Mode == model.ModeSearching }, waitFor, tick)

	c.SetSearchText("   ")
	require.Eventually(t, func() bool { return c.State().Mode == model.ModeBrowsing }, waitFor, tick)
	require.Eventually(t, settled(c), waitFor, tick)

	assert.Equal(t, 5, c.State().Page)
	assert.Equal(t, []string{"discover:5", "search:heat", "discover:5"}, p.Calls())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	p := newFakeProvider()
	slow := p.gate("discover:2")
	c := newTestController(t, p)

	require.True(t, c.SetPage(1))
	require.Eventually(t, func() bool { return len(p.Calls()) == 1 }, waitFor, tick)
	require.True(t, c.SetPage(1))

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"discover:3"}, titles(c.State().Results))
	}, waitFor, tick)

	close(slow)
	time.Sleep(3 * testDebounce)

	st := c.State()
	assert.Equal(t, []string{"discover:3"}, titles(st.Results))
	assert.False(t, st.IsLoading)
}

func TestProviderFailureClearsList(t *testing.T) {
	p := newFakeProvider()
	c := newTestController(t, p)

	c.Start()
	require.Eventually(t, settled(c), waitFor, tick)
	require.NotEmpty(t, c.State().Results)

	p.fail("discover:2", errors.New("HTTP 500"))
	require.True(t, c.SetPage(1))
	require.Eventually(t, settled(c), waitFor, tick)

	st := c.State()
	assert.Empty(t, st.Results)
	assert.NotNil(t, st.Results)
	assert.Equal(t, FetchErrorMessage, st.ErrorMessage)
	assert.False(t, st.IsLoading)
	assert.NotEmpty(t, st.Trending, "trending is untouched by a results failure")
}

func TestTrendingFailureClearsTrending(t *testing.T) {
	p := newFakeProvider()
	release := p.gate("discover:1")
	p.fail("trending", errors.New("boom"))
	c := newTestController(t, p)

	c.Start()
	require.Eventually(t, func() bool { return !c.State().TrendingLoading }, waitFor, tick)

	st := c.State()
	assert.Empty(t, st.Trending)
	assert.Equal(t, FetchErrorMessage, st.ErrorMessage)
	close(release)
}

func TestRefreshRecovers(t *testing.T) {
	p := newFakeProvider()
	p.fail("discover:1", errors.New("down"))
	c := newTestController(t, p)

	c.Start()
	require.Eventually(t, settled(c), waitFor, tick)
	require.Equal(t, FetchErrorMessage, c.State().ErrorMessage)

	p.fail("discover:1", nil)
	c.Refresh()
	require.Eventually(t, settled(c), waitFor, tick)

	st := c.State()
	assert.Empty(t, st.ErrorMessage)
	assert.Equal(t, []string{"discover:1"}, titles(st.Results))
	assert.Equal(t, []string{"trending", "discover:1", "discover:1"}, sortTrendingFirst(p.Calls()))
}

func sortTrendingFirst(calls []string) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		if c == "trending" {
			out = append(out, c)
		}
	}
	for _, c := range calls {
		if c != "trending" {
			out = append(out, c)
		}
	}
	return out
}

func TestOnChangeVersionsIncrease(t *testing.T) {
	p := newFakeProvider()
	var mu sync.Mutex
	var last uint64
	var count int
	c := newTestController(t, p, WithOnChange(func(st model.QueryState) {
		mu.Lock()
		defer mu.Unlock()
		count++
		if st.Version > last {
			last = st.Version
		}
	}))

	c.Start()
	require.Eventually(t, settled(c), waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, count)
	assert.Equal(t, c.State().Version, last)
}

func TestCloseStopsEverything(t *testing.T) {
	p := newFakeProvider()
	c := New(p, WithDebounce(testDebounce))

	c.SetSearchText("dune")
	c.Close()
	time.Sleep(3 * testDebounce)

	assert.Empty(t, p.Calls())
	assert.False(t, c.SetPage(1))
	c.Start()
	assert.Empty(t, p.Calls())
}
