// Package detail loads the data behind a single movie's detail view.
package detail

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"moviefind/internal/model"

	"github.com/rs/zerolog/log"
)

// ErrInvalidID is returned for identifiers that are not positive integers.
var ErrInvalidID = errors.New("invalid movie id")

// Source is the provider as seen by the loader.
type Source interface {
	Movie(ctx context.Context, id int) (*model.MovieDetail, error)
	Videos(ctx context.Context, id int) ([]model.Video, error)
}

// Part names one of the loader's requests.
type Part string

const (
	PartDetail  Part = "detail"
	PartTrailer Part = "trailer"
)

// policy decides how a failed part affects the view.
var policy = map[Part]struct {
	severity model.Severity
	prefix   string
}{
	PartDetail:  {model.SeverityBlocking, "Could not load movie details: "},
	PartTrailer: {model.SeverityAdvisory, "Could not load trailer: "},
}

// result is one part's outcome on the shared channel.
type result struct {
	part       Part
	movie      *model.MovieDetail
	trailerKey string
	err        error
}

// Loader fetches a movie and its trailer. It keeps no state between calls.
type Loader struct {
	source Source
}

// NewLoader creates a Loader.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// ParseID validates a route parameter.
func ParseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// Load requests detail and videos concurrently and folds both outcomes into
// one view. A detail failure sets view.Error; a trailer failure only adds a
// notice.
func (l *Loader) Load(ctx context.Context, id int) model.DetailView {
	results := make(chan result, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		movie, err := l.source.Movie(ctx, id)
		results <- result{part: PartDetail, movie: movie, err: err}
	}()

	go func() {
		defer wg.Done()
		videos, err := l.source.Videos(ctx, id)
		results <- result{part: PartTrailer, trailerKey: TrailerKey(videos), err: err}
	}()

	wg.Wait()
	close(results)

	var view model.DetailView
	for r := range results {
		if r.err != nil {
			p := policy[r.part]
			msg := p.prefix + r.err.Error()
			log.Warn().Err(r.err).Int("id", id).Str("part", string(r.part)).Msg("detail load failed")

			if p.severity == model.SeverityBlocking {
				view.Error = msg
				continue
			}
			view.Notices = append(view.Notices, model.Notice{
				Source:   string(r.part),
				Severity: p.severity,
				Message:  msg,
			})
			continue
		}

		switch r.part {
		case PartDetail:
			view.Movie = r.movie
		case PartTrailer:
			view.TrailerKey = r.trailerKey
		}
	}

	if view.Error != "" {
		view.Movie = nil
	}
	return view
}

// TrailerKey returns the key of the first YouTube trailer, or "".
func TrailerKey(videos []model.Video) string {
	for _, v := range videos {
		if v.Type == "Trailer" && v.Site == "YouTube" {
			return v.Key
		}
	}
	return ""
}
