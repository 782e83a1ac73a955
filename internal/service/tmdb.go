package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"moviefind/internal/model"
	"moviefind/pkg/httpclient"

	"github.com/rs/zerolog/log"
)

// Provider endpoint names, used for logging and metrics.
const (
	EndpointDiscover = "discover"
	EndpointTrending = "trending"
	EndpointSearch   = "search"
	EndpointMovie    = "movie"
	EndpointVideos   = "videos"
	EndpointGenres   = "genres"
)

// ErrNotConfigured is returned when no API token is available.
var ErrNotConfigured = errors.New("TMDB API key not configured")

// EnvelopeError is a provider-reported logical failure carried in a 2xx body.
type EnvelopeError struct {
	Message string
}

func (e *EnvelopeError) Error() string {
	return "provider error: " + e.Message
}

// envelope covers both the {response:"False",Error} shape and TMDB's own
// {success:false,status_message} shape.
type envelope struct {
	Response      string `json:"response"`
	Error         string `json:"Error"`
	Success       *bool  `json:"success"`
	StatusMessage string `json:"status_message"`
}

func (e envelope) failure() error {
	if e.Response == "False" {
		return &EnvelopeError{Message: e.Error}
	}
	if e.Success != nil && !*e.Success {
		return &EnvelopeError{Message: e.StatusMessage}
	}
	return nil
}

// CallRecorder receives one record per provider call.
type CallRecorder interface {
	RecordProviderCall(ctx context.Context, endpoint string, ok bool, latencyMs float64) error
}

// TMDBService handles TMDB API interactions with key rotation
type TMDBService struct {
	client    *httpclient.Client
	apiKeys   []string
	baseURL   string
	imageBase string
	keyIndex  uint64 // 原子计数器，用于轮询
	recorder  CallRecorder
}

// NewTMDBService creates a new TMDBService with multiple API keys
func NewTMDBService(client *httpclient.Client, apiKeys []string, baseURL, imageBase string) *TMDBService {
	if len(apiKeys) > 0 {
		log.Info().Int("count", len(apiKeys)).Msg("🔑 TMDB API keys configured, rotating round-robin")
	}
	return &TMDBService{
		client:    client,
		apiKeys:   apiKeys,
		baseURL:   baseURL,
		imageBase: imageBase,
	}
}

// SetRecorder attaches a metrics recorder. Must be called before use.
func (s *TMDBService) SetRecorder(r CallRecorder) {
	s.recorder = r
}

// getNextKey returns the next API key using round-robin
func (s *TMDBService) getNextKey() string {
	if len(s.apiKeys) == 0 {
		return ""
	}
	idx := atomic.AddUint64(&s.keyIndex, 1) - 1
	return s.apiKeys[idx%uint64(len(s.apiKeys))]
}

// Discover fetches one vote-count ordered browse page.
func (s *TMDBService) Discover(ctx context.Context, page int) ([]model.MovieSummary, error) {
	q := url.Values{}
	q.Set("include_adult", "false")
	q.Set("include_video", "false")
	q.Set("page", strconv.Itoa(page))
	q.Set("sort_by", "vote_count.desc")

	return s.moviePage(ctx, EndpointDiscover, "/discover/movie", q)
}

// Trending fetches the popularity ordered discover page.
func (s *TMDBService) Trending(ctx context.Context) ([]model.MovieSummary, error) {
	q := url.Values{}
	q.Set("sort_by", "popularity.desc")

	return s.moviePage(ctx, EndpointTrending, "/discover/movie", q)
}

// Search runs a text search ordered by popularity.
func (s *TMDBService) Search(ctx context.Context, query string) ([]model.MovieSummary, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("sort_by", "popularity.desc")

	return s.moviePage(ctx, EndpointSearch, "/search/movie", q)
}

// Movie fetches full details with credits embedded.
func (s *TMDBService) Movie(ctx context.Context, id int) (*model.MovieDetail, error) {
	q := url.Values{}
	q.Set("append_to_response", "credits")

	var detail model.MovieDetail
	if err := s.get(ctx, EndpointMovie, fmt.Sprintf("/movie/%d", id), q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Videos fetches the video list of a movie.
func (s *TMDBService) Videos(ctx context.Context, id int) ([]model.Video, error) {
	var list model.VideoList
	if err := s.get(ctx, EndpointVideos, fmt.Sprintf("/movie/%d/videos", id), nil, &list); err != nil {
		return nil, err
	}
	return list.Results, nil
}

// Genres fetches the official movie genre list.
func (s *TMDBService) Genres(ctx context.Context) ([]model.Genre, error) {
	var list model.GenreList
	if err := s.get(ctx, EndpointGenres, "/genre/movie/list", nil, &list); err != nil {
		return nil, err
	}
	return list.Genres, nil
}

func (s *TMDBService) moviePage(ctx context.Context, endpoint, path string, q url.Values) ([]model.MovieSummary, error) {
	var page model.MoviePage
	if err := s.get(ctx, endpoint, path, q, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []model.MovieSummary{}, nil
	}
	return page.Results, nil
}

// get performs one authenticated request and decodes the body into dest,
// translating error envelopes into *EnvelopeError.
func (s *TMDBService) get(ctx context.Context, endpoint, path string, q url.Values, dest interface{}) (err error) {
	start := time.Now()
	defer func() {
		if s.recorder == nil {
			return
		}
		latency := float64(time.Since(start).Milliseconds())
		// 请求可能已被取消，统计写入使用独立 context
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if rerr := s.recorder.RecordProviderCall(rctx, endpoint, err == nil, latency); rerr != nil {
			log.Debug().Err(rerr).Msg("Failed to record provider call")
		}
	}()

	apiKey := s.getNextKey()
	if apiKey == "" {
		return ErrNotConfigured
	}

	target := s.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Authorization", "Bearer "+apiKey)

	data, err := s.client.Get(ctx, target, header)
	if err != nil {
		return fmt.Errorf("TMDB %s failed: %w", endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse TMDB %s response: %w", endpoint, err)
	}
	if err := env.failure(); err != nil {
		return fmt.Errorf("TMDB %s failed: %w", endpoint, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse TMDB %s response: %w", endpoint, err)
	}
	return nil
}

// IsConfigured returns true if TMDB is configured
func (s *TMDBService) IsConfigured() bool {
	return len(s.apiKeys) > 0
}

// KeyCount returns the number of configured API keys
func (s *TMDBService) KeyCount() int {
	return len(s.apiKeys)
}

// ImageBase returns the image CDN prefix.
func (s *TMDBService) ImageBase() string {
	return s.imageBase
}
