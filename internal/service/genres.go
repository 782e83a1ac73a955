package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"moviefind/internal/model"

	"github.com/rs/zerolog/log"
)

const genreCacheKey = "tmdb:genres:movie"

// defaultGenres is TMDB's movie genre table, used until a fresh list is loaded.
var defaultGenres = []model.Genre{
	{ID: 28, Name: "Action"},
	{ID: 12, Name: "Adventure"},
	{ID: 16, Name: "Animation"},
	{ID: 35, Name: "Comedy"},
	{ID: 80, Name: "Crime"},
	{ID: 99, Name: "Documentary"},
	{ID: 18, Name: "Drama"},
	{ID: 10751, Name: "Family"},
	{ID: 14, Name: "Fantasy"},
	{ID: 36, Name: "History"},
	{ID: 27, Name: "Horror"},
	{ID: 10402, Name: "Music"},
	{ID: 9648, Name: "Mystery"},
	{ID: 10749, Name: "Romance"},
	{ID: 878, Name: "Science Fiction"},
	{ID: 10770, Name: "TV Movie"},
	{ID: 53, Name: "Thriller"},
	{ID: 10752, Name: "War"},
	{ID: 37, Name: "Western"},
}

// GenreSource loads the genre list from the provider.
type GenreSource interface {
	Genres(ctx context.Context) ([]model.Genre, error)
}

// Cache is the subset of the Redis cache used here.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl ...time.Duration) error
}

// GenreCatalog maps genre ids to names. It starts from the static table and
// can be refreshed from the provider, optionally through a cache.
type GenreCatalog struct {
	source GenreSource
	cache  Cache
	ttl    time.Duration

	mu    sync.RWMutex
	names map[int]string
}

// NewGenreCatalog creates a catalog. cache may be nil.
func NewGenreCatalog(source GenreSource, cache Cache, ttl time.Duration) *GenreCatalog {
	g := &GenreCatalog{source: source, cache: cache, ttl: ttl}
	g.replace(defaultGenres)
	return g
}

// GenreName implements model.GenreNamer.
func (g *GenreCatalog) GenreName(id int) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	name, ok := g.names[id]
	return name, ok
}

// List returns the genres sorted by name.
func (g *GenreCatalog) List() []model.Genre {
	g.mu.RLock()
	list := make([]model.Genre, 0, len(g.names))
	for id, name := range g.names {
		list = append(list, model.Genre{ID: id, Name: name})
	}
	g.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Refresh loads the genre list from cache or provider. On failure the
// current table is kept and the error returned.
func (g *GenreCatalog) Refresh(ctx context.Context) error {
	if g.cache != nil {
		var cached []model.Genre
		if err := g.cache.Get(ctx, genreCacheKey, &cached); err == nil && len(cached) > 0 {
			g.replace(cached)
			return nil
		}
	}
	return g.Reload(ctx)
}

// Reload skips the cache, fetches from the provider and rewrites the cache
// entry. On failure the current table is kept and the error returned.
func (g *GenreCatalog) Reload(ctx context.Context) error {
	genres, err := g.source.Genres(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to refresh genres, keeping current table")
		return err
	}
	if len(genres) == 0 {
		return nil
	}
	g.replace(genres)

	if g.cache != nil {
		if err := g.cache.Set(ctx, genreCacheKey, genres, g.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache genres")
		}
	}

	log.Info().Int("count", len(genres)).Msg("🎭 Genres refreshed")
	return nil
}

func (g *GenreCatalog) replace(genres []model.Genre) {
	names := make(map[int]string, len(genres))
	for _, genre := range genres {
		names[genre.ID] = genre.Name
	}
	g.mu.Lock()
	g.names = names
	g.mu.Unlock()
}
