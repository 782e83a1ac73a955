package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviefind/internal/controller"
	"moviefind/internal/detail"
	"moviefind/internal/model"
	"moviefind/internal/service"
	"moviefind/internal/session"
	"moviefind/pkg/httpclient"
)

const imageBase = "https://image.tmdb.org/t/p"

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeTMDB answers the handful of endpoints the handlers reach.
func fakeTMDB(t *testing.T) *service.TMDBService {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/3/discover/movie":
			// trending is the popularity ordered discover page
			if r.URL.Query().Get("sort_by") == "popularity.desc" {
				_, _ = w.Write([]byte(`{"results":[{"id":603,"title":"The Matrix","poster_path":null,"vote_average":0,"genre_ids":[],"release_date":""}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":550,"title":"Fight Club","poster_path":"/fc.jpg","vote_average":8.4,"genre_ids":[18],"release_date":"1999-10-15"}]}`))
		case "/3/search/movie":
			_, _ = w.Write([]byte(`{"results":[]}`))
		case "/3/genre/movie/list":
			_, _ = w.Write([]byte(`{"genres":[{"id":18,"name":"Drama"},{"id":10770,"name":"TV Movie"},{"id":99999,"name":"Kaiju"}]}`))
		case "/3/movie/550":
			_, _ = w.Write([]byte(`{"id":550,"title":"Fight Club","vote_average":8.4,"vote_count":30000,"release_date":"1999-10-15","runtime":139,"budget":63000000,"revenue":100853753}`))
		case "/3/movie/550/videos":
			_, _ = w.Write([]byte(`{"results":[{"key":"SUXWAEX2jlg","site":"YouTube","type":"Trailer"}]}`))
		case "/3/movie/404", "/3/movie/404/videos":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"status_message":"The resource you requested could not be found."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return service.NewTMDBService(httpclient.NewClient(), []string{"token"}, server.URL+"/3", imageBase)
}

func newRouter(t *testing.T) (*gin.Engine, *session.Store) {
	t.Helper()
	return newLimitedRouter(t, 0)
}

func newLimitedRouter(t *testing.T, maxSessions int) (*gin.Engine, *session.Store) {
	t.Helper()
	tmdb := fakeTMDB(t)
	genres := service.NewGenreCatalog(tmdb, nil, time.Hour)
	store := session.NewStore(func() *controller.Controller {
		return controller.New(tmdb, controller.WithDebounce(10*time.Millisecond))
	}, time.Minute, maxSessions)
	t.Cleanup(store.Close)

	sessions := NewSessionHandler(store, imageBase, genres)
	details := NewDetailHandler(detail.NewLoader(tmdb), imageBase)
	genreHandler := NewGenreHandler(genres)
	admin := NewAdminHandler(tmdb, store, nil)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/sessions", sessions.Create)
	api.GET("/sessions/:id", sessions.Get)
	api.PUT("/sessions/:id/search", sessions.SetSearch)
	api.POST("/sessions/:id/page", sessions.Paginate)
	api.POST("/sessions/:id/refresh", sessions.Refresh)
	api.DELETE("/sessions/:id", sessions.Delete)
	api.GET("/movies/:id", details.GetDetail)
	api.GET("/genres", genreHandler.GetGenres)
	api.POST("/genres/refresh", genreHandler.RefreshGenres)
	api.GET("/status", admin.GetStatus)
	api.GET("/analytics", admin.GetAnalytics)
	return r, store
}

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeSession(t *testing.T, env envelope) sessionPayload {
	t.Helper()
	var p sessionPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func TestSessionLifecycle(t *testing.T) {
	r, store := newRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeSession(t, env)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.ModeBrowsing, created.State.Mode)
	assert.Equal(t, 1, created.State.Page)
	assert.Equal(t, 1, store.Len())

	var got sessionPayload
	require.Eventually(t, func() bool {
		_, env := do(t, r, http.MethodGet, "/api/v1/sessions/"+created.ID, "")
		got = decodeSession(t, env)
		return got.View == viewResults && len(got.Cards) == 1 && len(got.TrendingCards) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, model.Card{
		Key:       "550",
		ID:        550,
		Title:     "Fight Club",
		PosterURL: imageBase + "/w500/fc.jpg",
		Rating:    "8.4",
		Genre:     "Drama",
		Year:      "1999",
	}, got.Cards[0])
	assert.Equal(t, "The Matrix", got.TrendingCards[0].Title)
	assert.Equal(t, model.NoPosterImage, got.TrendingCards[0].PosterURL)
	assert.Equal(t, "N/A", got.TrendingCards[0].Rating)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodDelete, "/api/v1/sessions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionLimit(t *testing.T) {
	r, store := newLimitedRouter(t, 1)

	w, _ := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, session.ErrTooManySessions.Error(), env.Error)
	assert.Equal(t, 1, store.Len())
}

func TestUnknownSession(t *testing.T) {
	r, _ := newRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session not found", env.Error)
}

func TestPaginate(t *testing.T) {
	r, _ := newRouter(t)
	_, env := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	id := decodeSession(t, env).ID

	w, env := do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/page", `{"delta":1}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 2, decodeSession(t, env).State.Page)

	w, _ = do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/page", `{"delta":-1}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	// already on the first page
	w, env = do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/page", `{"delta":-1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, decodeSession(t, env).State.Page)

	w, _ = do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/page", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchDebouncesIntoSearchingMode(t *testing.T) {
	r, _ := newRouter(t)
	_, env := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	id := decodeSession(t, env).ID

	w, env := do(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/search", `{"text":"matrix"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	st := decodeSession(t, env).State
	assert.Equal(t, "matrix", st.RawSearchText)

	require.Eventually(t, func() bool {
		_, env := do(t, r, http.MethodGet, "/api/v1/sessions/"+id, "")
		p := decodeSession(t, env)
		return p.State.Mode == model.ModeSearching && !p.State.IsLoading
	}, 2*time.Second, 10*time.Millisecond)

	w, _ = do(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/search", `{"query":"matrix"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresh(t *testing.T) {
	r, _ := newRouter(t)
	_, env := do(t, r, http.MethodPost, "/api/v1/sessions", "")
	id := decodeSession(t, env).ID

	before := decodeSession(t, env).State.Version

	w, env := do(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/refresh", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Greater(t, decodeSession(t, env).State.Version, before)

	w, _ = do(t, r, http.MethodPost, "/api/v1/sessions/missing/refresh", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDetail(t *testing.T) {
	r, _ := newRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/v1/movies/550", "")
	require.Equal(t, http.StatusOK, w.Code)

	var p detailPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.NotNil(t, p.Movie)
	assert.Equal(t, "SUXWAEX2jlg", p.TrailerKey)
	require.NotNil(t, p.Fields)
	assert.Equal(t, "Fight Club", p.Fields.Title)
	assert.Equal(t, "139 min", p.Fields.Runtime)
	assert.Empty(t, p.Notices)
}

func TestGetDetailFailures(t *testing.T) {
	r, _ := newRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/v1/movies/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "invalid movie id")

	w, env = do(t, r, http.MethodGet, "/api/v1/movies/404", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.True(t, strings.HasPrefix(env.Error, "Could not load movie details: "), env.Error)
}

func TestGenresAndStatus(t *testing.T) {
	r, _ := newRouter(t)

	w, env := do(t, r, http.MethodGet, "/api/v1/genres", "")
	require.Equal(t, http.StatusOK, w.Code)
	var genres []model.Genre
	require.NoError(t, json.Unmarshal(env.Data, &genres))
	assert.Len(t, genres, 19)
	assert.Equal(t, "Action", genres[0].Name)

	w, _ = do(t, r, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, true, status["tmdb_enabled"])
	assert.Equal(t, false, status["metrics_enabled"])

	w, _ = do(t, r, http.MethodGet, "/api/v1/analytics", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRefreshGenresReachesProvider(t *testing.T) {
	r, _ := newRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/genres/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)

	var genres []model.Genre
	require.NoError(t, json.Unmarshal(env.Data, &genres))
	assert.Equal(t, []model.Genre{{ID: 18, Name: "Drama"}, {ID: 99999, Name: "Kaiju"}, {ID: 10770, Name: "TV Movie"}}, genres)
}
