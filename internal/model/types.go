package model

import "strconv"

// ================== 通用响应 ==================

// APIResponse is the standard API response format
type APIResponse struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Source  string      `json:"source,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ================== TMDB 数据模型 ==================

// MovieSummary is one entry of a provider result page. Pointer fields are
// nil when the provider sent null.
type MovieSummary struct {
	ID          int      `json:"id"`
	AltID       string   `json:"$id,omitempty"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	VoteAverage *float64 `json:"vote_average"`
	GenreIDs    []int    `json:"genre_ids"`
	ReleaseDate *string  `json:"release_date"`
}

// Key returns the identity of the summary, falling back to the alternate id.
func (m MovieSummary) Key() string {
	if m.ID != 0 {
		return strconv.Itoa(m.ID)
	}
	return m.AltID
}

// MoviePage is the provider response for discover and search.
type MoviePage struct {
	Page         int            `json:"page"`
	Results      []MovieSummary `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// Genre is a movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenreList is the response of /genre/movie/list.
type GenreList struct {
	Genres []Genre `json:"genres"`
}

// CastMember is a single credited actor.
type CastMember struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// Credits is embedded in the detail response via append_to_response=credits.
type Credits struct {
	Cast []CastMember `json:"cast"`
}

// SpokenLanguage is one spoken language of a movie.
type SpokenLanguage struct {
	ISO         string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

// Company is a production company.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Country is a production country.
type Country struct {
	ISO  string `json:"iso_3166_1"`
	Name string `json:"name"`
}

// MovieDetail is the response of /movie/{id}?append_to_response=credits.
type MovieDetail struct {
	ID                  int              `json:"id"`
	Title               string           `json:"title"`
	Overview            string           `json:"overview"`
	VoteAverage         *float64         `json:"vote_average"`
	VoteCount           int              `json:"vote_count"`
	ReleaseDate         string           `json:"release_date"`
	Runtime             int              `json:"runtime"`
	Adult               bool             `json:"adult"`
	Status              string           `json:"status"`
	Homepage            string           `json:"homepage"`
	PosterPath          *string          `json:"poster_path"`
	Budget              int64            `json:"budget"`
	Revenue             int64            `json:"revenue"`
	Genres              []Genre          `json:"genres"`
	SpokenLanguages     []SpokenLanguage `json:"spoken_languages"`
	ProductionCompanies []Company        `json:"production_companies"`
	ProductionCountries []Country        `json:"production_countries"`
	Credits             *Credits         `json:"credits,omitempty"`
}

// Video is one entry of /movie/{id}/videos.
type Video struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// VideoList is the response of /movie/{id}/videos.
type VideoList struct {
	ID      int     `json:"id"`
	Results []Video `json:"results"`
}

// ================== 查询状态 ==================

// Mode names the controller's tagged state.
type Mode string

const (
	ModeBrowsing  Mode = "browsing"
	ModeSearching Mode = "searching"
)

// QueryState is a read-only snapshot of the query controller.
type QueryState struct {
	RawSearchText       string         `json:"raw_search_text"`
	DebouncedSearchText string         `json:"debounced_search_text"`
	Mode                Mode           `json:"mode"`
	Page                int            `json:"page"`
	IsLoading           bool           `json:"is_loading"`
	TrendingLoading     bool           `json:"trending_loading"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	Results             []MovieSummary `json:"results"`
	Trending            []MovieSummary `json:"trending"`
	Version             uint64         `json:"version"`
}

// ================== 详情视图 ==================

// Severity classifies a loader failure.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Notice is a non-fatal message attached to a detail view.
type Notice struct {
	Source   string   `json:"source"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// DetailView is what the detail loader hands the presentation surface.
type DetailView struct {
	Movie      *MovieDetail `json:"movie,omitempty"`
	TrailerKey string       `json:"trailer_key,omitempty"`
	Error      string       `json:"error,omitempty"`
	Notices    []Notice     `json:"notices,omitempty"`
}
