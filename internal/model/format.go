package model

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	notAvailable  = "N/A"
	unknownGenre  = "Unknown"
	NoPosterImage = "/no-movie.png"
	NoTrailerText = "No trailer available."
	mainCastLimit = 5
)

var moneyPrinter = message.NewPrinter(language.English)

// Card is the listing representation of a MovieSummary.
type Card struct {
	Key       string `json:"key"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
	Rating    string `json:"rating"`
	Genre     string `json:"genre"`
	Year      string `json:"year"`
}

// GenreNamer resolves a genre id to a display name.
type GenreNamer interface {
	GenreName(id int) (string, bool)
}

// NewCard builds the card shown for a summary in result lists.
func NewCard(m MovieSummary, imageBase string, genres GenreNamer) Card {
	genre := unknownGenre
	if len(m.GenreIDs) > 0 && genres != nil {
		if name, ok := genres.GenreName(m.GenreIDs[0]); ok {
			genre = name
		}
	}
	var releaseDate string
	if m.ReleaseDate != nil {
		releaseDate = *m.ReleaseDate
	}
	return Card{
		Key:       m.Key(),
		ID:        m.ID,
		Title:     m.Title,
		PosterURL: PosterURL(imageBase, m.PosterPath),
		Rating:    FormatRating(m.VoteAverage),
		Genre:     genre,
		Year:      Year(releaseDate),
	}
}

// NewCards maps NewCard over a result list.
func NewCards(movies []MovieSummary, imageBase string, genres GenreNamer) []Card {
	cards := make([]Card, 0, len(movies))
	for _, m := range movies {
		cards = append(cards, NewCard(m, imageBase, genres))
	}
	return cards
}

// PosterURL returns the w500 poster URL or the placeholder image.
func PosterURL(imageBase string, path *string) string {
	if path == nil || *path == "" {
		return NoPosterImage
	}
	return imageBase + "/w500/" + strings.TrimPrefix(*path, "/")
}

// FormatRating renders a vote average with one decimal. Zero counts as missing.
func FormatRating(v *float64) string {
	if v == nil || *v == 0 {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// Year returns the year part of a YYYY-MM-DD date.
func Year(date string) string {
	if date == "" {
		return notAvailable
	}
	year, _, _ := strings.Cut(date, "-")
	return year
}

// FormatMoney renders an amount as "$1,234,567"; zero is N/A.
func FormatMoney(n int64) string {
	if n == 0 {
		return notAvailable
	}
	return moneyPrinter.Sprintf("$%d", n)
}

// Certification mirrors the adult flag into a display rating.
func Certification(adult bool) string {
	if adult {
		return "18+"
	}
	return "PG-13"
}

// TrailerEmbedURL returns the YouTube embed URL for a trailer key.
func TrailerEmbedURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + key
}

func joinOrNA(names []string) string {
	if len(names) == 0 {
		return notAvailable
	}
	return strings.Join(names, ", ")
}

// MainActors returns the top billed cast names.
func (d *MovieDetail) MainActors() string {
	if d.Credits == nil {
		return notAvailable
	}
	var names []string
	for i, c := range d.Credits.Cast {
		if i == mainCastLimit {
			break
		}
		names = append(names, c.Name)
	}
	return joinOrNA(names)
}

// GenreNames joins the genre names.
func (d *MovieDetail) GenreNames() string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}
	return joinOrNA(names)
}

// Languages joins the English names of the spoken languages.
func (d *MovieDetail) Languages() string {
	names := make([]string, 0, len(d.SpokenLanguages))
	for _, l := range d.SpokenLanguages {
		names = append(names, l.EnglishName)
	}
	return joinOrNA(names)
}

// Companies joins the production company names.
func (d *MovieDetail) Companies() string {
	names := make([]string, 0, len(d.ProductionCompanies))
	for _, c := range d.ProductionCompanies {
		names = append(names, c.Name)
	}
	return joinOrNA(names)
}

// Countries joins the production country names.
func (d *MovieDetail) Countries() string {
	names := make([]string, 0, len(d.ProductionCountries))
	for _, c := range d.ProductionCountries {
		names = append(names, c.Name)
	}
	return joinOrNA(names)
}

// DetailFields is the flattened, display-ready detail record.
type DetailFields struct {
	Title         string `json:"title"`
	Rating        string `json:"rating"`
	VoteCount     int    `json:"vote_count"`
	Year          string `json:"year"`
	Certification string `json:"certification"`
	Runtime       string `json:"runtime"`
	PosterURL     string `json:"poster_url"`
	TrailerURL    string `json:"trailer_url,omitempty"`
	TrailerText   string `json:"trailer_text,omitempty"`
	Genres        string `json:"genres"`
	Overview      string `json:"overview"`
	MainActors    string `json:"main_actors"`
	ReleaseDate   string `json:"release_date"`
	Countries     string `json:"countries"`
	Status        string `json:"status"`
	Languages     string `json:"languages"`
	Budget        string `json:"budget"`
	Revenue       string `json:"revenue"`
	Companies     string `json:"companies"`
	Homepage      string `json:"homepage,omitempty"`
}

// Fields flattens a detail view for rendering. It returns nil when the view
// has no movie.
func (v DetailView) Fields(imageBase string) *DetailFields {
	d := v.Movie
	if d == nil {
		return nil
	}
	f := &DetailFields{
		Title:         d.Title,
		Rating:        FormatRating(d.VoteAverage),
		VoteCount:     d.VoteCount,
		Year:          Year(d.ReleaseDate),
		Certification: Certification(d.Adult),
		Runtime:       strconv.Itoa(d.Runtime) + " min",
		PosterURL:     PosterURL(imageBase, d.PosterPath),
		TrailerURL:    TrailerEmbedURL(v.TrailerKey),
		Genres:        d.GenreNames(),
		Overview:      orNA(d.Overview),
		MainActors:    d.MainActors(),
		ReleaseDate:   orNA(d.ReleaseDate),
		Countries:     d.Countries(),
		Status:        orNA(d.Status),
		Languages:     d.Languages(),
		Budget:        FormatMoney(d.Budget),
		Revenue:       FormatMoney(d.Revenue),
		Companies:     d.Companies(),
		Homepage:      d.Homepage,
	}
	if v.TrailerKey == "" {
		f.TrailerText = NoTrailerText
	}
	return f
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
