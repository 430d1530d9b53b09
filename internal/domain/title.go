// internal/domain/title.go
package domain

import (
	"time"

	"github.com/lib/pq"
)

// Kind distinguishes the two mutually exclusive title types.
type Kind string

const (
	KindMovie  Kind = "MOVIE"
	KindSeries Kind = "SERIES"
)

// ParseKind maps the public `type` query value (movie|series) to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "movie":
		return KindMovie, true
	case "series":
		return KindSeries, true
	}
	return "", false
}

// Title is a cataloged movie or series mirrored from the external catalog.
type Title struct {
	ID            string         `json:"id" db:"id"`
	Kind          Kind           `json:"media_type" db:"kind"`
	Title         string         `json:"title" db:"title"`
	Year          string         `json:"year,omitempty" db:"year"`
	Released      *Date          `json:"released" db:"released"`
	Genres        pq.StringArray `json:"genres" db:"genres"`
	Poster        string         `json:"poster" db:"poster"`
	Plot          string         `json:"plot" db:"plot"`
	ExternalID    string         `json:"imdb_id" db:"external_id"`
	Rating        *float64       `json:"imdb_rating" db:"rating"`
	Runtime       *int           `json:"runtime,omitempty" db:"runtime"`
	TotalSeasons  *int           `json:"total_seasons,omitempty" db:"total_seasons"`
	LastRetrieved time.Time      `json:"-" db:"last_retrieved"`
	CreatedAt     time.Time      `json:"-" db:"created_at"`
	Seasons       []Season       `json:"seasons,omitempty" db:"-"`
}

// Season belongs to exactly one series.
type Season struct {
	ID            string    `json:"id" db:"id"`
	SeriesID      string    `json:"-" db:"series_id"`
	SeasonNumber  int       `json:"season_numb" db:"season_numb"`
	TotalEpisodes int       `json:"total_episodes" db:"total_episodes"`
	Episodes      []Episode `json:"episodes" db:"-"`
}

// Episode belongs to exactly one season. Runtime and Rating are nil when
// the catalog reports them as unavailable.
type Episode struct {
	ID            string   `json:"id" db:"id"`
	SeasonID      string   `json:"-" db:"season_id"`
	Title         string   `json:"title" db:"title"`
	Released      *Date    `json:"released" db:"released"`
	EpisodeNumber int      `json:"episode_numb" db:"episode_numb"`
	Runtime       *int     `json:"runtime" db:"runtime"`
	Rating        *float64 `json:"imdb_rating" db:"rating"`
	Plot          string   `json:"plot" db:"plot"`
	Poster        string   `json:"poster" db:"poster"`
	ExternalID    string   `json:"imdb_id" db:"external_id"`
}

// FilterByRating returns the episodes rated at least min. Unrated episodes
// never pass a threshold.
func (s Season) FilterByRating(min float64) Season {
	filtered := make([]Episode, 0, len(s.Episodes))
	for _, e := range s.Episodes {
		if e.Rating != nil && *e.Rating >= min {
			filtered = append(filtered, e)
		}
	}
	s.Episodes = filtered
	return s
}

// TitleSummary is the short form of a title shared with other services.
type TitleSummary struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Kind       Kind     `json:"media_type"`
	ExternalID string   `json:"imdb_id"`
	Year       string   `json:"year,omitempty"`
	Rating     *float64 `json:"imdb_rating"`
}

func (t *Title) Summary() *TitleSummary {
	return &TitleSummary{
		ID:         t.ID,
		Title:      t.Title,
		Kind:       t.Kind,
		ExternalID: t.ExternalID,
		Year:       t.Year,
		Rating:     t.Rating,
	}
}
