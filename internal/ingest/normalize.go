package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"watchlist-service/internal/catalog"
	"watchlist-service/internal/domain"
)

// notAvailable is the catalog's sentinel for a missing value.
const notAvailable = "N/A"

// releasedLayout is the catalog's date format, e.g. "05 Feb 2023". The day
// may also come without its leading zero.
const releasedLayout = "2 Jan 2006"

func isAbsent(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == notAvailable
}

// ParseReleased parses a catalog date. The sentinel maps to nil.
func ParseReleased(s string) (*domain.Date, error) {
	if isAbsent(s) {
		return nil, nil
	}
	t, err := time.Parse(releasedLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: released %q", domain.ErrUpstreamMalformed, s)
	}
	d := domain.NewDate(t.Year(), t.Month(), t.Day())
	return &d, nil
}

// ParseRuntime extracts the minutes from "<n> min". The sentinel maps to
// nil, never to zero.
func ParseRuntime(s string) (*int, error) {
	if isAbsent(s) {
		return nil, nil
	}
	token := strings.Fields(s)[0]
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: runtime %q", domain.ErrUpstreamMalformed, s)
	}
	return &n, nil
}

// ParseRating parses a rating string. The sentinel maps to nil.
func ParseRating(s string) (*float64, error) {
	if isAbsent(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: rating %q", domain.ErrUpstreamMalformed, s)
	}
	return &f, nil
}

// ParseGenres splits "Action, Drama" into its parts.
func ParseGenres(s string) []string {
	if isAbsent(s) {
		return []string{}
	}
	parts := strings.Split(s, ",")
	genres := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			genres = append(genres, p)
		}
	}
	return genres
}

// ParsePositiveInt parses season numbers, episode numbers and season counts.
func ParsePositiveInt(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s %q", domain.ErrUpstreamMalformed, field, s)
	}
	return n, nil
}

func optionalString(s string) string {
	if isAbsent(s) {
		return ""
	}
	return s
}

// normalizeTitle maps the fields shared by movies and series.
func normalizeTitle(rec *catalog.TitleRecord, kind domain.Kind) (*domain.Title, error) {
	if isAbsent(rec.Title) || isAbsent(rec.IMDbID) {
		return nil, fmt.Errorf("%w: title record lacks title or id", domain.ErrUpstreamMalformed)
	}
	released, err := ParseReleased(rec.Released)
	if err != nil {
		return nil, err
	}
	rating, err := ParseRating(rec.IMDbRating)
	if err != nil {
		return nil, err
	}
	return &domain.Title{
		Kind:       kind,
		Title:      rec.Title,
		Released:   released,
		Genres:     ParseGenres(rec.Genre),
		Poster:     optionalString(rec.Poster),
		Plot:       optionalString(rec.Plot),
		ExternalID: rec.IMDbID,
		Rating:     rating,
	}, nil
}

// NormalizeMovie maps a movie record to a Title.
func NormalizeMovie(rec *catalog.TitleRecord) (*domain.Title, error) {
	t, err := normalizeTitle(rec, domain.KindMovie)
	if err != nil {
		return nil, err
	}
	if t.Runtime, err = ParseRuntime(rec.Runtime); err != nil {
		return nil, err
	}
	return t, nil
}

// NormalizeSeries maps a series record to a Title with its declared
// season count.
func NormalizeSeries(rec *catalog.TitleRecord) (*domain.Title, error) {
	t, err := normalizeTitle(rec, domain.KindSeries)
	if err != nil {
		return nil, err
	}
	total, err := ParsePositiveInt("totalSeasons", rec.TotalSeasons)
	if err != nil {
		return nil, err
	}
	t.TotalSeasons = &total
	t.Year = optionalString(rec.Year)
	return t, nil
}

// NormalizeSeason reads the season number from the record; it is never
// inferred from the requested number.
func NormalizeSeason(rec *catalog.SeasonRecord) (domain.Season, error) {
	n, err := ParsePositiveInt("Season", rec.Season)
	if err != nil {
		return domain.Season{}, err
	}
	return domain.Season{SeasonNumber: n, TotalEpisodes: len(rec.Episodes)}, nil
}

// NormalizeEpisode maps an episode record.
func NormalizeEpisode(rec *catalog.EpisodeRecord) (domain.Episode, error) {
	if isAbsent(rec.Title) {
		return domain.Episode{}, fmt.Errorf("%w: episode %s lacks title", domain.ErrUpstreamMalformed, rec.IMDbID)
	}
	number, err := ParsePositiveInt("Episode", rec.Episode)
	if err != nil {
		return domain.Episode{}, err
	}
	released, err := ParseReleased(rec.Released)
	if err != nil {
		return domain.Episode{}, err
	}
	runtime, err := ParseRuntime(rec.Runtime)
	if err != nil {
		return domain.Episode{}, err
	}
	rating, err := ParseRating(rec.IMDbRating)
	if err != nil {
		return domain.Episode{}, err
	}
	return domain.Episode{
		Title:         rec.Title,
		Released:      released,
		EpisodeNumber: number,
		Runtime:       runtime,
		Rating:        rating,
		Plot:          optionalString(rec.Plot),
		Poster:        optionalString(rec.Poster),
		ExternalID:    rec.IMDbID,
	}, nil
}
