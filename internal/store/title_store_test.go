package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMovie(id, externalID, title string) *domain.Title {
	return &domain.Title{ID: id, Kind: domain.KindMovie, Title: title, ExternalID: externalID, Genres: []string{"Drama"}}
}

func TestMemoryTitleStore_UniquePerKind(t *testing.T) {
	s := NewMemoryTitleStore(discardLogger())
	ctx := context.Background()

	require.NoError(t, s.CreateMovie(ctx, newMovie("m1", "tt1", "One")))
	assert.ErrorIs(t, s.CreateMovie(ctx, newMovie("m2", "tt1", "One again")), ErrTitleAlreadyExists)

	total := 1
	series := &domain.Title{ID: "s1", Kind: domain.KindSeries, Title: "Also tt1", ExternalID: "tt1", TotalSeasons: &total}
	assert.NoError(t, s.CreateSeries(ctx, series))

	got, err := s.GetByExternalID(ctx, domain.KindMovie, "tt1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	_, err = s.GetByExternalID(ctx, domain.KindMovie, "tt2")
	assert.ErrorIs(t, err, ErrTitleNotFound)
}

func TestMemoryTitleStore_CreateSeriesCountsStoredEpisodes(t *testing.T) {
	s := NewMemoryTitleStore(discardLogger())
	ctx := context.Background()

	series := &domain.Title{
		ID: "s1", Kind: domain.KindSeries, Title: "Show", ExternalID: "tt9",
		Seasons: []domain.Season{
			{ID: "season-1", SeasonNumber: 1, TotalEpisodes: 10, Episodes: []domain.Episode{{ID: "e1", EpisodeNumber: 1}, {ID: "e2", EpisodeNumber: 2}}},
			{ID: "season-2", SeasonNumber: 2, TotalEpisodes: 10},
		},
	}
	require.NoError(t, s.CreateSeries(ctx, series))

	got, err := s.GetByID(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Seasons, 2)
	assert.Equal(t, 2, got.Seasons[0].TotalEpisodes)
	assert.Equal(t, 0, got.Seasons[1].TotalEpisodes)
	assert.Equal(t, "season-1", got.Seasons[0].Episodes[0].SeasonID)
	assert.Equal(t, "s1", got.Seasons[1].SeriesID)

	season, err := s.GetSeason(ctx, "tt9", 1)
	require.NoError(t, err)
	assert.Len(t, season.Episodes, 2)

	_, err = s.GetSeason(ctx, "tt9", 3)
	assert.ErrorIs(t, err, ErrSeasonNotFound)
	_, err = s.GetSeason(ctx, "tt404", 1)
	assert.ErrorIs(t, err, ErrTitleNotFound)
}

func TestMemoryTitleStore_CreateSeriesRejectsDuplicateSeasonNumbers(t *testing.T) {
	s := NewMemoryTitleStore(discardLogger())
	series := &domain.Title{
		ID: "s1", Kind: domain.KindSeries, ExternalID: "tt9",
		Seasons: []domain.Season{{ID: "a", SeasonNumber: 1}, {ID: "b", SeasonNumber: 1}},
	}
	assert.Error(t, s.CreateSeries(context.Background(), series))
}

func TestMemoryTitleStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryTitleStore(discardLogger())
	ctx := context.Background()
	series := &domain.Title{
		ID: "s1", Kind: domain.KindSeries, ExternalID: "tt9",
		Seasons: []domain.Season{{ID: "a", SeasonNumber: 1, Episodes: []domain.Episode{{ID: "e1", Title: "Pilot", EpisodeNumber: 1}}}},
	}
	require.NoError(t, s.CreateSeries(ctx, series))
	series.Seasons[0].Episodes[0].Title = "mutated by caller"

	got, err := s.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Pilot", got.Seasons[0].Episodes[0].Title)

	got.Seasons[0].Episodes[0].Title = "mutated by reader"
	again, err := s.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Pilot", again.Seasons[0].Episodes[0].Title)
}

func TestMemoryTitleStore_TouchRetrieved(t *testing.T) {
	s := NewMemoryTitleStore(discardLogger())
	ctx := context.Background()
	require.NoError(t, s.CreateMovie(ctx, newMovie("m1", "tt1", "One")))

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchRetrieved(ctx, "m1", at))
	got, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, at, got.LastRetrieved)

	assert.ErrorIs(t, s.TouchRetrieved(ctx, "missing", at), ErrTitleNotFound)
}

func TestMemoryTitleStore_List(t *testing.T) {
	s := NewMemoryTitleStore(discardLogger())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, title := range []string{"Alpha", "Bravo", "Charlie"} {
		m := newMovie("m"+title, "tt"+title, title)
		m.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		m.LastRetrieved = base.Add(time.Duration(3-i) * time.Hour)
		require.NoError(t, s.CreateMovie(ctx, m))
	}
	series := &domain.Title{ID: "s1", Kind: domain.KindSeries, Title: "Delta", ExternalID: "ttD", Year: "2011–2019",
		Genres: []string{"Fantasy"}, CreatedAt: base.Add(10 * time.Hour),
		Seasons: []domain.Season{{ID: "x", SeasonNumber: 1}}}
	require.NoError(t, s.CreateSeries(ctx, series))

	all, total, err := s.List(ctx, TitleListParams{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Equal(t, "Delta", all[0].Title)
	assert.Nil(t, all[0].Seasons)

	movies, total, err := s.List(ctx, TitleListParams{Kind: domain.KindMovie, SortBy: SortTitleAsc, PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, movies, 1)
	assert.Equal(t, "Charlie", movies[0].Title)

	recent, _, err := s.List(ctx, TitleListParams{Kind: domain.KindMovie, SortBy: SortLastRetrievedDesc})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", recent[0].Title)

	fantasy, total, err := s.List(ctx, TitleListParams{Genre: "fantasy", Year: "2011"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Delta", fantasy[0].Title)

	found, total, err := s.List(ctx, TitleListParams{SearchQuery: "rav"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Bravo", found[0].Title)

	empty, total, err := s.List(ctx, TitleListParams{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, empty)
}
