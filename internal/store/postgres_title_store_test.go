package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-service/internal/domain"
)

var titleRowColumns = []string{"id", "kind", "title", "year", "released", "genres", "poster", "plot",
	"external_id", "rating", "runtime", "total_seasons", "last_retrieved", "created_at"}

func newMockTitleStore(t *testing.T) (*PostgresTitleStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewPostgresTitleStore(sqlx.NewDb(db, "postgres"), discardLogger())
	require.NoError(t, err)
	return s, mock
}

func TestNewPostgresTitleStore_NilDB(t *testing.T) {
	_, err := NewPostgresTitleStore(nil, discardLogger())
	assert.Error(t, err)
}

func TestPostgresTitleStore_GetByExternalID_Movie(t *testing.T) {
	s, mock := newMockTitleStore(t)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("FROM titles WHERE kind = \\$1 AND external_id = \\$2").
		WithArgs("MOVIE", "tt1515091").
		WillReturnRows(sqlmock.NewRows(titleRowColumns).AddRow(
			"7c1c", "MOVIE", "Sherlock Holmes: A Game of Shadows", "2011", time.Date(2011, 12, 16, 0, 0, 0, 0, time.UTC),
			"{Action,Adventure}", "", "", "tt1515091", 7.5, int64(129), nil, now, now))

	title, err := s.GetByExternalID(context.Background(), domain.KindMovie, "tt1515091")
	require.NoError(t, err)
	assert.Equal(t, "7c1c", title.ID)
	assert.Equal(t, pq.StringArray{"Action", "Adventure"}, title.Genres)
	assert.Equal(t, "2011-12-16", title.Released.String())
	assert.Equal(t, 129, *title.Runtime)
	assert.Nil(t, title.TotalSeasons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_GetByExternalID_NotFound(t *testing.T) {
	s, mock := newMockTitleStore(t)
	mock.ExpectQuery("FROM titles WHERE kind").WillReturnError(sql.ErrNoRows)

	_, err := s.GetByExternalID(context.Background(), domain.KindSeries, "tt0")
	assert.ErrorIs(t, err, ErrTitleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_GetByID_SeriesLoadsTree(t *testing.T) {
	s, mock := newMockTitleStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM titles WHERE id = \\$1").
		WithArgs("series-1").
		WillReturnRows(sqlmock.NewRows(titleRowColumns).AddRow(
			"series-1", "SERIES", "Game of Thrones", "2011–2019", nil, "{Drama}", "", "", "tt0944947", 9.2, nil, int64(2), now, now))
	mock.ExpectQuery("FROM seasons WHERE series_id = \\$1").
		WithArgs("series-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "series_id", "season_numb", "total_episodes"}).
			AddRow("season-1", "series-1", int64(1), int64(2)).
			AddRow("season-2", "series-1", int64(2), int64(0)))
	mock.ExpectQuery("FROM episodes e JOIN seasons s").
		WithArgs("series-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "season_id", "title", "released", "episode_numb", "runtime", "rating", "plot", "poster", "external_id"}).
			AddRow("ep-1", "season-1", "Winter Is Coming", nil, int64(1), int64(62), 8.9, "", "", "tt1480055").
			AddRow("ep-2", "season-1", "The Kingsroad", nil, int64(2), nil, nil, "", "", "tt1668746"))

	title, err := s.GetByID(context.Background(), "series-1")
	require.NoError(t, err)
	require.Len(t, title.Seasons, 2)
	assert.Len(t, title.Seasons[0].Episodes, 2)
	assert.NotNil(t, title.Seasons[1].Episodes)
	assert.Empty(t, title.Seasons[1].Episodes)
	assert.Nil(t, title.Seasons[0].Episodes[1].Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_GetSeason(t *testing.T) {
	s, mock := newMockTitleStore(t)

	mock.ExpectQuery("SELECT id FROM titles WHERE kind").
		WithArgs("SERIES", "tt0944947").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("series-1"))
	mock.ExpectQuery("FROM seasons WHERE series_id = \\$1 AND season_numb = \\$2").
		WithArgs("series-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "series_id", "season_numb", "total_episodes"}).
			AddRow("season-1", "series-1", int64(1), int64(1)))
	mock.ExpectQuery("FROM episodes WHERE season_id = \\$1").
		WithArgs("season-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "season_id", "title", "released", "episode_numb", "runtime", "rating", "plot", "poster", "external_id"}).
			AddRow("ep-1", "season-1", "Winter Is Coming", time.Date(2011, 4, 17, 0, 0, 0, 0, time.UTC), int64(1), int64(62), 8.9, "", "", "tt1480055"))

	season, err := s.GetSeason(context.Background(), "tt0944947", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, season.SeasonNumber)
	require.Len(t, season.Episodes, 1)
	assert.Equal(t, "2011-04-17", season.Episodes[0].Released.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_GetSeason_Missing(t *testing.T) {
	s, mock := newMockTitleStore(t)

	mock.ExpectQuery("SELECT id FROM titles WHERE kind").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("series-1"))
	mock.ExpectQuery("FROM seasons WHERE series_id").WillReturnError(sql.ErrNoRows)

	_, err := s.GetSeason(context.Background(), "tt0944947", 9)
	assert.ErrorIs(t, err, ErrSeasonNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_CreateMovie_Duplicate(t *testing.T) {
	s, mock := newMockTitleStore(t)
	mock.ExpectExec("INSERT INTO titles").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_titles_kind_external_id"})

	err := s.CreateMovie(context.Background(), &domain.Title{ID: "m1", Kind: domain.KindMovie, Title: "x", ExternalID: "tt1"})
	assert.ErrorIs(t, err, ErrTitleAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_CreateSeries(t *testing.T) {
	s, mock := newMockTitleStore(t)
	rating := 9.0
	series := &domain.Title{
		ID: "series-1", Kind: domain.KindSeries, Title: "Game of Thrones", ExternalID: "tt0944947",
		Seasons: []domain.Season{
			{ID: "season-1", SeasonNumber: 1, TotalEpisodes: 3, Episodes: []domain.Episode{
				{ID: "ep-1", Title: "Winter Is Coming", EpisodeNumber: 1, Rating: &rating, ExternalID: "tt1480055"},
				{ID: "ep-2", Title: "The Kingsroad", EpisodeNumber: 2, ExternalID: "tt1668746"},
			}},
			{ID: "season-2", SeasonNumber: 2},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO titles").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO seasons").
		WithArgs("season-1", "series-1", 1, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO episodes").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE seasons SET total_episodes").
		WithArgs("season-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO seasons").
		WithArgs("season-2", "series-1", 2, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE seasons SET total_episodes").
		WithArgs("season-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.CreateSeries(context.Background(), series))
	assert.Equal(t, 2, series.Seasons[0].TotalEpisodes)
	assert.Equal(t, 0, series.Seasons[1].TotalEpisodes)
	assert.Equal(t, "season-1", series.Seasons[0].Episodes[1].SeasonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_CreateSeries_RollsBackOnConflict(t *testing.T) {
	s, mock := newMockTitleStore(t)
	series := &domain.Title{ID: "series-1", Kind: domain.KindSeries, Title: "x", ExternalID: "tt0944947"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO titles").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_titles_kind_external_id"})
	mock.ExpectRollback()

	err := s.CreateSeries(context.Background(), series)
	assert.ErrorIs(t, err, ErrTitleAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_TouchRetrieved(t *testing.T) {
	s, mock := newMockTitleStore(t)
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE titles SET last_retrieved").
		WithArgs(at, "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE titles SET last_retrieved").
		WithArgs(at, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.TouchRetrieved(context.Background(), "m1", at))
	assert.ErrorIs(t, s.TouchRetrieved(context.Background(), "missing", at), ErrTitleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_List(t *testing.T) {
	s, mock := newMockTitleStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM titles WHERE 1=1 AND kind = \\$1 AND LOWER\\(title\\) LIKE").
		WithArgs("SERIES", "%throne%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("ORDER BY last_retrieved DESC LIMIT \\$3 OFFSET \\$4").
		WithArgs("SERIES", "%throne%", 5, 5).
		WillReturnRows(sqlmock.NewRows(titleRowColumns).AddRow(
			"series-1", "SERIES", "Game of Thrones", "2011–2019", nil, "{}", "", "", "tt0944947", nil, nil, int64(8), now, now))

	titles, total, err := s.List(context.Background(), TitleListParams{
		Kind: domain.KindSeries, SearchQuery: "throne", SortBy: SortLastRetrievedDesc, Page: 2, PageSize: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, titles, 1)
	assert.Equal(t, 8, *titles[0].TotalSeasons)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTitleStore_List_Empty(t *testing.T) {
	s, mock := newMockTitleStore(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	titles, total, err := s.List(context.Background(), TitleListParams{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, titles)
	assert.NoError(t, mock.ExpectationsWereMet())
}
