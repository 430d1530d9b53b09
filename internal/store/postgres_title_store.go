package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"watchlist-service/internal/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const titleColumns = `id, kind, title, year, released, genres, poster, plot, external_id, rating, runtime, total_seasons, last_retrieved, created_at`

const episodeColumns = `id, season_id, title, released, episode_numb, runtime, rating, plot, poster, external_id`

const insertTitleQuery = `INSERT INTO titles (` + titleColumns + `)
	VALUES (:id, :kind, :title, :year, :released, :genres, :poster, :plot, :external_id, :rating, :runtime, :total_seasons, :last_retrieved, :created_at)`

const insertSeasonQuery = `INSERT INTO seasons (id, series_id, season_numb, total_episodes)
	VALUES (:id, :series_id, :season_numb, :total_episodes)`

const insertEpisodesQuery = `INSERT INTO episodes (` + episodeColumns + `)
	VALUES (:id, :season_id, :title, :released, :episode_numb, :runtime, :rating, :plot, :poster, :external_id)`

const updateSeasonTotalQuery = `UPDATE seasons SET total_episodes = (SELECT COUNT(*) FROM episodes WHERE season_id = $1) WHERE id = $1`

// PostgresTitleStore implements TitleStore on PostgreSQL.
type PostgresTitleStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresTitleStore(db *sqlx.DB, logger *slog.Logger) (*PostgresTitleStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &PostgresTitleStore{db: db, logger: logger}, nil
}

func isUniqueViolation(err error) (*pq.Error, bool) {
	return pqErrorWithCode(err, uniqueViolation)
}

func isForeignKeyViolation(err error) (*pq.Error, bool) {
	return pqErrorWithCode(err, foreignKeyViolation)
}

func pqErrorWithCode(err error, code pq.ErrorCode) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == code {
		return pqErr, true
	}
	return nil, false
}

func (s *PostgresTitleStore) GetByExternalID(ctx context.Context, kind domain.Kind, externalID string) (*domain.Title, error) {
	query := `SELECT ` + titleColumns + ` FROM titles WHERE kind = $1 AND external_id = $2`
	var title domain.Title

	s.logger.DebugContext(ctx, "Executing GetTitleByExternalID query", slog.String("kind", string(kind)), slog.String("externalID", externalID))
	if err := s.db.GetContext(ctx, &title, query, kind, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTitleNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get title by external id from DB", slog.String("externalID", externalID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get title by external id: %w", err)
	}
	if err := s.loadSeasons(ctx, &title); err != nil {
		return nil, err
	}
	return &title, nil
}

func (s *PostgresTitleStore) GetByID(ctx context.Context, id string) (*domain.Title, error) {
	query := `SELECT ` + titleColumns + ` FROM titles WHERE id = $1`
	var title domain.Title

	s.logger.DebugContext(ctx, "Executing GetTitleByID query", slog.String("titleID", id))
	if err := s.db.GetContext(ctx, &title, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "Title not found by ID in DB", slog.String("titleID", id))
			return nil, ErrTitleNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get title by ID from DB", slog.String("titleID", id), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get title by ID: %w", err)
	}
	if err := s.loadSeasons(ctx, &title); err != nil {
		return nil, err
	}
	return &title, nil
}

// loadSeasons attaches the season tree of a series. Movies are left as is.
func (s *PostgresTitleStore) loadSeasons(ctx context.Context, title *domain.Title) error {
	if title.Kind != domain.KindSeries {
		return nil
	}
	var seasons []domain.Season
	err := s.db.SelectContext(ctx, &seasons,
		`SELECT id, series_id, season_numb, total_episodes FROM seasons WHERE series_id = $1 ORDER BY season_numb`, title.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load seasons from DB", slog.String("titleID", title.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to load seasons: %w", err)
	}

	var episodes []domain.Episode
	err = s.db.SelectContext(ctx, &episodes,
		`SELECT e.id, e.season_id, e.title, e.released, e.episode_numb, e.runtime, e.rating, e.plot, e.poster, e.external_id
		FROM episodes e JOIN seasons s ON s.id = e.season_id
		WHERE s.series_id = $1 ORDER BY s.season_numb, e.episode_numb`, title.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load episodes from DB", slog.String("titleID", title.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to load episodes: %w", err)
	}

	bySeason := make(map[string][]domain.Episode, len(seasons))
	for _, e := range episodes {
		bySeason[e.SeasonID] = append(bySeason[e.SeasonID], e)
	}
	for i := range seasons {
		seasons[i].Episodes = bySeason[seasons[i].ID]
		if seasons[i].Episodes == nil {
			seasons[i].Episodes = []domain.Episode{}
		}
	}
	if seasons == nil {
		seasons = []domain.Season{}
	}
	title.Seasons = seasons
	return nil
}

func (s *PostgresTitleStore) GetSeason(ctx context.Context, seriesExternalID string, seasonNumber int) (*domain.Season, error) {
	var seriesID string
	err := s.db.GetContext(ctx, &seriesID, `SELECT id FROM titles WHERE kind = $1 AND external_id = $2`, domain.KindSeries, seriesExternalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTitleNotFound
		}
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	var season domain.Season
	err = s.db.GetContext(ctx, &season,
		`SELECT id, series_id, season_numb, total_episodes FROM seasons WHERE series_id = $1 AND season_numb = $2`, seriesID, seasonNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	season.Episodes = []domain.Episode{}
	err = s.db.SelectContext(ctx, &season.Episodes,
		`SELECT `+episodeColumns+` FROM episodes WHERE season_id = $1 ORDER BY episode_numb`, season.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load season episodes from DB", slog.String("seasonID", season.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load season episodes: %w", err)
	}
	return &season, nil
}

func (s *PostgresTitleStore) CreateMovie(ctx context.Context, movie *domain.Title) error {
	if movie.Kind != domain.KindMovie {
		return errors.New("CreateMovie called with a non-movie title")
	}
	stampTitle(movie)

	s.logger.DebugContext(ctx, "Executing Create movie query", slog.String("titleID", movie.ID), slog.String("externalID", movie.ExternalID))
	if _, err := s.db.NamedExecContext(ctx, insertTitleQuery, movie); err != nil {
		return s.mapCreateError(ctx, movie, err)
	}
	s.logger.InfoContext(ctx, "Movie created successfully in DB", slog.String("titleID", movie.ID))
	return nil
}

// CreateSeries writes series, seasons and episodes in one transaction so a
// reader never observes a partial tree.
func (s *PostgresTitleStore) CreateSeries(ctx context.Context, series *domain.Title) (err error) {
	if series.Kind != domain.KindSeries {
		return errors.New("CreateSeries called with a non-series title")
	}
	stampTitle(series)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, insertTitleQuery, series); err != nil {
		return s.mapCreateError(ctx, series, err)
	}

	for i := range series.Seasons {
		season := &series.Seasons[i]
		season.SeriesID = series.ID
		season.TotalEpisodes = 0
		if _, err = tx.NamedExecContext(ctx, insertSeasonQuery, season); err != nil {
			return s.mapCreateError(ctx, series, err)
		}
		if len(season.Episodes) > 0 {
			for j := range season.Episodes {
				season.Episodes[j].SeasonID = season.ID
			}
			if _, err = tx.NamedExecContext(ctx, insertEpisodesQuery, season.Episodes); err != nil {
				return s.mapCreateError(ctx, series, err)
			}
		}
		if _, err = tx.ExecContext(ctx, updateSeasonTotalQuery, season.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to update season episode count", slog.String("seasonID", season.ID), slog.String("error", err.Error()))
			return fmt.Errorf("failed to update season episode count: %w", err)
		}
		season.TotalEpisodes = len(season.Episodes)
	}

	if err = tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit series", slog.String("titleID", series.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to commit series: %w", err)
	}
	s.logger.InfoContext(ctx, "Series created successfully in DB",
		slog.String("titleID", series.ID), slog.Int("seasons", len(series.Seasons)))
	return nil
}

func (s *PostgresTitleStore) mapCreateError(ctx context.Context, title *domain.Title, err error) error {
	if pqErr, ok := isUniqueViolation(err); ok {
		s.logger.WarnContext(ctx, "Title already exists (unique constraint violation in DB)",
			slog.String("externalID", title.ExternalID), slog.String("constraint", pqErr.Constraint))
		return ErrTitleAlreadyExists
	}
	s.logger.ErrorContext(ctx, "Failed to create title in DB", slog.String("externalID", title.ExternalID), slog.String("error", err.Error()))
	return fmt.Errorf("failed to create title: %w", err)
}

func stampTitle(t *domain.Title) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.LastRetrieved.IsZero() {
		t.LastRetrieved = now
	}
	if t.Genres == nil {
		t.Genres = pq.StringArray{}
	}
}

func (s *PostgresTitleStore) TouchRetrieved(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE titles SET last_retrieved = $1 WHERE id = $2`, at, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to touch title in DB", slog.String("titleID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to touch title: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrTitleNotFound
	}
	return nil
}

var titleOrderBy = map[string]string{
	SortCreatedDesc:       "created_at DESC",
	SortCreatedAsc:        "created_at ASC",
	SortTitleAsc:          "title ASC",
	SortTitleDesc:         "title DESC",
	SortLastRetrievedDesc: "last_retrieved DESC",
}

func (s *PostgresTitleStore) List(ctx context.Context, params TitleListParams) ([]*domain.Title, int, error) {
	var titles []*domain.Title
	var totalCount int

	countQuery := `SELECT COUNT(*) FROM titles WHERE 1=1`
	selectQuery := `SELECT ` + titleColumns + ` FROM titles WHERE 1=1`

	var args []interface{}
	var conditions []string
	argID := 1

	if params.Kind != "" {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argID))
		args = append(args, params.Kind)
		argID++
	}
	if params.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(genres::text)::text[] @> ARRAY[LOWER($%d::text)]", argID))
		args = append(args, params.Genre)
		argID++
	}
	if params.Year != "" {
		conditions = append(conditions, fmt.Sprintf("year LIKE $%d", argID))
		args = append(args, params.Year+"%")
		argID++
	}
	if params.SearchQuery != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE LOWER($%d)", argID))
		args = append(args, "%"+params.SearchQuery+"%")
		argID++
	}
	if len(conditions) > 0 {
		conditionStr := " AND " + strings.Join(conditions, " AND ")
		countQuery += conditionStr
		selectQuery += conditionStr
	}

	s.logger.DebugContext(ctx, "Executing List titles count query", slog.String("query", countQuery), slog.Any("args", args))
	if err := s.db.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count titles in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count titles: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Title{}, 0, nil
	}

	orderBy, ok := titleOrderBy[params.SortBy]
	if !ok {
		orderBy = titleOrderBy[SortCreatedDesc]
	}
	page, pageSize := normalizePage(params.Page, params.PageSize)
	selectQuery += " ORDER BY " + orderBy
	selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, pageSize, (page-1)*pageSize)

	s.logger.DebugContext(ctx, "Executing List titles select query", slog.String("query", selectQuery), slog.Any("args", args))
	if err := s.db.SelectContext(ctx, &titles, selectQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list titles from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list titles: %w", err)
	}
	return titles, totalCount, nil
}
