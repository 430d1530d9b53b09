package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"watchlist-service/internal/domain"
)

var (
	ErrTitleNotFound      = errors.New("title not found")
	ErrTitleAlreadyExists = errors.New("title with this kind and external id already exists")
	ErrSeasonNotFound     = errors.New("season not found")
)

// Sort orders accepted by TitleListParams.SortBy.
const (
	SortCreatedDesc       = "created_at_desc"
	SortCreatedAsc        = "created_at_asc"
	SortTitleAsc          = "title_asc"
	SortTitleDesc         = "title_desc"
	SortLastRetrievedDesc = "last_retrieved_desc"
)

type TitleListParams struct {
	Page        int
	PageSize    int
	Kind        domain.Kind
	Genre       string
	Year        string
	SearchQuery string
	SortBy      string
}

// TitleStore persists titles and their season/episode trees. Lookups by
// external id are always scoped to a kind.
type TitleStore interface {
	GetByExternalID(ctx context.Context, kind domain.Kind, externalID string) (*domain.Title, error)
	GetByID(ctx context.Context, id string) (*domain.Title, error)
	GetSeason(ctx context.Context, seriesExternalID string, seasonNumber int) (*domain.Season, error)
	CreateMovie(ctx context.Context, movie *domain.Title) error
	// CreateSeries stores the series, its seasons and their episodes
	// atomically. Each season's TotalEpisodes is set to the number of
	// episodes actually stored.
	CreateSeries(ctx context.Context, series *domain.Title) error
	TouchRetrieved(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, params TitleListParams) ([]*domain.Title, int, error)
}

type titleKey struct {
	kind       domain.Kind
	externalID string
}

// MemoryTitleStore keeps titles in process memory. Used by tests and by
// STORE_DRIVER=memory.
type MemoryTitleStore struct {
	mu         sync.RWMutex
	titles     map[string]*domain.Title
	byExternal map[titleKey]string
	logger     *slog.Logger
}

func NewMemoryTitleStore(logger *slog.Logger) *MemoryTitleStore {
	return &MemoryTitleStore{
		titles:     make(map[string]*domain.Title),
		byExternal: make(map[titleKey]string),
		logger:     logger,
	}
}

// copyTitle deep-copies the season tree so callers never share slices with
// the store.
func copyTitle(t *domain.Title) *domain.Title {
	cp := *t
	if t.Genres != nil {
		cp.Genres = append([]string(nil), t.Genres...)
	}
	if t.Seasons != nil {
		cp.Seasons = make([]domain.Season, len(t.Seasons))
		for i, s := range t.Seasons {
			cp.Seasons[i] = copySeason(s)
		}
	}
	return &cp
}

func copySeason(s domain.Season) domain.Season {
	if s.Episodes != nil {
		s.Episodes = append([]domain.Episode(nil), s.Episodes...)
	}
	return s
}

func (m *MemoryTitleStore) GetByExternalID(ctx context.Context, kind domain.Kind, externalID string) (*domain.Title, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byExternal[titleKey{kind, externalID}]
	if !ok {
		return nil, ErrTitleNotFound
	}
	return copyTitle(m.titles[id]), nil
}

func (m *MemoryTitleStore) GetByID(ctx context.Context, id string) (*domain.Title, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.titles[id]
	if !ok {
		return nil, ErrTitleNotFound
	}
	return copyTitle(t), nil
}

func (m *MemoryTitleStore) GetSeason(ctx context.Context, seriesExternalID string, seasonNumber int) (*domain.Season, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byExternal[titleKey{domain.KindSeries, seriesExternalID}]
	if !ok {
		return nil, ErrTitleNotFound
	}
	for _, s := range m.titles[id].Seasons {
		if s.SeasonNumber == seasonNumber {
			cp := copySeason(s)
			return &cp, nil
		}
	}
	return nil, ErrSeasonNotFound
}

func (m *MemoryTitleStore) insert(t *domain.Title) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := titleKey{t.Kind, t.ExternalID}
	if _, exists := m.byExternal[key]; exists {
		return ErrTitleAlreadyExists
	}
	if _, exists := m.titles[t.ID]; exists {
		return ErrTitleAlreadyExists
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.titles[t.ID] = copyTitle(t)
	m.byExternal[key] = t.ID
	return nil
}

func (m *MemoryTitleStore) CreateMovie(ctx context.Context, movie *domain.Title) error {
	if movie.Kind != domain.KindMovie {
		return errors.New("CreateMovie called with a non-movie title")
	}
	if err := m.insert(movie); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Movie stored in memory", slog.String("titleID", movie.ID), slog.String("externalID", movie.ExternalID))
	return nil
}

func (m *MemoryTitleStore) CreateSeries(ctx context.Context, series *domain.Title) error {
	if series.Kind != domain.KindSeries {
		return errors.New("CreateSeries called with a non-series title")
	}
	seen := make(map[int]bool, len(series.Seasons))
	for i := range series.Seasons {
		s := &series.Seasons[i]
		if seen[s.SeasonNumber] {
			return ErrTitleAlreadyExists
		}
		seen[s.SeasonNumber] = true
		s.SeriesID = series.ID
		for j := range s.Episodes {
			s.Episodes[j].SeasonID = s.ID
		}
		s.TotalEpisodes = len(s.Episodes)
	}
	if err := m.insert(series); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Series stored in memory", slog.String("titleID", series.ID),
		slog.String("externalID", series.ExternalID), slog.Int("seasons", len(series.Seasons)))
	return nil
}

func (m *MemoryTitleStore) TouchRetrieved(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.titles[id]
	if !ok {
		return ErrTitleNotFound
	}
	t.LastRetrieved = at
	return nil
}

func (m *MemoryTitleStore) List(ctx context.Context, params TitleListParams) ([]*domain.Title, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []*domain.Title
	for _, t := range m.titles {
		if params.Kind != "" && t.Kind != params.Kind {
			continue
		}
		if params.Genre != "" && !hasGenre(t.Genres, params.Genre) {
			continue
		}
		if params.Year != "" && !strings.HasPrefix(t.Year, params.Year) {
			continue
		}
		if params.SearchQuery != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(params.SearchQuery)) {
			continue
		}
		filtered = append(filtered, t)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		switch params.SortBy {
		case SortTitleAsc:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		case SortTitleDesc:
			return strings.ToLower(a.Title) > strings.ToLower(b.Title)
		case SortCreatedAsc:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortLastRetrievedDesc:
			return a.LastRetrieved.After(b.LastRetrieved)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	totalCount := len(filtered)
	page, pageSize := normalizePage(params.Page, params.PageSize)
	start := (page - 1) * pageSize
	if start >= totalCount {
		return []*domain.Title{}, totalCount, nil
	}
	end := min(start+pageSize, totalCount)

	result := make([]*domain.Title, 0, end-start)
	for _, t := range filtered[start:end] {
		cp := copyTitle(t)
		// Listings never carry the season tree.
		cp.Seasons = nil
		result = append(result, cp)
	}
	return result, totalCount, nil
}

func hasGenre(genres []string, genre string) bool {
	for _, g := range genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}
