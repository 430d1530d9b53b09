package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"watchlist-service/internal/catalog"
	"watchlist-service/internal/domain"
	"watchlist-service/internal/ingest"
	"watchlist-service/internal/store"
)

// TitleResolver is the ingestion entry point the watchlist endpoints use.
type TitleResolver interface {
	Resolve(ctx context.Context, kind domain.Kind, externalID string) (*domain.Title, error)
	Season(ctx context.Context, seriesExternalID string, seasonNumber int, minRating *float64) (*domain.Season, error)
}

// CatalogSearcher proxies free-text searches to the external catalog.
type CatalogSearcher interface {
	Search(ctx context.Context, sess *catalog.Session, query string, page int, year string) (json.RawMessage, error)
}

// WatchlistHandler serves the catalog-backed lookup endpoints.
type WatchlistHandler struct {
	responder
	resolver TitleResolver
	searcher CatalogSearcher
	titles   store.TitleStore
	reviews  store.ReviewStore
}

func NewWatchlistHandler(resolver TitleResolver, searcher CatalogSearcher, titles store.TitleStore, reviews store.ReviewStore, l *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		responder: responder{logger: l},
		resolver:  resolver,
		searcher:  searcher,
		titles:    titles,
		reviews:   reviews,
	}
}

// titleDetail is a title with the first page of its reviews.
type titleDetail struct {
	*domain.Title
	Reviews domain.ReviewPage `json:"reviews"`
}

// parseMinRating reads the optional imdb_rating threshold.
func parseMinRating(r *http.Request) (*float64, error) {
	raw := r.URL.Query().Get("imdb_rating")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: imdb_rating %q", domain.ErrValidation, raw)
	}
	return &v, nil
}

// Search proxies a free-text search and returns the catalog payload as is.
func (h *WatchlistHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("search"))
	h.logger.InfoContext(ctx, "Search endpoint hit", slog.String("search", query))
	if query == "" {
		h.respondFailure(w, r, fmt.Errorf("%w: search is required", domain.ErrValidation))
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}

	raw, err := h.searcher.Search(ctx, nil, query, page, q.Get("year"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		h.logger.ErrorContext(ctx, "Failed to write search response", slog.String("error", err.Error()))
	}
}

// GetByExternalID returns the persisted title, ingesting it on first use.
func (h *WatchlistHandler) GetByExternalID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	kind, ok := domain.ParseKind(q.Get("type"))
	externalID := strings.TrimSpace(q.Get("imdb_id"))
	h.logger.InfoContext(ctx, "Get by external id endpoint hit", slog.String("type", q.Get("type")), slog.String("imdb_id", externalID))
	if !ok || externalID == "" {
		h.respondFailure(w, r, fmt.Errorf("%w: type and imdb_id are required", domain.ErrValidation))
		return
	}
	minRating, err := parseMinRating(r)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	title, err := h.resolver.Resolve(ctx, kind, externalID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if minRating != nil {
		for i, s := range title.Seasons {
			title.Seasons[i] = s.FilterByRating(*minRating)
		}
	}

	page, size := pageParams(r, "size", 5)
	reviews, total, err := h.reviews.ListByTitleID(ctx, title.ID, store.ListReviewsParams{Page: page, PageSize: size})
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, titleDetail{
		Title:   title,
		Reviews: domain.ReviewPage{Count: total, Page: page, PageSize: size, Results: reviews},
	})
}

// GetSeason returns one stored season, optionally filtered by rating. All
// parameters are validated before the store is consulted.
func (h *WatchlistHandler) GetSeason(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	externalID := strings.TrimSpace(q.Get("imdb_id"))
	h.logger.InfoContext(ctx, "Get season endpoint hit", slog.String("imdb_id", externalID), slog.String("season", q.Get("season")))
	if externalID == "" {
		h.respondFailure(w, r, fmt.Errorf("%w: imdb_id is required", domain.ErrValidation))
		return
	}
	seasonNumber, err := ingest.ParsePositiveInt("season", q.Get("season"))
	if err != nil {
		h.respondFailure(w, r, fmt.Errorf("%w: season %q", domain.ErrValidation, q.Get("season")))
		return
	}
	minRating, err := parseMinRating(r)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	season, err := h.resolver.Season(ctx, externalID, seasonNumber, minRating)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, season)
}

// RecentlySearched lists stored titles, most recently retrieved first.
func (h *WatchlistHandler) RecentlySearched(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, limit := pageParams(r, "limit", 10)
	params := store.TitleListParams{Page: page, PageSize: limit, SortBy: store.SortLastRetrievedDesc}

	titles, totalCount, err := h.titles.List(ctx, params)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, titleListResponse{Titles: titles, TotalCount: totalCount, Page: page, PageSize: limit})
}
