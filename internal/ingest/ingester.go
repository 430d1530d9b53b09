// Package ingest turns catalog records into persisted titles. A title is
// fetched and stored at most once; afterwards every lookup is served from
// the store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

// Ingester resolves titles by external id, fetching and persisting them on
// first use.
type Ingester struct {
	store   store.TitleStore
	catalog Catalog
	fetcher *Orchestrator
	logger  *slog.Logger
	flights singleflight.Group
	now     func() time.Time
}

func NewIngester(titles store.TitleStore, c Catalog, logger *slog.Logger, maxConcurrency int) *Ingester {
	return &Ingester{
		store:   titles,
		catalog: c,
		fetcher: NewOrchestrator(c, logger, maxConcurrency),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the persisted title for (kind, externalID), ingesting it
// from the catalog when it is not stored yet. Concurrent callers for the
// same key share one ingestion.
func (i *Ingester) Resolve(ctx context.Context, kind domain.Kind, externalID string) (*domain.Title, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fmt.Errorf("%w: external id is required", domain.ErrValidation)
	}
	if kind != domain.KindMovie && kind != domain.KindSeries {
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrValidation, kind)
	}

	title, err := i.store.GetByExternalID(ctx, kind, externalID)
	if err == nil {
		i.touch(ctx, title)
		return title, nil
	}
	if !errors.Is(err, store.ErrTitleNotFound) {
		return nil, err
	}

	key := string(kind) + ":" + externalID
	// The flight outlives the first caller's request so the other waiters
	// still get a result if that caller goes away.
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := i.flights.Do(key, func() (interface{}, error) {
		return i.ingest(flightCtx, kind, externalID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		i.logger.DebugContext(ctx, "Joined in-flight ingestion", slog.String("key", key))
	}
	return v.(*domain.Title), nil
}

func (i *Ingester) touch(ctx context.Context, title *domain.Title) {
	now := i.now()
	if err := i.store.TouchRetrieved(ctx, title.ID, now); err != nil {
		i.logger.WarnContext(ctx, "Failed to update last retrieved", slog.String("titleID", title.ID), slog.String("error", err.Error()))
		return
	}
	title.LastRetrieved = now
}

func (i *Ingester) ingest(ctx context.Context, kind domain.Kind, externalID string) (*domain.Title, error) {
	// Another flight may have finished between the caller's lookup and ours.
	if title, err := i.store.GetByExternalID(ctx, kind, externalID); err == nil {
		return title, nil
	} else if !errors.Is(err, store.ErrTitleNotFound) {
		return nil, err
	}

	sess := i.catalog.NewSession()
	defer sess.Close()

	rec, err := i.catalog.ResolveByExternalID(ctx, sess, externalID)
	if err != nil {
		i.logger.WarnContext(ctx, "Catalog lookup failed", slog.String("externalID", externalID), slog.String("error", err.Error()))
		return nil, err
	}
	if rec.Type != "" && !strings.EqualFold(rec.Type, string(kind)) {
		return nil, fmt.Errorf("%w: %s is a %s, not a %s", domain.ErrNotFound, externalID, rec.Type, strings.ToLower(string(kind)))
	}

	var title *domain.Title
	switch kind {
	case domain.KindMovie:
		if title, err = NormalizeMovie(rec); err != nil {
			return nil, err
		}
		title.ID = uuid.NewString()
		title.LastRetrieved = i.now()
		err = i.store.CreateMovie(ctx, title)
	case domain.KindSeries:
		if title, err = NormalizeSeries(rec); err != nil {
			return nil, err
		}
		seasons, report := i.fetcher.FetchSeasons(ctx, sess, externalID, *title.TotalSeasons)
		title.ID = uuid.NewString()
		title.LastRetrieved = i.now()
		title.Seasons = assignIDs(seasons)
		err = i.store.CreateSeries(ctx, title)
		if err == nil && (report.SeasonsFailed > 0 || report.EpisodesFailed > 0) {
			i.logger.WarnContext(ctx, "Series stored with gaps",
				slog.String("externalID", externalID),
				slog.Int("seasons_failed", report.SeasonsFailed),
				slog.Int("episodes_failed", report.EpisodesFailed))
		}
	}

	if errors.Is(err, store.ErrTitleAlreadyExists) {
		i.logger.InfoContext(ctx, "Title stored concurrently by another writer, using stored copy", slog.String("externalID", externalID))
	} else if err != nil {
		return nil, err
	} else {
		i.logger.InfoContext(ctx, "Title ingested", slog.String("titleID", title.ID),
			slog.String("kind", string(kind)), slog.String("externalID", externalID))
	}
	// Whatever was stored, by us or by the winner of a race, is the answer.
	return i.store.GetByExternalID(ctx, kind, externalID)
}

func assignIDs(seasons []domain.Season) []domain.Season {
	for si := range seasons {
		seasons[si].ID = uuid.NewString()
		for ei := range seasons[si].Episodes {
			seasons[si].Episodes[ei].ID = uuid.NewString()
			seasons[si].Episodes[ei].SeasonID = seasons[si].ID
		}
	}
	return seasons
}

// Season returns one persisted season of a persisted series. With a
// threshold only episodes rated at least minRating are kept.
func (i *Ingester) Season(ctx context.Context, seriesExternalID string, seasonNumber int, minRating *float64) (*domain.Season, error) {
	season, err := i.store.GetSeason(ctx, seriesExternalID, seasonNumber)
	if err != nil {
		return nil, err
	}
	if minRating != nil {
		filtered := season.FilterByRating(*minRating)
		season = &filtered
	}
	return season, nil
}
