package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"watchlist-service/internal/catalog"
	"watchlist-service/internal/domain"
)

// fakeCatalog serves canned records and counts every lookup.
type fakeCatalog struct {
	mu       sync.Mutex
	titles   map[string]*catalog.TitleRecord
	seasons  map[string]*catalog.SeasonRecord
	episodes map[string]*catalog.EpisodeRecord

	calls    atomic.Int64
	sessions atomic.Int64
	delay    time.Duration
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		titles:   make(map[string]*catalog.TitleRecord),
		seasons:  make(map[string]*catalog.SeasonRecord),
		episodes: make(map[string]*catalog.EpisodeRecord),
	}
}

func seasonKey(seriesID string, n int) string {
	return seriesID + "/" + strconv.Itoa(n)
}

func (f *fakeCatalog) addTitle(rec catalog.TitleRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles[rec.IMDbID] = &rec
}

// addSeason registers a season and, for every episode with a rating, a full
// episode record. Episodes passed with an empty rating are listed but
// unresolvable.
func (f *fakeCatalog) addSeason(seriesID string, n int, episodes ...catalog.EpisodeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &catalog.SeasonRecord{Season: strconv.Itoa(n)}
	for _, ep := range episodes {
		rec.Episodes = append(rec.Episodes, catalog.EpisodeStub{Title: ep.Title, Episode: ep.Episode, IMDbID: ep.IMDbID})
		if ep.IMDbRating != "" {
			e := ep
			f.episodes[ep.IMDbID] = &e
		}
	}
	f.seasons[seasonKey(seriesID, n)] = rec
}

func (f *fakeCatalog) NewSession() *catalog.Session {
	f.sessions.Add(1)
	return nil
}

func (f *fakeCatalog) wait(ctx context.Context) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
}

func (f *fakeCatalog) ResolveByExternalID(ctx context.Context, _ *catalog.Session, externalID string) (*catalog.TitleRecord, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.titles[externalID]
	if !ok {
		return nil, fmt.Errorf("resolve %s: %w", externalID, domain.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeCatalog) ResolveSeason(ctx context.Context, _ *catalog.Session, seriesExternalID string, seasonNumber int) (*catalog.SeasonRecord, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.seasons[seasonKey(seriesExternalID, seasonNumber)]
	if !ok {
		return nil, fmt.Errorf("resolve season: %w", domain.ErrNotFound)
	}
	return rec, nil
}

func (f *fakeCatalog) ResolveEpisode(ctx context.Context, _ *catalog.Session, episodeExternalID string) (*catalog.EpisodeRecord, error) {
	f.wait(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.episodes[episodeExternalID]
	if !ok {
		return nil, fmt.Errorf("resolve episode: %w", domain.ErrNotFound)
	}
	return rec, nil
}

func episode(id string, n int, rating string) catalog.EpisodeRecord {
	return catalog.EpisodeRecord{
		Title:      "Episode " + strconv.Itoa(n),
		Released:   "17 Apr 2011",
		Episode:    strconv.Itoa(n),
		Runtime:    "56 min",
		IMDbRating: rating,
		IMDbID:     id,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
