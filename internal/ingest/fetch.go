package ingest

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"watchlist-service/internal/catalog"
	"watchlist-service/internal/domain"
)

// Catalog is the part of the catalog client the pipeline depends on.
type Catalog interface {
	NewSession() *catalog.Session
	ResolveByExternalID(ctx context.Context, sess *catalog.Session, externalID string) (*catalog.TitleRecord, error)
	ResolveSeason(ctx context.Context, sess *catalog.Session, seriesExternalID string, seasonNumber int) (*catalog.SeasonRecord, error)
	ResolveEpisode(ctx context.Context, sess *catalog.Session, episodeExternalID string) (*catalog.EpisodeRecord, error)
}

// MaxSeasons bounds how many seasons one series fetch asks for, whatever
// the catalog declares.
const MaxSeasons = 100

// FetchReport counts what was dropped during one series fetch.
type FetchReport struct {
	SeasonsRequested int
	SeasonsFailed    int
	EpisodesListed   int
	EpisodesFailed   int
}

// Orchestrator fans season and episode lookups out over a bounded task
// group. Every task fails on its own: a missing episode never aborts its
// season, a missing season never aborts the series.
type Orchestrator struct {
	catalog        Catalog
	logger         *slog.Logger
	maxConcurrency int
}

func NewOrchestrator(c Catalog, logger *slog.Logger, maxConcurrency int) *Orchestrator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Orchestrator{catalog: c, logger: logger, maxConcurrency: maxConcurrency}
}

type seasonResult struct {
	season domain.Season
	stubs  []catalog.EpisodeStub
	ok     bool
}

// FetchSeasons retrieves seasons 1..totalSeasons of a series and, for each
// season that resolved, every listed episode. Seasons come back ordered by
// number, episodes by episode number. TotalEpisodes still holds the
// declared count; the store rewrites it to what was persisted.
func (o *Orchestrator) FetchSeasons(ctx context.Context, sess *catalog.Session, seriesExternalID string, totalSeasons int) ([]domain.Season, FetchReport) {
	if totalSeasons > MaxSeasons {
		o.logger.WarnContext(ctx, "Declared season count above limit, clamping",
			slog.String("series_id", seriesExternalID), slog.Int("declared", totalSeasons), slog.Int("limit", MaxSeasons))
		totalSeasons = MaxSeasons
	}
	report := FetchReport{SeasonsRequested: totalSeasons}
	if totalSeasons <= 0 {
		return []domain.Season{}, report
	}

	// Phase 1: every season record. Episode ids only exist once a season
	// record has arrived.
	results := make([]seasonResult, totalSeasons)
	var g errgroup.Group
	g.SetLimit(o.maxConcurrency)
	for n := 1; n <= totalSeasons; n++ {
		n := n
		g.Go(func() error {
			rec, err := o.catalog.ResolveSeason(ctx, sess, seriesExternalID, n)
			if err != nil {
				o.logger.WarnContext(ctx, "Skipping season, catalog lookup failed",
					slog.String("series_id", seriesExternalID), slog.Int("season", n), slog.String("error", err.Error()))
				return nil
			}
			season, err := NormalizeSeason(rec)
			if err != nil {
				o.logger.WarnContext(ctx, "Skipping season, malformed record",
					slog.String("series_id", seriesExternalID), slog.Int("season", n), slog.String("error", err.Error()))
				return nil
			}
			results[n-1] = seasonResult{season: season, stubs: rec.Episodes, ok: true}
			return nil
		})
	}
	g.Wait()

	// Phase 2: every listed episode of every resolved season.
	var eg errgroup.Group
	eg.SetLimit(o.maxConcurrency)
	episodes := make([][]*domain.Episode, totalSeasons)
	for si := range results {
		si := si
		if !results[si].ok {
			report.SeasonsFailed++
			continue
		}
		stubs := results[si].stubs
		report.EpisodesListed += len(stubs)
		episodes[si] = make([]*domain.Episode, len(stubs))
		for ei, stub := range stubs {
			ei, stub := ei, stub
			eg.Go(func() error {
				if stub.IMDbID == "" {
					o.logger.WarnContext(ctx, "Skipping episode stub without id",
						slog.String("series_id", seriesExternalID), slog.Int("season", results[si].season.SeasonNumber), slog.String("title", stub.Title))
					return nil
				}
				rec, err := o.catalog.ResolveEpisode(ctx, sess, stub.IMDbID)
				if err != nil {
					o.logger.WarnContext(ctx, "Skipping episode, catalog lookup failed",
						slog.String("series_id", seriesExternalID), slog.String("episode_id", stub.IMDbID), slog.String("error", err.Error()))
					return nil
				}
				ep, err := NormalizeEpisode(rec)
				if err != nil {
					o.logger.WarnContext(ctx, "Skipping episode, malformed record",
						slog.String("series_id", seriesExternalID), slog.String("episode_id", stub.IMDbID), slog.String("error", err.Error()))
					return nil
				}
				episodes[si][ei] = &ep
				return nil
			})
		}
	}
	eg.Wait()

	seasons := make([]domain.Season, 0, totalSeasons)
	seenSeasons := make(map[int]bool, totalSeasons)
	for si, res := range results {
		if !res.ok {
			continue
		}
		if seenSeasons[res.season.SeasonNumber] {
			o.logger.WarnContext(ctx, "Dropping duplicate season number",
				slog.String("series_id", seriesExternalID), slog.Int("season", res.season.SeasonNumber))
			report.SeasonsFailed++
			continue
		}
		seenSeasons[res.season.SeasonNumber] = true

		season := res.season
		season.Episodes = make([]domain.Episode, 0, len(episodes[si]))
		seenEpisodes := make(map[int]bool, len(episodes[si]))
		for _, ep := range episodes[si] {
			if ep == nil {
				report.EpisodesFailed++
				continue
			}
			if seenEpisodes[ep.EpisodeNumber] {
				report.EpisodesFailed++
				continue
			}
			seenEpisodes[ep.EpisodeNumber] = true
			season.Episodes = append(season.Episodes, *ep)
		}
		sort.Slice(season.Episodes, func(i, j int) bool {
			return season.Episodes[i].EpisodeNumber < season.Episodes[j].EpisodeNumber
		})
		seasons = append(seasons, season)
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].SeasonNumber < seasons[j].SeasonNumber })

	o.logger.InfoContext(ctx, "Series fetch finished",
		slog.String("series_id", seriesExternalID),
		slog.Int("seasons_requested", report.SeasonsRequested),
		slog.Int("seasons_failed", report.SeasonsFailed),
		slog.Int("episodes_listed", report.EpisodesListed),
		slog.Int("episodes_failed", report.EpisodesFailed))
	return seasons, report
}
