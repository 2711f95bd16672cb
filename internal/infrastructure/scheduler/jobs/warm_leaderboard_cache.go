package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
)

// WarmLeaderboardCacheJob recomputes the monthly leaderboard from the
// aggregates and pushes it into the cache, so the first read after a
// quiet period does not pay the recompute.
type WarmLeaderboardCacheJob struct {
	records usage.RecordStore
	ranker  *leaderboard.Ranker
	cache   leaderboard.Cache
	logger  *slog.Logger
}

// NewWarmLeaderboardCacheJob creates the job.
func NewWarmLeaderboardCacheJob(records usage.RecordStore, ranker *leaderboard.Ranker, cache leaderboard.Cache, logger *slog.Logger) *WarmLeaderboardCacheJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &WarmLeaderboardCacheJob{
		records: records,
		ranker:  ranker,
		cache:   cache,
		logger:  logger,
	}
}

// Name returns the unique job name.
func (j *WarmLeaderboardCacheJob) Name() string {
	return "warm_leaderboard_cache"
}

// Description returns a human-readable description.
func (j *WarmLeaderboardCacheJob) Description() string {
	return "Recomputes the monthly leaderboard and refreshes the cache"
}

// Run recomputes and caches the leaderboard once.
func (j *WarmLeaderboardCacheJob) Run(ctx context.Context) error {
	aggregates, err := j.records.AllMonthlyAggregates(ctx)
	if err != nil {
		return fmt.Errorf("reading aggregates: %w", err)
	}

	entries := j.ranker.Rank(aggregates, "")

	if err := j.cache.StoreEntries(ctx, entries); err != nil {
		return fmt.Errorf("storing leaderboard cache: %w", err)
	}

	j.logger.Info("leaderboard cache warmed", "entries", len(entries))

	return nil
}
