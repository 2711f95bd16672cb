// Package jobs contains the background sweeps that can be scheduled as a
// deliberate extension of the on-read resolution path.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// ExpiredBattleSource lists active battles whose window already closed.
type ExpiredBattleSource interface {
	ExpiredActiveBattles(ctx context.Context, asOf time.Time, limit int) ([]*battle.Battle, error)
}

// ResolveExpiredBattlesJob finishes expired battles in batches.
// The lazy on-read path stays the primary mechanism; this sweep only
// bounds how long a never-viewed battle can linger as active.
type ResolveExpiredBattlesJob struct {
	source    ExpiredBattleSource
	engine    *battle.Engine
	logger    *slog.Logger
	batchSize int
}

// NewResolveExpiredBattlesJob creates the job.
func NewResolveExpiredBattlesJob(source ExpiredBattleSource, engine *battle.Engine, logger *slog.Logger, batchSize int) *ResolveExpiredBattlesJob {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ResolveExpiredBattlesJob{
		source:    source,
		engine:    engine,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Name returns the unique job name.
func (j *ResolveExpiredBattlesJob) Name() string {
	return "resolve_expired_battles"
}

// Description returns a human-readable description.
func (j *ResolveExpiredBattlesJob) Description() string {
	return "Finishes active battles whose window has closed"
}

// Run resolves one batch of expired battles.
// Per-battle failures are logged and skipped; the battle stays active
// and is retried by the next sweep or the next read.
func (j *ResolveExpiredBattlesJob) Run(ctx context.Context) error {
	now := timeutil.Now()

	expired, err := j.source.ExpiredActiveBattles(ctx, now, j.batchSize)
	if err != nil {
		return fmt.Errorf("listing expired battles: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	resolved, failed := 0, 0
	for _, b := range expired {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := j.engine.ResolveIfExpired(ctx, b, now); err != nil {
			j.logger.Warn("sweep could not resolve battle", "battle_id", b.ID, "error", err)
			failed++
			continue
		}
		resolved++
	}

	j.logger.Info("expired battle sweep finished", "resolved", resolved, "failed", failed)

	return nil
}
