// Package refresh orchestrates when scoring, ranking and battle resolution
// re-run. Computation is triggered on demand only: session start, a manual
// refresh action, or activation of the battles view. The coordinator holds
// no state between calls; every refresh returns an explicit result and
// overlapping refreshes converge because the underlying reads are
// idempotent.
package refresh

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/application/query"
	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// Trigger identifies what caused a refresh cycle.
type Trigger string

const (
	// TriggerSessionStart runs the full cycle when a user session opens.
	TriggerSessionStart Trigger = "session_start"
	// TriggerManualRefresh runs the full cycle bypassing caches.
	TriggerManualRefresh Trigger = "manual_refresh"
	// TriggerBattlesView refreshes only the battle list, which also
	// resolves expired battles as a side effect of the read.
	TriggerBattlesView Trigger = "battles_view"
)

// IsValid checks the trigger is known.
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerSessionStart, TriggerManualRefresh, TriggerBattlesView:
		return true
	}
	return false
}

// Request describes one refresh cycle.
type Request struct {
	// UserID is the user the cycle runs for.
	UserID string

	// Trigger is what caused the cycle.
	Trigger Trigger

	// Today pins the cycle to a day; zero means now.
	Today time.Time
}

// Result carries everything a refresh cycle produced. Sections that were
// not part of the cycle, or whose read failed, are nil; failures are
// listed in Failures so the caller can show stale data for just that
// section. A failed section is never retried inside the cycle.
type Result struct {
	// Trigger is the cause of this cycle.
	Trigger Trigger

	// Dashboard is the user's score summary, nil if skipped or failed.
	Dashboard *query.GetDashboardSummaryResult

	// Leaderboard is the ranked monthly leaderboard, nil if skipped or failed.
	Leaderboard *query.GetLeaderboardResult

	// Battles is the user's battle list, nil if skipped or failed.
	Battles *query.GetBattlesResult

	// Failures maps section name to the error that sank it.
	Failures map[string]error

	// StartedAt and FinishedAt bound the cycle.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Ok reports whether every requested section succeeded.
func (r *Result) Ok() bool {
	return len(r.Failures) == 0
}

// Coordinator runs refresh cycles over the query handlers.
type Coordinator struct {
	dashboard   *query.GetDashboardSummaryHandler
	leaderboard *query.GetLeaderboardHandler
	battles     *query.GetBattlesHandler
	cache       leaderboard.Cache
	log         *logger.Logger
}

// NewCoordinator creates the coordinator. The cache is optional; without
// it a manual refresh simply recomputes.
func NewCoordinator(
	dashboard *query.GetDashboardSummaryHandler,
	leaderboardQ *query.GetLeaderboardHandler,
	battles *query.GetBattlesHandler,
	cache leaderboard.Cache,
	log *logger.Logger,
) *Coordinator {
	if log == nil {
		log = logger.Default()
	}
	return &Coordinator{
		dashboard:   dashboard,
		leaderboard: leaderboardQ,
		battles:     battles,
		cache:       cache,
		log:         log.With(logger.Component("refresh_coordinator")),
	}
}

// Refresh runs one cycle. Section failures do not abort the cycle: each
// section is attempted once, errors are logged and reported in the
// result, and the next user-triggered refresh is the only retry path.
func (c *Coordinator) Refresh(ctx context.Context, req Request) (*Result, error) {
	if _, err := shared.NewUserID(req.UserID); err != nil {
		return nil, shared.WrapError("refresh", "Refresh", shared.ErrValidation, "invalid user id", err)
	}
	if !req.Trigger.IsValid() {
		return nil, shared.NewDomainError("refresh", "Refresh", shared.ErrInvalidInput, "unknown refresh trigger")
	}
	today := req.Today
	if today.IsZero() {
		today = timeutil.Now()
	}

	result := &Result{
		Trigger:   req.Trigger,
		Failures:  make(map[string]error),
		StartedAt: timeutil.Now(),
	}

	skipCache := req.Trigger == TriggerManualRefresh
	if skipCache && c.cache != nil {
		if err := c.cache.Invalidate(ctx); err != nil {
			// Recompute proceeds anyway; a stale cache entry expires on TTL.
			c.log.Warn("leaderboard cache invalidation failed", logger.Err(err))
		}
	}

	if req.Trigger == TriggerSessionStart || req.Trigger == TriggerManualRefresh {
		c.refreshDashboard(ctx, req.UserID, today, result)
		c.refreshLeaderboard(ctx, req.UserID, skipCache, result)
	}

	// Reading the battle list resolves expired battles lazily.
	c.refreshBattles(ctx, req.UserID, today, result)

	result.FinishedAt = timeutil.Now()

	c.log.Info("refresh cycle finished",
		logger.UserID(req.UserID),
		logger.String("trigger", string(req.Trigger)),
		logger.Int("failures", len(result.Failures)),
		logger.Latency(result.FinishedAt.Sub(result.StartedAt)),
	)

	return result, nil
}

func (c *Coordinator) refreshDashboard(ctx context.Context, userID string, today time.Time, result *Result) {
	dashboard, err := c.dashboard.Handle(ctx, query.GetDashboardSummaryQuery{UserID: userID, Today: today})
	if err != nil {
		c.log.Warn("dashboard refresh failed", logger.UserID(userID), logger.Err(err))
		result.Failures["dashboard"] = err
		return
	}
	result.Dashboard = dashboard
}

func (c *Coordinator) refreshLeaderboard(ctx context.Context, userID string, skipCache bool, result *Result) {
	lb, err := c.leaderboard.Handle(ctx, query.GetLeaderboardQuery{CurrentUserID: userID, SkipCache: skipCache})
	if err != nil {
		c.log.Warn("leaderboard refresh failed", logger.UserID(userID), logger.Err(err))
		result.Failures["leaderboard"] = err
		return
	}
	result.Leaderboard = lb
}

func (c *Coordinator) refreshBattles(ctx context.Context, userID string, today time.Time, result *Result) {
	battles, err := c.battles.Handle(ctx, query.GetBattlesQuery{UserID: userID, Today: today})
	if err != nil {
		c.log.Warn("battles refresh failed", logger.UserID(userID), logger.Err(err))
		result.Failures["battles"] = err
		return
	}
	result.Battles = battles
}
