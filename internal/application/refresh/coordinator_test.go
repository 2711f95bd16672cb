package refresh

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/socialdetox/detox-hub/internal/application/query"
	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/score"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// memRecords is an in-memory usage.RecordStore.
type memRecords struct {
	records    map[string]*usage.DailyRecord
	aggregates []*usage.MonthlyAggregate
	fail       bool
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]*usage.DailyRecord)}
}

func (m *memRecords) add(userID shared.UserID, day time.Time, scoreValue int) {
	m.records[userID.String()+"|"+timeutil.DateKey(day)] = &usage.DailyRecord{
		UserID:     userID,
		Date:       timeutil.StartOfDay(day),
		DailyScore: scoreValue,
	}
}

func (m *memRecords) DailyRecord(ctx context.Context, userID shared.UserID, day time.Time) (*usage.DailyRecord, error) {
	if m.fail {
		return nil, shared.WrapError("usage", "DailyRecord", shared.ErrFetchFailure, "store down", errors.New("boom"))
	}
	record, ok := m.records[userID.String()+"|"+timeutil.DateKey(day)]
	if !ok {
		return nil, shared.ErrDailyRecordNotFound
	}
	return record, nil
}

func (m *memRecords) DailyRecordsInRange(ctx context.Context, userID shared.UserID, from, to time.Time) ([]*usage.DailyRecord, error) {
	if m.fail {
		return nil, shared.WrapError("usage", "DailyRecordsInRange", shared.ErrFetchFailure, "store down", errors.New("boom"))
	}
	out := make([]*usage.DailyRecord, 0)
	timeutil.EachDay(from, to, func(day time.Time) bool {
		if record, ok := m.records[userID.String()+"|"+timeutil.DateKey(day)]; ok {
			out = append(out, record)
		}
		return true
	})
	return out, nil
}

func (m *memRecords) MonthlyAggregate(ctx context.Context, userID shared.UserID) (*usage.MonthlyAggregate, error) {
	if m.fail {
		return nil, shared.WrapError("usage", "MonthlyAggregate", shared.ErrFetchFailure, "store down", errors.New("boom"))
	}
	for _, aggregate := range m.aggregates {
		if aggregate.UserID == userID {
			return aggregate, nil
		}
	}
	return nil, shared.ErrAggregateNotFound
}

func (m *memRecords) AllMonthlyAggregates(ctx context.Context) ([]*usage.MonthlyAggregate, error) {
	if m.fail {
		return nil, shared.WrapError("usage", "AllMonthlyAggregates", shared.ErrFetchFailure, "store down", errors.New("boom"))
	}
	return m.aggregates, nil
}

// memBattles is an in-memory battle.Store.
type memBattles struct {
	battles map[string]*battle.Battle
}

func newMemBattles() *memBattles {
	return &memBattles{battles: make(map[string]*battle.Battle)}
}

func (m *memBattles) BattleByID(ctx context.Context, id string) (*battle.Battle, error) {
	b, ok := m.battles[id]
	if !ok {
		return nil, shared.ErrBattleNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *memBattles) BattlesFor(ctx context.Context, userID shared.UserID) ([]*battle.Battle, error) {
	out := make([]*battle.Battle, 0)
	for _, b := range m.battles {
		if b.Involves(userID) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memBattles) InsertIfAbsent(ctx context.Context, b *battle.Battle) error {
	for _, existing := range m.battles {
		if existing.Status.IsLive() && existing.SamePairAs(b.ChallengerID, b.OpponentID) {
			return shared.ErrConflictOnWrite
		}
	}
	clone := *b
	m.battles[b.ID] = &clone
	return nil
}

func (m *memBattles) Update(ctx context.Context, b *battle.Battle) error {
	clone := *b
	m.battles[b.ID] = &clone
	return nil
}

func (m *memBattles) Delete(ctx context.Context, id string) error {
	delete(m.battles, id)
	return nil
}

// memCache is an in-memory leaderboard.Cache counting invalidations.
type memCache struct {
	mu           sync.Mutex
	entries      []leaderboard.Entry
	invalidated  int
	storedCycles int
}

func (m *memCache) CachedEntries(ctx context.Context) ([]leaderboard.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, nil
}

func (m *memCache) StoreEntries(ctx context.Context, entries []leaderboard.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.storedCycles++
	return nil
}

func (m *memCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.invalidated++
	return nil
}

type fixture struct {
	records     *memRecords
	battleStore *memBattles
	cache       *memCache
	engine      *battle.Engine
	coordinator *Coordinator
}

func newFixture(now time.Time) *fixture {
	log := logger.New(logger.Options{Output: io.Discard})
	records := newMemRecords()
	battleStore := newMemBattles()
	cache := &memCache{}

	aggregator := score.NewAggregator(records)
	ranker := leaderboard.NewRanker()
	engine := battle.NewEngine(battleStore, aggregator, log).WithClock(func() time.Time { return now })

	coordinator := NewCoordinator(
		query.NewGetDashboardSummaryHandler(aggregator, ranker, records, log),
		query.NewGetLeaderboardHandler(records, ranker, cache, log),
		query.NewGetBattlesHandler(engine, log),
		cache,
		log,
	)

	return &fixture{
		records:     records,
		battleStore: battleStore,
		cache:       cache,
		engine:      engine,
		coordinator: coordinator,
	}
}

func TestRefresh_SessionStartProducesFullResult(t *testing.T) {
	today := timeutil.Date(2026, 3, 15)
	f := newFixture(today)

	f.records.add("alice", today, 60)
	f.records.aggregates = []*usage.MonthlyAggregate{
		{UserID: "alice", Username: "alice", MonthlyScore: 1400},
		{UserID: "bob", Username: "bob", MonthlyScore: 900},
	}

	result, err := f.coordinator.Refresh(context.Background(), Request{
		UserID:  "alice",
		Trigger: TriggerSessionStart,
		Today:   today,
	})

	assert.NoError(t, err)
	assert.True(t, result.Ok())
	assert.NotNil(t, result.Dashboard)
	assert.NotNil(t, result.Leaderboard)
	assert.NotNil(t, result.Battles)

	assert.Equal(t, 60, result.Dashboard.TodayScore)
	assert.Equal(t, 1400, result.Dashboard.MonthlyScore)
	assert.Equal(t, 1, result.Dashboard.Rank)
	assert.Len(t, result.Dashboard.History, 7)

	assert.Len(t, result.Leaderboard.Entries, 2)
	assert.True(t, result.Leaderboard.Entries[0].IsCurrentUser)
}

func TestRefresh_BattlesViewOnlyTouchesBattles(t *testing.T) {
	today := timeutil.Date(2026, 3, 15)
	f := newFixture(today)

	result, err := f.coordinator.Refresh(context.Background(), Request{
		UserID:  "alice",
		Trigger: TriggerBattlesView,
		Today:   today,
	})

	assert.NoError(t, err)
	assert.Nil(t, result.Dashboard)
	assert.Nil(t, result.Leaderboard)
	assert.NotNil(t, result.Battles)
}

func TestRefresh_BattlesViewResolvesExpired(t *testing.T) {
	start := timeutil.Date(2026, 3, 1)
	f := newFixture(start)

	created, err := f.engine.Challenge(context.Background(), "alice", "bob", battle.Duration1Day)
	assert.NoError(t, err)
	_, err = f.engine.Accept(context.Background(), created.ID, "bob")
	assert.NoError(t, err)

	f.records.add("alice", start, 90)
	f.records.add("bob", start, 40)

	today := timeutil.AddDays(start, 3)
	result, err := f.coordinator.Refresh(context.Background(), Request{
		UserID:  "alice",
		Trigger: TriggerBattlesView,
		Today:   today,
	})

	assert.NoError(t, err)
	assert.Len(t, result.Battles.Battles, 1)
	resolved := result.Battles.Battles[0]
	assert.Equal(t, "finished", resolved.Status)
	assert.NotNil(t, resolved.WinnerID)
	assert.Equal(t, "alice", *resolved.WinnerID)
	assert.Equal(t, 90, resolved.ChallengerScore)
	assert.Equal(t, 40, resolved.OpponentScore)
}

func TestRefresh_ManualRefreshInvalidatesCache(t *testing.T) {
	today := timeutil.Date(2026, 3, 15)
	f := newFixture(today)
	f.records.aggregates = []*usage.MonthlyAggregate{{UserID: "alice", Username: "alice", MonthlyScore: 700}}

	// Prime the cache through a session-start cycle.
	_, err := f.coordinator.Refresh(context.Background(), Request{UserID: "alice", Trigger: TriggerSessionStart, Today: today})
	assert.NoError(t, err)
	assert.Equal(t, 1, f.cache.storedCycles)

	result, err := f.coordinator.Refresh(context.Background(), Request{UserID: "alice", Trigger: TriggerManualRefresh, Today: today})

	assert.NoError(t, err)
	assert.Equal(t, 1, f.cache.invalidated)
	assert.NotNil(t, result.Leaderboard)
	assert.False(t, result.Leaderboard.FromCache)
	assert.Equal(t, 2, f.cache.storedCycles)
}

func TestRefresh_FetchFailureReportsSectionAndContinues(t *testing.T) {
	today := timeutil.Date(2026, 3, 15)
	f := newFixture(today)
	f.records.fail = true

	result, err := f.coordinator.Refresh(context.Background(), Request{
		UserID:  "alice",
		Trigger: TriggerSessionStart,
		Today:   today,
	})

	assert.NoError(t, err)
	assert.False(t, result.Ok())
	assert.Nil(t, result.Dashboard)
	assert.True(t, shared.IsFetchFailure(result.Failures["dashboard"]))
	// Battle list has no usage reads pending, so it still succeeds.
	assert.NotNil(t, result.Battles)
}

func TestRefresh_UnknownTriggerRejected(t *testing.T) {
	f := newFixture(timeutil.Now())

	result, err := f.coordinator.Refresh(context.Background(), Request{UserID: "alice", Trigger: "on_blur"})

	assert.Nil(t, result)
	assert.Error(t, err)
}
