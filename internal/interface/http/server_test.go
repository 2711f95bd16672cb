package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/socialdetox/detox-hub/config"
	"github.com/socialdetox/detox-hub/internal/application/command"
	"github.com/socialdetox/detox-hub/internal/application/query"
	"github.com/socialdetox/detox-hub/internal/application/refresh"
	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/score"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// testRecords is an in-memory usage.RecordStore.
type testRecords struct {
	records    map[string]*usage.DailyRecord
	aggregates []*usage.MonthlyAggregate
	fail       bool
}

func newTestRecords() *testRecords {
	return &testRecords{records: make(map[string]*usage.DailyRecord)}
}

func (m *testRecords) add(userID shared.UserID, day time.Time, scoreValue int) {
	m.records[userID.String()+"|"+timeutil.DateKey(day)] = &usage.DailyRecord{
		UserID:     userID,
		Date:       timeutil.StartOfDay(day),
		DailyScore: scoreValue,
	}
}

func (m *testRecords) DailyRecord(ctx context.Context, userID shared.UserID, day time.Time) (*usage.DailyRecord, error) {
	if m.fail {
		return nil, shared.WrapError("usage", "DailyRecord", shared.ErrFetchFailure, "store down", errors.New("boom"))
	}
	record, ok := m.records[userID.String()+"|"+timeutil.DateKey(day)]
	if !ok {
		return nil, shared.ErrDailyRecordNotFound
	}
	return record, nil
}

func (m *testRecords) DailyRecordsInRange(ctx context.Context, userID shared.UserID, from, to time.Time) ([]*usage.DailyRecord, error) {
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

func (m *testRecords) MonthlyAggregate(ctx context.Context, userID shared.UserID) (*usage.MonthlyAggregate, error) {
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

func (m *testRecords) AllMonthlyAggregates(ctx context.Context) ([]*usage.MonthlyAggregate, error) {
	if m.fail {
		return nil, shared.WrapError("usage", "AllMonthlyAggregates", shared.ErrFetchFailure, "store down", errors.New("boom"))
	}
	return m.aggregates, nil
}

// testBattles is an in-memory battle.Store.
type testBattles struct {
	battles map[string]*battle.Battle
}

func newTestBattles() *testBattles {
	return &testBattles{battles: make(map[string]*battle.Battle)}
}

func (m *testBattles) BattleByID(ctx context.Context, id string) (*battle.Battle, error) {
	b, ok := m.battles[id]
	if !ok {
		return nil, shared.ErrBattleNotFound
	}
	clone := *b
	return &clone, nil
}

func (m *testBattles) BattlesFor(ctx context.Context, userID shared.UserID) ([]*battle.Battle, error) {
	out := make([]*battle.Battle, 0)
	for _, b := range m.battles {
		if b.Involves(userID) {
			clone := *b
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *testBattles) InsertIfAbsent(ctx context.Context, b *battle.Battle) error {
	for _, existing := range m.battles {
		if existing.Status.IsLive() && existing.SamePairAs(b.ChallengerID, b.OpponentID) {
			return shared.ErrConflictOnWrite
		}
	}
	clone := *b
	m.battles[b.ID] = &clone
	return nil
}

func (m *testBattles) Update(ctx context.Context, b *battle.Battle) error {
	clone := *b
	m.battles[b.ID] = &clone
	return nil
}

func (m *testBattles) Delete(ctx context.Context, id string) error {
	delete(m.battles, id)
	return nil
}

type serverFixture struct {
	records *testRecords
	store   *testBattles
	engine  *battle.Engine
	flags   *config.FeatureFlags
	server  *Server
}

func newServerFixture(t *testing.T, now time.Time) *serverFixture {
	t.Helper()

	log := logger.New(logger.Options{Output: io.Discard})
	records := newTestRecords()
	store := newTestBattles()

	aggregator := score.NewAggregator(records)
	ranker := leaderboard.NewRanker()
	engine := battle.NewEngine(store, aggregator, log).WithClock(func() time.Time { return now })

	dashboard := query.NewGetDashboardSummaryHandler(aggregator, ranker, records, log)
	board := query.NewGetLeaderboardHandler(records, ranker, nil, log)
	battles := query.NewGetBattlesHandler(engine, log)
	coordinator := refresh.NewCoordinator(dashboard, board, battles, nil, log)

	flags := config.LoadFeatureFlags()

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	server := NewServer(cfg, Dependencies{
		Dashboard:    dashboard,
		Leaderboard:  board,
		Battles:      battles,
		Challenge:    command.NewChallengeUserHandler(engine, log),
		AcceptBattle: command.NewAcceptBattleHandler(engine, log),
		DeleteBattle: command.NewDeleteBattleHandler(engine, log),
		Coordinator:  coordinator,
		Features:     flags,
		Logger:       log,
	})

	return &serverFixture{
		records: records,
		store:   store,
		engine:  engine,
		flags:   flags,
		server:  server,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestServer_HealthAndLiveness(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, env := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, _ = f.do(t, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDHeaderSet(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, _ := f.do(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_DashboardReturnsSummary(t *testing.T) {
	now := timeutil.Now()
	f := newServerFixture(t, now)
	f.records.add("alice", now, 60)
	f.records.aggregates = []*usage.MonthlyAggregate{
		{UserID: "alice", Username: "alice", MonthlyScore: 1400},
	}

	rec, env := f.do(t, http.MethodGet, "/api/v1/users/alice/dashboard", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var result query.GetDashboardSummaryResult
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 60, result.TodayScore)
	assert.Equal(t, 1400, result.MonthlyScore)
	assert.Equal(t, 1, result.Rank)
	assert.Len(t, result.History, 7)
}

func TestServer_DashboardStoreFailureMapsTo502(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())
	f.records.fail = true

	rec, env := f.do(t, http.MethodGet, "/api/v1/users/alice/dashboard", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "fetch_failure", env.Error.Code)
}

func TestServer_LeaderboardMarksCurrentUser(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())
	f.records.aggregates = []*usage.MonthlyAggregate{
		{UserID: "alice", Username: "alice", MonthlyScore: 900},
		{UserID: "bob", Username: "bob", MonthlyScore: 1200},
	}

	rec, env := f.do(t, http.MethodGet, "/api/v1/leaderboard?user_id=alice", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var result query.GetLeaderboardResult
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Len(t, result.Entries, 2)
	assert.Equal(t, "bob", result.Entries[0].UserID)
	assert.False(t, result.Entries[0].IsCurrentUser)
	assert.True(t, result.Entries[1].IsCurrentUser)
}

func TestServer_LeaderboardLimitValidation(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, env := f.do(t, http.MethodGet, "/api/v1/leaderboard?limit=banana", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestServer_ChallengeCreatesBattle(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, env := f.do(t, http.MethodPost, "/api/v1/battles", challengeRequest{
		ChallengerID: "alice",
		OpponentID:   "bob",
		Duration:     "7_days",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	var result command.ChallengeUserResult
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotEmpty(t, result.BattleID)
	assert.Equal(t, "pending", result.Status)
}

func TestServer_DuplicateChallengeMapsTo409(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	body := challengeRequest{ChallengerID: "alice", OpponentID: "bob", Duration: "1_day"}
	rec, _ := f.do(t, http.MethodPost, "/api/v1/battles", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reversed pair counts as the same live pair.
	rec, env := f.do(t, http.MethodPost, "/api/v1/battles", challengeRequest{
		ChallengerID: "bob",
		OpponentID:   "alice",
		Duration:     "7_days",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_challenge", env.Error.Code)
}

func TestServer_InvalidDurationMapsTo400(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, env := f.do(t, http.MethodPost, "/api/v1/battles", challengeRequest{
		ChallengerID: "alice",
		OpponentID:   "bob",
		Duration:     "2_weeks",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)
}

func TestServer_SelfChallengeMapsTo400(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, _ := f.do(t, http.MethodPost, "/api/v1/battles", challengeRequest{
		ChallengerID: "alice",
		OpponentID:   "alice",
		Duration:     "1_day",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BattlesFeatureGate(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())
	assert.NoError(t, f.flags.DisableFeature(config.FeatureBattles))

	rec, env := f.do(t, http.MethodPost, "/api/v1/battles", challengeRequest{
		ChallengerID: "alice",
		OpponentID:   "bob",
		Duration:     "1_day",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "feature_disabled", env.Error.Code)
}

func TestServer_AcceptByOutsiderMapsTo403(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	created, err := f.engine.Challenge(context.Background(), "alice", "bob", battle.Duration1Day)
	assert.NoError(t, err)

	rec, env := f.do(t, http.MethodPost, "/api/v1/battles/"+created.ID+"/accept", acceptRequest{CallerID: "mallory"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Error.Code)
}

func TestServer_AcceptUnknownBattleMapsTo404(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, env := f.do(t, http.MethodPost, "/api/v1/battles/no-such-battle/accept", acceptRequest{CallerID: "bob"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestServer_AcceptActivatesBattle(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	created, err := f.engine.Challenge(context.Background(), "alice", "bob", battle.Duration7Days)
	assert.NoError(t, err)

	rec, env := f.do(t, http.MethodPost, "/api/v1/battles/"+created.ID+"/accept", acceptRequest{CallerID: "bob"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var result command.AcceptBattleResult
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "active", result.Status)
}

func TestServer_DeleteBattleAlwaysSucceeds(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	created, err := f.engine.Challenge(context.Background(), "alice", "bob", battle.Duration1Day)
	assert.NoError(t, err)

	rec, _ := f.do(t, http.MethodDelete, "/api/v1/battles/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Deleting again is idempotent.
	rec, _ = f.do(t, http.MethodDelete, "/api/v1/battles/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RefreshRunsCycle(t *testing.T) {
	now := timeutil.Now()
	f := newServerFixture(t, now)
	f.records.add("alice", now, 75)

	rec, env := f.do(t, http.MethodPost, "/api/v1/users/alice/refresh?trigger=session_start", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var result refresh.Result
	assert.NoError(t, json.Unmarshal(env.Data, &result))
	assert.NotNil(t, result.Dashboard)
	assert.Equal(t, 75, result.Dashboard.TodayScore)
}

func TestServer_RefreshUnknownTriggerMapsTo400(t *testing.T) {
	f := newServerFixture(t, timeutil.Now())

	rec, _ := f.do(t, http.MethodPost, "/api/v1/users/alice/refresh?trigger=on_blur", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
