package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// fakeRecordStore is an in-memory RecordStore for aggregator tests.
type fakeRecordStore struct {
	records    map[string]*usage.DailyRecord // key: userID|YYYY-MM-DD
	aggregates map[shared.UserID]*usage.MonthlyAggregate
	failReads  bool
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		records:    make(map[string]*usage.DailyRecord),
		aggregates: make(map[shared.UserID]*usage.MonthlyAggregate),
	}
}

func (s *fakeRecordStore) key(userID shared.UserID, day time.Time) string {
	return userID.String() + "|" + timeutil.DateKey(day)
}

func (s *fakeRecordStore) addRecord(userID shared.UserID, day time.Time, score int, minutes map[usage.TrackedApp]int) {
	s.records[s.key(userID, day)] = &usage.DailyRecord{
		UserID:        userID,
		Date:          timeutil.StartOfDay(day),
		PerAppMinutes: minutes,
		DailyScore:    score,
	}
}

func (s *fakeRecordStore) DailyRecord(ctx context.Context, userID shared.UserID, day time.Time) (*usage.DailyRecord, error) {
	if s.failReads {
		return nil, shared.WrapError("usage", "DailyRecord", shared.ErrFetchFailure, "store down", errors.New("connection refused"))
	}
	record, ok := s.records[s.key(userID, day)]
	if !ok {
		return nil, shared.ErrDailyRecordNotFound
	}
	return record, nil
}

func (s *fakeRecordStore) DailyRecordsInRange(ctx context.Context, userID shared.UserID, from, to time.Time) ([]*usage.DailyRecord, error) {
	if s.failReads {
		return nil, shared.WrapError("usage", "DailyRecordsInRange", shared.ErrFetchFailure, "store down", errors.New("connection refused"))
	}
	found := make([]*usage.DailyRecord, 0)
	timeutil.EachDay(from, to, func(day time.Time) bool {
		if record, ok := s.records[s.key(userID, day)]; ok {
			found = append(found, record)
		}
		return true
	})
	return found, nil
}

func (s *fakeRecordStore) MonthlyAggregate(ctx context.Context, userID shared.UserID) (*usage.MonthlyAggregate, error) {
	if s.failReads {
		return nil, shared.WrapError("usage", "MonthlyAggregate", shared.ErrFetchFailure, "store down", errors.New("connection refused"))
	}
	aggregate, ok := s.aggregates[userID]
	if !ok {
		return nil, shared.ErrAggregateNotFound
	}
	return aggregate, nil
}

func (s *fakeRecordStore) AllMonthlyAggregates(ctx context.Context) ([]*usage.MonthlyAggregate, error) {
	if s.failReads {
		return nil, shared.WrapError("usage", "AllMonthlyAggregates", shared.ErrFetchFailure, "store down", errors.New("connection refused"))
	}
	all := make([]*usage.MonthlyAggregate, 0, len(s.aggregates))
	for _, aggregate := range s.aggregates {
		all = append(all, aggregate)
	}
	return all, nil
}

func TestComputeTodayScore_WithRecord(t *testing.T) {
	store := newFakeRecordStore()
	today := timeutil.Date(2026, 3, 15)
	store.addRecord("user1", today, 55, map[usage.TrackedApp]int{
		usage.AppInstagram: 40,
		usage.AppTikTok:    90,
		usage.AppYouTube:   20,
	})

	agg := NewAggregator(store)
	summary, err := agg.ComputeTodayScore(context.Background(), "user1", today)

	assert.NoError(t, err)
	assert.Equal(t, 150, summary.TotalMinutes)
	assert.Equal(t, 55, summary.DailyScore)
	assert.Len(t, summary.PerAppBreakdown, 4)
	assert.Equal(t, usage.AppTikTok, summary.PerAppBreakdown[0].App)
	assert.Equal(t, 90, summary.PerAppBreakdown[0].Minutes)
	assert.Equal(t, usage.AppInstagram, summary.PerAppBreakdown[1].App)
	assert.Equal(t, usage.AppYouTube, summary.PerAppBreakdown[2].App)
	assert.Equal(t, usage.AppSnapchat, summary.PerAppBreakdown[3].App)
	assert.Equal(t, 0, summary.PerAppBreakdown[3].Minutes)
}

func TestComputeTodayScore_BreakdownTiesKeepCanonicalOrder(t *testing.T) {
	store := newFakeRecordStore()
	today := timeutil.Date(2026, 3, 15)
	store.addRecord("user1", today, 80, map[usage.TrackedApp]int{
		usage.AppInstagram: 30,
		usage.AppTikTok:    30,
		usage.AppYouTube:   30,
		usage.AppSnapchat:  30,
	})

	agg := NewAggregator(store)
	summary, err := agg.ComputeTodayScore(context.Background(), "user1", today)

	assert.NoError(t, err)
	assert.Equal(t, usage.AppInstagram, summary.PerAppBreakdown[0].App)
	assert.Equal(t, usage.AppTikTok, summary.PerAppBreakdown[1].App)
	assert.Equal(t, usage.AppYouTube, summary.PerAppBreakdown[2].App)
	assert.Equal(t, usage.AppSnapchat, summary.PerAppBreakdown[3].App)
}

func TestComputeTodayScore_NoRecordIsPerfectDay(t *testing.T) {
	store := newFakeRecordStore()
	agg := NewAggregator(store)

	summary, err := agg.ComputeTodayScore(context.Background(), "user1", timeutil.Date(2026, 3, 15))

	assert.NoError(t, err)
	assert.Equal(t, 0, summary.TotalMinutes)
	assert.Equal(t, 100, summary.DailyScore)
	assert.Len(t, summary.PerAppBreakdown, 4)
	for _, entry := range summary.PerAppBreakdown {
		assert.Equal(t, 0, entry.Minutes)
	}
}

func TestComputeTodayScore_FetchFailurePropagates(t *testing.T) {
	store := newFakeRecordStore()
	store.failReads = true
	agg := NewAggregator(store)

	summary, err := agg.ComputeTodayScore(context.Background(), "user1", timeutil.Date(2026, 3, 15))

	assert.Nil(t, summary)
	assert.True(t, shared.IsFetchFailure(err))
}

func TestComputeWeeklyScore_FullWeek(t *testing.T) {
	store := newFakeRecordStore()
	today := timeutil.Date(2026, 3, 15)
	scores := []int{90, 85, 70, 100, 60, 95, 80}
	for i, score := range scores {
		store.addRecord("user1", timeutil.AddDays(today, -i), score, nil)
	}

	agg := NewAggregator(store)
	weekly, err := agg.ComputeWeeklyScore(context.Background(), "user1", today)

	assert.NoError(t, err)
	assert.Equal(t, 90+85+70+100+60+95+80, weekly)
}

func TestComputeWeeklyScore_MissingDaysCountAsPerfect(t *testing.T) {
	store := newFakeRecordStore()
	today := timeutil.Date(2026, 3, 15)
	store.addRecord("user1", today, 40, nil)
	store.addRecord("user1", timeutil.AddDays(today, -3), 60, nil)

	agg := NewAggregator(store)
	weekly, err := agg.ComputeWeeklyScore(context.Background(), "user1", today)

	assert.NoError(t, err)
	// 40 + 60 plus five missing days at 100 each.
	assert.Equal(t, 600, weekly)
}

func TestComputeWeeklyScore_EmptyWeekIsExactly700(t *testing.T) {
	store := newFakeRecordStore()
	agg := NewAggregator(store)

	weekly, err := agg.ComputeWeeklyScore(context.Background(), "user1", timeutil.Date(2026, 3, 15))

	assert.NoError(t, err)
	assert.Equal(t, 700, weekly)
}

func TestComputeWeeklyScore_IgnoresRecordsOutsideWindow(t *testing.T) {
	store := newFakeRecordStore()
	today := timeutil.Date(2026, 3, 15)
	store.addRecord("user1", timeutil.AddDays(today, -7), 5, nil)
	store.addRecord("user1", timeutil.AddDays(today, 1), 5, nil)

	agg := NewAggregator(store)
	weekly, err := agg.ComputeWeeklyScore(context.Background(), "user1", today)

	assert.NoError(t, err)
	assert.Equal(t, 700, weekly)
}

func TestComputeMonthlyScore_UsesStoredAggregate(t *testing.T) {
	store := newFakeRecordStore()
	store.aggregates["user1"] = &usage.MonthlyAggregate{UserID: "user1", Username: "anna", MonthlyScore: 1234}

	agg := NewAggregator(store)
	monthly, err := agg.ComputeMonthlyScore(context.Background(), "user1", timeutil.Date(2026, 3, 15))

	assert.NoError(t, err)
	assert.Equal(t, 1234, monthly)
}

func TestComputeMonthlyScore_FallbackIsDayOfMonthTimes100(t *testing.T) {
	store := newFakeRecordStore()
	agg := NewAggregator(store)

	for day := 1; day <= 31; day++ {
		monthly, err := agg.ComputeMonthlyScore(context.Background(), "user1", timeutil.Date(2026, 1, day))
		assert.NoError(t, err)
		assert.Equal(t, day*100, monthly)
	}
}

func TestSumDailyScores_NoBonusForMissingDays(t *testing.T) {
	store := newFakeRecordStore()
	from := timeutil.Date(2026, 3, 10)
	store.addRecord("user1", from, 90, nil)
	store.addRecord("user1", timeutil.AddDays(from, 1), 80, nil)

	agg := NewAggregator(store)
	sum, err := agg.SumDailyScores(context.Background(), "user1", from, timeutil.AddDays(from, 4))

	assert.NoError(t, err)
	assert.Equal(t, 170, sum)
}
