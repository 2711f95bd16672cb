// Package score реализует fair-play агрегацию очков SocialDetox.
// Агрегатор превращает дневные записи использования в сегодняшний,
// недельный и месячный счёт. Он ничего не пишет: только чтение и арифметика.
package score

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// WeekDays - размер недельного окна в календарных днях.
const WeekDays = 7

// TodaySummary - итог сегодняшнего дня.
type TodaySummary struct {
	// TotalMinutes - суммарные минуты по всем приложениям.
	TotalMinutes int

	// DailyScore - дневной счёт (100 при отсутствии записи).
	DailyScore int

	// PerAppBreakdown - разбивка по приложениям, по убыванию минут.
	PerAppBreakdown []usage.AppUsage
}

// Aggregator вычисляет счёты из записей RecordStore.
// Агрегатор без состояния: каждый вызов - независимое чтение плюс
// арифметика. Сбой чтения уходит вызывающему как есть, без повторов;
// следующий пересчёт случится только по следующему refresh.
type Aggregator struct {
	store usage.RecordStore
}

// NewAggregator создаёт агрегатор поверх хранилища записей.
func NewAggregator(store usage.RecordStore) *Aggregator {
	return &Aggregator{store: store}
}

// ─────────────────────────────────────────────────────────────────────────────
// Операции
// ─────────────────────────────────────────────────────────────────────────────

// ComputeTodayScore возвращает итог сегодняшнего дня.
// Отсутствие записи - идеальный день: 0 минут, счёт 100, нулевая разбивка
// в каноническом порядке приложений.
func (a *Aggregator) ComputeTodayScore(ctx context.Context, userID shared.UserID, today time.Time) (*TodaySummary, error) {
	record, err := a.store.DailyRecord(ctx, userID, today)
	if err != nil {
		if shared.IsNotFound(err) {
			empty := &usage.DailyRecord{UserID: userID, Date: timeutil.StartOfDay(today)}
			return &TodaySummary{
				TotalMinutes:    0,
				DailyScore:      usage.PerfectScore,
				PerAppBreakdown: empty.Breakdown(),
			}, nil
		}
		return nil, shared.WrapError("score", "ComputeTodayScore", shared.ErrFetchFailure, "reading daily record", err)
	}

	return &TodaySummary{
		TotalMinutes:    record.TotalMinutes(),
		DailyScore:      record.DailyScore,
		PerAppBreakdown: record.Breakdown(),
	}, nil
}

// ComputeWeeklyScore возвращает счёт за 7 календарных дней,
// заканчивающихся сегодняшним днём включительно.
// Формула: сумма найденных дневных счётов + 100 за каждый день без записи.
// Ноль записей даёт ровно 700. Значения выше 700 возможны, только если
// внешний трекер записал дневной счёт больше 100; здесь это не проверяется.
func (a *Aggregator) ComputeWeeklyScore(ctx context.Context, userID shared.UserID, today time.Time) (int, error) {
	from, to := timeutil.WeekWindow(today)

	records, err := a.store.DailyRecordsInRange(ctx, userID, from, to)
	if err != nil {
		return 0, shared.WrapError("score", "ComputeWeeklyScore", shared.ErrFetchFailure, "reading weekly records", err)
	}

	sum := 0
	for _, record := range records {
		sum += record.DailyScore
	}

	missing := WeekDays - len(records)
	if missing < 0 {
		missing = 0
	}

	return sum + usage.PerfectScore*missing, nil
}

// ComputeMonthlyScore возвращает месячный счёт пользователя.
// При отсутствии агрегата (пользователь появился в середине месяца)
// берётся оптимистичная оценка: день месяца, умноженный на 100.
func (a *Aggregator) ComputeMonthlyScore(ctx context.Context, userID shared.UserID, today time.Time) (int, error) {
	aggregate, err := a.store.MonthlyAggregate(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return timeutil.DayOfMonth(today) * usage.PerfectScore, nil
		}
		return 0, shared.WrapError("score", "ComputeMonthlyScore", shared.ErrFetchFailure, "reading monthly aggregate", err)
	}

	return aggregate.MonthlyScore, nil
}

// SumDailyScores суммирует дневные счёты пользователя за окно [from, to]
// включительно. Дни без записи вклада не дают: в боевом окне бонус за
// пропущенные дни не начисляется, считается только записанное.
func (a *Aggregator) SumDailyScores(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error) {
	records, err := a.store.DailyRecordsInRange(ctx, userID, from, to)
	if err != nil {
		return 0, shared.WrapError("score", "SumDailyScores", shared.ErrFetchFailure, "reading battle window records", err)
	}

	sum := 0
	for _, record := range records {
		sum += record.DailyScore
	}

	return sum, nil
}
