// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/score"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD SUMMARY QUERY
// Собирает главный экран пользователя: сегодняшний счёт с разбивкой,
// недельный и месячный счёт, позицию в лидерборде и историю за 7 дней.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardSummaryQuery содержит параметры запроса.
type GetDashboardSummaryQuery struct {
	// UserID - пользователь, для которого собирается экран.
	UserID string

	// Today - день, на который считается сводка. Нулевое значение
	// означает "сейчас" в таймзоне приложения.
	Today time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetDashboardSummaryQuery) Validate() error {
	if _, err := shared.NewUserID(q.UserID); err != nil {
		return err
	}
	if q.Today.IsZero() {
		q.Today = timeutil.Now()
	}
	return nil
}

// AppUsageDTO - минуты одного приложения в разбивке дня.
type AppUsageDTO struct {
	// App - имя приложения.
	App string `json:"app"`

	// Minutes - минуты использования.
	Minutes int `json:"minutes"`
}

// DayHistoryDTO - одна точка истории использования за последние 7 дней.
type DayHistoryDTO struct {
	// Date - день в формате YYYY-MM-DD.
	Date string `json:"date"`

	// TotalMinutes - суммарные минуты за день.
	TotalMinutes int `json:"total_minutes"`

	// DailyScore - дневной счёт (100 за день без записи).
	DailyScore int `json:"daily_score"`

	// Recorded - существовала ли запись за этот день.
	Recorded bool `json:"recorded"`
}

// GetDashboardSummaryResult содержит собранный экран.
type GetDashboardSummaryResult struct {
	// UserID - пользователь.
	UserID string `json:"user_id"`

	// TodayScore - сегодняшний дневной счёт.
	TodayScore int `json:"today_score"`

	// TodayMinutes - сегодняшние суммарные минуты.
	TodayMinutes int `json:"today_minutes"`

	// TodayBreakdown - разбивка дня по приложениям, по убыванию минут.
	TodayBreakdown []AppUsageDTO `json:"today_breakdown"`

	// WeeklyScore - счёт за 7 дней, заканчивающихся сегодня.
	WeeklyScore int `json:"weekly_score"`

	// MonthlyScore - месячный счёт (или оптимистичная оценка).
	MonthlyScore int `json:"monthly_score"`

	// Rank - позиция в месячном лидерборде (0, если пользователя там нет).
	Rank int `json:"rank"`

	// Tier - лига по месячному счёту.
	Tier string `json:"tier"`

	// History - последние 7 дней, от старых к новым.
	History []DayHistoryDTO `json:"history"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetDashboardSummaryHandler обрабатывает запросы сводки.
type GetDashboardSummaryHandler struct {
	aggregator *score.Aggregator
	ranker     *leaderboard.Ranker
	records    usage.RecordStore
	log        *logger.Logger
}

// NewGetDashboardSummaryHandler создаёт обработчик.
func NewGetDashboardSummaryHandler(
	aggregator *score.Aggregator,
	ranker *leaderboard.Ranker,
	records usage.RecordStore,
	log *logger.Logger,
) *GetDashboardSummaryHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetDashboardSummaryHandler{
		aggregator: aggregator,
		ranker:     ranker,
		records:    records,
		log:        log.With(logger.Component("dashboard_query")),
	}
}

// Handle выполняет запрос сводки.
// Сбой чтения любой части уходит вызывающему как FetchFailure:
// сводка либо целая, либо её нет, частичных данных не бывает.
func (h *GetDashboardSummaryHandler) Handle(ctx context.Context, query GetDashboardSummaryQuery) (*GetDashboardSummaryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetDashboardSummary", shared.ErrValidation, "invalid query", err)
	}

	userID := shared.UserID(query.UserID)
	today := query.Today

	todaySummary, err := h.aggregator.ComputeTodayScore(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	weekly, err := h.aggregator.ComputeWeeklyScore(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	monthly, err := h.aggregator.ComputeMonthlyScore(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	rank, err := h.currentRank(ctx, userID)
	if err != nil {
		return nil, err
	}

	history, err := h.weekHistory(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	breakdown := make([]AppUsageDTO, 0, len(todaySummary.PerAppBreakdown))
	for _, entry := range todaySummary.PerAppBreakdown {
		breakdown = append(breakdown, AppUsageDTO{App: entry.App.String(), Minutes: entry.Minutes})
	}

	return &GetDashboardSummaryResult{
		UserID:         query.UserID,
		TodayScore:     todaySummary.DailyScore,
		TodayMinutes:   todaySummary.TotalMinutes,
		TodayBreakdown: breakdown,
		WeeklyScore:    weekly,
		MonthlyScore:   monthly,
		Rank:           int(rank),
		Tier:           leaderboard.TierForScore(monthly).String(),
		History:        history,
		GeneratedAt:    timeutil.Now(),
	}, nil
}

// currentRank пересчитывает лидерборд из агрегатов и находит позицию
// пользователя. Пользователь без агрегата в лидерборд не входит: ранг 0.
func (h *GetDashboardSummaryHandler) currentRank(ctx context.Context, userID shared.UserID) (leaderboard.Rank, error) {
	aggregates, err := h.records.AllMonthlyAggregates(ctx)
	if err != nil {
		return 0, shared.WrapError("query", "GetDashboardSummary", shared.ErrFetchFailure, "reading aggregates", err)
	}

	entries := h.ranker.Rank(aggregates, userID)
	return leaderboard.RankOf(entries, userID), nil
}

// weekHistory собирает точки последних 7 дней, от старых к новым.
// Дни без записи входят с нулевыми минутами и счётом 100.
func (h *GetDashboardSummaryHandler) weekHistory(ctx context.Context, userID shared.UserID, today time.Time) ([]DayHistoryDTO, error) {
	from, to := timeutil.WeekWindow(today)

	records, err := h.records.DailyRecordsInRange(ctx, userID, from, to)
	if err != nil {
		return nil, shared.WrapError("query", "GetDashboardSummary", shared.ErrFetchFailure, "reading weekly records", err)
	}

	byDay := make(map[string]*usage.DailyRecord, len(records))
	for _, record := range records {
		byDay[timeutil.DateKey(record.Date)] = record
	}

	history := make([]DayHistoryDTO, 0, score.WeekDays)
	timeutil.EachDay(from, to, func(day time.Time) bool {
		key := timeutil.DateKey(day)
		if record, ok := byDay[key]; ok {
			history = append(history, DayHistoryDTO{
				Date:         key,
				TotalMinutes: record.TotalMinutes(),
				DailyScore:   record.DailyScore,
				Recorded:     true,
			})
		} else {
			history = append(history, DayHistoryDTO{
				Date:       key,
				DailyScore: usage.PerfectScore,
			})
		}
		return true
	})

	return history, nil
}
