package query

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/leaderboard"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Возвращает месячный лидерборд. Сначала пробует кэш; при промахе
// пересчитывает из агрегатов и кладёт результат обратно.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// CurrentUserID - запрашивающий пользователь; его строка помечается.
	// Пустое значение допустимо: анонимный просмотр без пометки.
	CurrentUserID string

	// Limit - максимум записей (0 = весь лидерборд).
	Limit int

	// SkipCache - пересчитать из агрегатов, минуя кэш.
	// Используется ручным refresh.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrInvalidInput, "limit cannot be negative")
	}
	return nil
}

// LeaderboardEntryDTO - одна строка лидерборда.
type LeaderboardEntryDTO struct {
	// Rank - позиция, начиная с 1.
	Rank int `json:"rank"`

	// UserID - идентификатор пользователя.
	UserID string `json:"user_id"`

	// Username - отображаемое имя.
	Username string `json:"username"`

	// AvatarColor - цвет аватара.
	AvatarColor string `json:"avatar_color"`

	// MonthlyScore - месячный счёт.
	MonthlyScore int `json:"monthly_score"`

	// Tier - лига по месячному счёту.
	Tier string `json:"tier"`

	// IsCurrentUser - строка принадлежит запрашивающему.
	IsCurrentUser bool `json:"is_current_user"`
}

// GetLeaderboardResult содержит результат запроса.
type GetLeaderboardResult struct {
	// Entries - строки лидерборда по возрастанию ранга.
	Entries []LeaderboardEntryDTO `json:"entries"`

	// TotalCount - размер полного лидерборда до обрезки по Limit.
	TotalCount int `json:"total_count"`

	// FromCache - результат пришёл из кэша.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetLeaderboardHandler обрабатывает запросы лидерборда.
type GetLeaderboardHandler struct {
	records usage.RecordStore
	ranker  *leaderboard.Ranker
	cache   leaderboard.Cache
	log     *logger.Logger
}

// NewGetLeaderboardHandler создаёт обработчик.
// Кэш необязателен: nil отключает кэширование совсем.
func NewGetLeaderboardHandler(
	records usage.RecordStore,
	ranker *leaderboard.Ranker,
	cache leaderboard.Cache,
	log *logger.Logger,
) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetLeaderboardHandler{
		records: records,
		ranker:  ranker,
		cache:   cache,
		log:     log.With(logger.Component("leaderboard_query")),
	}
}

// Handle выполняет запрос лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	currentUserID := shared.UserID(query.CurrentUserID)

	if !query.SkipCache {
		if entries, ok := h.fromCache(ctx); ok {
			return h.buildResult(entries, currentUserID, query.Limit, true), nil
		}
	}

	aggregates, err := h.records.AllMonthlyAggregates(ctx)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrFetchFailure, "reading aggregates", err)
	}

	entries := h.ranker.Rank(aggregates, "")

	if h.cache != nil {
		if err := h.cache.StoreEntries(ctx, entries); err != nil {
			// Кэш не критичен: лидерборд уже пересчитан.
			h.log.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}

	return h.buildResult(entries, currentUserID, query.Limit, false), nil
}

// fromCache пробует достать готовый лидерборд из кэша.
func (h *GetLeaderboardHandler) fromCache(ctx context.Context) ([]leaderboard.Entry, bool) {
	if h.cache == nil {
		return nil, false
	}

	entries, err := h.cache.CachedEntries(ctx)
	if err != nil {
		h.log.Warn("leaderboard cache read failed", logger.Err(err))
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}
	return entries, true
}

// buildResult переводит доменные строки в DTO и помечает запрашивающего.
func (h *GetLeaderboardHandler) buildResult(entries []leaderboard.Entry, currentUserID shared.UserID, limit int, fromCache bool) *GetLeaderboardResult {
	total := len(entries)
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	dtos := make([]LeaderboardEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, LeaderboardEntryDTO{
			Rank:          int(entry.Rank),
			UserID:        entry.UserID,
			Username:      entry.Username,
			AvatarColor:   entry.AvatarColor,
			MonthlyScore:  entry.MonthlyScore,
			Tier:          entry.Tier.String(),
			IsCurrentUser: currentUserID.IsValid() && entry.UserID == currentUserID.String(),
		})
	}

	return &GetLeaderboardResult{
		Entries:     dtos,
		TotalCount:  total,
		FromCache:   fromCache,
		GeneratedAt: timeutil.Now(),
	}
}
