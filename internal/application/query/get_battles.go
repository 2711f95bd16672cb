package query

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BATTLES QUERY
// Возвращает батлы пользователя с живыми счётами. Чтение с побочным
// эффектом: просроченные активные батлы завершаются прямо здесь.
// Это единственный штатный путь разрешения; фоновой уборки по
// умолчанию нет.
// ══════════════════════════════════════════════════════════════════════════════

// GetBattlesQuery содержит параметры запроса батлов.
type GetBattlesQuery struct {
	// UserID - участник, чьи батлы запрашиваются.
	UserID string

	// Today - день запроса. Нулевое значение означает "сейчас".
	Today time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetBattlesQuery) Validate() error {
	if _, err := shared.NewUserID(q.UserID); err != nil {
		return err
	}
	if q.Today.IsZero() {
		q.Today = timeutil.Now()
	}
	return nil
}

// BattleDTO - один батл в списке пользователя.
type BattleDTO struct {
	// ID - идентификатор батла.
	ID string `json:"id"`

	// ChallengerID - кто бросил вызов.
	ChallengerID string `json:"challenger_id"`

	// OpponentID - кому брошен вызов.
	OpponentID string `json:"opponent_id"`

	// Duration - длительность окна.
	Duration string `json:"duration"`

	// Status - текущее состояние.
	Status string `json:"status"`

	// StartDate - момент принятия (null, пока pending).
	StartDate *time.Time `json:"start_date,omitempty"`

	// EndDate - конец окна (null, пока pending).
	EndDate *time.Time `json:"end_date,omitempty"`

	// WinnerID - победитель; null у незавершённого батла и при ничьей.
	WinnerID *string `json:"winner_id,omitempty"`

	// IsDraw - завершённый батл закончился ничьей.
	IsDraw bool `json:"is_draw"`

	// ChallengerScore - сумма дневных счётов вызывающего.
	ChallengerScore int `json:"challenger_score"`

	// OpponentScore - сумма дневных счётов оппонента.
	OpponentScore int `json:"opponent_score"`
}

// GetBattlesResult содержит батлы пользователя.
type GetBattlesResult struct {
	// Battles - батлы пользователя.
	Battles []BattleDTO `json:"battles"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetBattlesHandler обрабатывает запросы списка батлов.
type GetBattlesHandler struct {
	engine *battle.Engine
	log    *logger.Logger
}

// NewGetBattlesHandler создаёт обработчик.
func NewGetBattlesHandler(engine *battle.Engine, log *logger.Logger) *GetBattlesHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetBattlesHandler{
		engine: engine,
		log:    log.With(logger.Component("battles_query")),
	}
}

// Handle выполняет запрос списка батлов.
func (h *GetBattlesHandler) Handle(ctx context.Context, query GetBattlesQuery) (*GetBattlesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetBattles", shared.ErrValidation, "invalid query", err)
	}

	battles, scores, err := h.engine.ListFor(ctx, shared.UserID(query.UserID), query.Today)
	if err != nil {
		return nil, err
	}

	dtos := make([]BattleDTO, 0, len(battles))
	for _, b := range battles {
		dtos = append(dtos, toBattleDTO(b, scores[b.ID]))
	}

	return &GetBattlesResult{
		Battles:     dtos,
		GeneratedAt: timeutil.Now(),
	}, nil
}

// toBattleDTO переводит доменный батл в DTO.
func toBattleDTO(b *battle.Battle, s battle.Scores) BattleDTO {
	dto := BattleDTO{
		ID:              b.ID,
		ChallengerID:    b.ChallengerID.String(),
		OpponentID:      b.OpponentID.String(),
		Duration:        b.Duration.String(),
		Status:          b.Status.String(),
		StartDate:       b.StartDate,
		EndDate:         b.EndDate,
		IsDraw:          b.IsDraw(),
		ChallengerScore: s.ChallengerScore,
		OpponentScore:   s.OpponentScore,
	}
	if b.WinnerID != nil {
		winner := b.WinnerID.String()
		dto.WinnerID = &winner
	}
	return dto
}
