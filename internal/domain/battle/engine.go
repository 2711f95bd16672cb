package battle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/pkg/logger"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// Scores - текущее положение участников батла.
type Scores struct {
	// ChallengerScore - сумма дневных счётов вызывающего за окно.
	ChallengerScore int

	// OpponentScore - сумма дневных счётов оппонента за окно.
	OpponentScore int
}

// Engine реализует жизненный цикл батлов поверх хранилища и агрегатора.
// Движок без состояния между вызовами: единственный разделяемый ресурс -
// само хранилище. Перекрывающиеся refresh-вызовы сходятся к одному
// результату, потому что разрешение просроченного батла идемпотентно.
//
// Истечение окна обрабатывается лениво: просроченный батл завершается
// как побочный эффект следующего чтения списка батлов, а не фоновым
// таймером. Периодическая уборка существует отдельно (scheduler) и
// по умолчанию выключена.
type Engine struct {
	store  Store
	scores ScoreSummer
	log    *logger.Logger

	// now подменяется в тестах.
	now func() time.Time
}

// NewEngine создаёт движок батлов.
func NewEngine(store Store, scores ScoreSummer, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	return &Engine{
		store:  store,
		scores: scores,
		log:    log.With(logger.Component("battle_engine")),
		now:    timeutil.Now,
	}
}

// WithClock возвращает движок с подменённым источником времени.
// Используется в тестах для симуляции истечения окна.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	clone := *e
	clone.now = now
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Жизненный цикл
// ─────────────────────────────────────────────────────────────────────────────

// Challenge создаёт новый вызов в состоянии pending.
// Предусловия: валидные и различные участники, известная длительность,
// отсутствие живого батла между парой. Последнее гарантируется
// атомарной вставкой в хранилище; при нарушении возвращается
// shared.ErrDuplicateChallenge, и запись не создаётся.
func (e *Engine) Challenge(ctx context.Context, challengerID, opponentID shared.UserID, duration Duration) (*Battle, error) {
	if !challengerID.IsValid() || !opponentID.IsValid() {
		return nil, shared.ErrInvalidID
	}
	if challengerID == opponentID {
		return nil, shared.ErrSelfChallenge
	}
	if !duration.IsValid() {
		return nil, shared.ErrInvalidDuration
	}

	b := &Battle{
		ID:           uuid.NewString(),
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		Duration:     duration,
		Status:       StatusPending,
		CreatedAt:    e.now(),
	}

	if err := e.store.InsertIfAbsent(ctx, b); err != nil {
		if shared.IsConflict(err) {
			return nil, shared.ErrDuplicateChallenge
		}
		return nil, shared.WrapError("battle", "Challenge", shared.ErrWriteFailure, "inserting battle", err)
	}

	e.log.Info("battle challenged",
		logger.BattleID(b.ID),
		logger.UserID(challengerID.String()),
		logger.OpponentID(opponentID.String()),
		logger.String("duration", duration.String()),
	)

	return b, nil
}

// Accept принимает вызов от имени пользователя.
// Разрешено только оппоненту и только для pending-батла. Принятие
// стартует окно: StartDate = сейчас, EndDate = сейчас + длительность.
func (e *Engine) Accept(ctx context.Context, battleID string, callerID shared.UserID) (*Battle, error) {
	b, err := e.store.BattleByID(ctx, battleID)
	if err != nil {
		return nil, err
	}

	if err := b.Accept(callerID, e.now()); err != nil {
		return nil, err
	}

	if err := e.store.Update(ctx, b); err != nil {
		return nil, shared.WrapError("battle", "Accept", shared.ErrWriteFailure, "updating battle", err)
	}

	e.log.Info("battle accepted",
		logger.BattleID(b.ID),
		logger.UserID(callerID.String()),
		logger.Time("end_date", *b.EndDate),
	)

	return b, nil
}

// ResolveIfExpired завершает активный батл, чьё окно закрылось.
// Для батла в любом другом состоянии, включая уже завершённый, вызов -
// no-op: состояние и счёты не меняются. Победитель - участник со строго
// большей суммой дневных счётов за [StartDate, EndDate]; равенство
// фиксируется как ничья (WinnerID = nil).
func (e *Engine) ResolveIfExpired(ctx context.Context, b *Battle, today time.Time) (*Battle, error) {
	if !b.IsExpired(today) {
		return b, nil
	}

	scores, err := e.windowScores(ctx, b, *b.EndDate)
	if err != nil {
		return nil, err
	}

	winner := winnerOf(b, scores)
	if err := b.Finish(winner); err != nil {
		return nil, err
	}

	if err := e.store.Update(ctx, b); err != nil {
		return nil, shared.WrapError("battle", "ResolveIfExpired", shared.ErrWriteFailure, "updating battle", err)
	}

	outcome := "draw"
	if winner != nil {
		outcome = winner.String()
	}
	e.log.Info("battle resolved",
		logger.BattleID(b.ID),
		logger.Int("challenger_score", scores.ChallengerScore),
		logger.Int("opponent_score", scores.OpponentScore),
		logger.String("winner", outcome),
	)

	return b, nil
}

// CurrentScores возвращает текущее положение участников.
// Для pending-батла оба счёта равны нулю: окно ещё не началось.
// Для активного батла верхняя граница окна - min(EndDate, today),
// то есть живой промежуточный счёт. Для завершённого - ровно EndDate.
func (e *Engine) CurrentScores(ctx context.Context, b *Battle, today time.Time) (Scores, error) {
	if b.Status == StatusPending || b.StartDate == nil || b.EndDate == nil {
		return Scores{}, nil
	}

	end := *b.EndDate
	if b.Status == StatusActive && today.Before(end) {
		end = today
	}

	return e.windowScores(ctx, b, end)
}

// Delete безусловно удаляет батл независимо от состояния.
// Используется и для отклонения вызова, и для выхода из батла.
// Без soft-delete: запись исчезает совсем.
func (e *Engine) Delete(ctx context.Context, battleID string) error {
	if err := e.store.Delete(ctx, battleID); err != nil {
		return shared.WrapError("battle", "Delete", shared.ErrWriteFailure, "deleting battle", err)
	}
	e.log.Info("battle deleted", logger.BattleID(battleID))
	return nil
}

// ListFor возвращает батлы пользователя с актуальными счётами,
// по пути лениво завершая просроченные.
// Сбой разрешения одного батла не роняет весь список: батл возвращается
// как есть, ошибка логируется, следующий refresh попробует снова.
func (e *Engine) ListFor(ctx context.Context, userID shared.UserID, today time.Time) ([]*Battle, map[string]Scores, error) {
	battles, err := e.store.BattlesFor(ctx, userID)
	if err != nil {
		return nil, nil, shared.WrapError("battle", "ListFor", shared.ErrFetchFailure, "reading battles", err)
	}

	scores := make(map[string]Scores, len(battles))
	for i, b := range battles {
		resolved, err := e.ResolveIfExpired(ctx, b, today)
		if err != nil {
			e.log.Warn("battle resolution failed, keeping stale state",
				logger.BattleID(b.ID), logger.Err(err))
			resolved = b
		}
		battles[i] = resolved

		current, err := e.CurrentScores(ctx, resolved, today)
		if err != nil {
			e.log.Warn("battle score read failed",
				logger.BattleID(resolved.ID), logger.Err(err))
			current = Scores{}
		}
		scores[resolved.ID] = current
	}

	return battles, scores, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Внутреннее
// ─────────────────────────────────────────────────────────────────────────────

// windowScores суммирует дневные счёты обоих участников за [StartDate, end].
func (e *Engine) windowScores(ctx context.Context, b *Battle, end time.Time) (Scores, error) {
	challengerSum, err := e.scores.SumDailyScores(ctx, b.ChallengerID, *b.StartDate, end)
	if err != nil {
		return Scores{}, err
	}

	opponentSum, err := e.scores.SumDailyScores(ctx, b.OpponentID, *b.StartDate, end)
	if err != nil {
		return Scores{}, err
	}

	return Scores{ChallengerScore: challengerSum, OpponentScore: opponentSum}, nil
}

// winnerOf выбирает победителя по строгому сравнению сумм.
func winnerOf(b *Battle, s Scores) *shared.UserID {
	switch {
	case s.ChallengerScore > s.OpponentScore:
		id := b.ChallengerID
		return &id
	case s.OpponentScore > s.ChallengerScore:
		id := b.OpponentID
		return &id
	default:
		return nil
	}
}
