// Package battle содержит доменную модель батлов SocialDetox.
// Батл - это парный вызов "кто меньше сидит в соцсетях" на фиксированное
// окно в целых календарных днях. Жизненный цикл:
//
//	pending -(accept)-> active -(expire)-> finished
//	любое состояние -(delete)-> запись удалена
//
// Счёты участников не хранятся: они пересчитываются при каждом чтении
// из дневных записей использования.
package battle

import (
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Duration представляет длительность батла.
// Закрытое перечисление: любое другое значение отклоняется при валидации.
type Duration string

const (
	// Duration1Day - батл на один день.
	Duration1Day Duration = "1_day"
	// Duration7Days - батл на неделю.
	Duration7Days Duration = "7_days"
	// Duration30Days - батл на месяц.
	Duration30Days Duration = "30_days"
)

// IsValid проверяет, что длительность входит в перечисление.
func (d Duration) IsValid() bool {
	switch d {
	case Duration1Day, Duration7Days, Duration30Days:
		return true
	}
	return false
}

// Days возвращает длительность в целых календарных днях.
// Для неизвестной длительности возвращает 0; валидация происходит раньше,
// при создании вызова.
func (d Duration) Days() int {
	switch d {
	case Duration1Day:
		return 1
	case Duration7Days:
		return 7
	case Duration30Days:
		return 30
	}
	return 0
}

// String возвращает строковое представление.
func (d Duration) String() string {
	return string(d)
}

// ParseDuration разбирает строковое значение длительности.
func ParseDuration(value string) (Duration, error) {
	d := Duration(value)
	if !d.IsValid() {
		return "", shared.ErrInvalidDuration
	}
	return d, nil
}

// Status представляет состояние батла.
type Status string

const (
	// StatusPending - вызов создан, ждёт принятия оппонентом.
	StatusPending Status = "pending"
	// StatusActive - вызов принят, окно идёт.
	StatusActive Status = "active"
	// StatusFinished - окно закрыто, победитель определён.
	StatusFinished Status = "finished"
)

// IsLive возвращает true для состояний, блокирующих новый вызов между парой.
func (s Status) IsLive() bool {
	return s == StatusPending || s == StatusActive
}

// String возвращает строковое представление.
func (s Status) String() string {
	return string(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// BATTLE ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Battle представляет парный вызов.
// Инварианты:
//   - между парой пользователей одновременно не больше одного живого
//     (pending или active) батла; гарантируется хранилищем на вставке;
//   - StartDate и EndDate выставляются только при выходе из pending;
//   - после перехода в finished WinnerID и Status неизменяемы.
type Battle struct {
	// ID - идентификатор батла (UUID).
	ID string

	// ChallengerID - кто бросил вызов.
	ChallengerID shared.UserID

	// OpponentID - кому брошен вызов.
	OpponentID shared.UserID

	// Duration - длительность окна.
	Duration Duration

	// Status - текущее состояние.
	Status Status

	// CreatedAt - момент создания вызова.
	CreatedAt time.Time

	// StartDate - момент принятия (nil, пока pending).
	StartDate *time.Time

	// EndDate - конец окна (nil, пока pending).
	EndDate *time.Time

	// WinnerID - победитель. nil у незавершённого батла,
	// а у завершённого nil означает ничью.
	WinnerID *shared.UserID
}

// Involves возвращает true, если пользователь - участник батла.
func (b *Battle) Involves(userID shared.UserID) bool {
	return b.ChallengerID == userID || b.OpponentID == userID
}

// SamePairAs возвращает true, если батл идёт между той же неупорядоченной парой.
func (b *Battle) SamePairAs(a, c shared.UserID) bool {
	return shared.SamePair(b.ChallengerID, b.OpponentID, a, c)
}

// IsExpired возвращает true для активного батла, чьё окно уже закрылось.
// Сравнение строгое: день EndDate ещё входит в окно.
func (b *Battle) IsExpired(today time.Time) bool {
	return b.Status == StatusActive && b.EndDate != nil && today.After(*b.EndDate)
}

// IsDraw возвращает true для завершённого батла без победителя.
func (b *Battle) IsDraw() bool {
	return b.Status == StatusFinished && b.WinnerID == nil
}

// Accept переводит батл из pending в active от имени пользователя.
// Принять может только оппонент и только pending-батл.
// Окно: [now, now + duration календарных дней].
func (b *Battle) Accept(by shared.UserID, now time.Time) error {
	if b.Status != StatusPending {
		return shared.ErrBattleNotPending
	}
	if by != b.OpponentID {
		return shared.ErrNotOpponent
	}

	end := now.AddDate(0, 0, b.Duration.Days())
	b.Status = StatusActive
	b.StartDate = &now
	b.EndDate = &end
	return nil
}

// Finish переводит активный батл в finished с указанным победителем.
// nil-победитель фиксирует ничью. Повторный вызов на завершённом батле
// возвращает ошибку: завершённый батл неизменяем.
func (b *Battle) Finish(winnerID *shared.UserID) error {
	if b.Status == StatusFinished {
		return shared.ErrBattleFinished
	}
	if b.Status != StatusActive {
		return shared.ErrStateTransition
	}

	b.Status = StatusFinished
	b.WinnerID = winnerID
	return nil
}
