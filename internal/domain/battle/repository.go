package battle

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
)

// Store - контракт хранилища батлов.
// Реализация находится в infrastructure слое (PostgreSQL).
//
// Ключевой пункт контракта - InsertIfAbsent: проверка "нет живого батла
// между парой" и вставка выполняются как одна атомарная операция,
// подкреплённая ограничением уникальности на неупорядоченную пару
// с живым статусом. Раздельная проверка плюс вставка допускала бы гонку
// двух одновременных вызовов.
type Store interface {
	// BattleByID возвращает батл по идентификатору.
	// Отсутствие - shared.ErrBattleNotFound.
	BattleByID(ctx context.Context, id string) (*Battle, error)

	// BattlesFor возвращает все батлы, где пользователь - вызывающий
	// или оппонент, в порядке убывания создания.
	BattlesFor(ctx context.Context, userID shared.UserID) ([]*Battle, error)

	// InsertIfAbsent атомарно вставляет новый батл, если между парой
	// участников нет живого (pending или active) батла.
	// Нарушение ограничения - shared.ErrConflictOnWrite; запись при этом
	// не создаётся.
	InsertIfAbsent(ctx context.Context, b *Battle) error

	// Update полностью перезаписывает существующий батл.
	Update(ctx context.Context, b *Battle) error

	// Delete безусловно удаляет батл независимо от состояния.
	// Удаление отсутствующего батла не считается ошибкой.
	Delete(ctx context.Context, id string) error
}

// ScoreSummer поставляет сумму дневных счётов участника за окно батла.
// Реализуется агрегатором счёта; интерфейс объявлен здесь, чтобы домен
// батлов не зависел от пакета score напрямую.
type ScoreSummer interface {
	// SumDailyScores суммирует дневные счёты пользователя за [from, to]
	// включительно. Дни без записи вклада не дают.
	SumDailyScores(ctx context.Context, userID shared.UserID, from, to time.Time) (int, error)
}
