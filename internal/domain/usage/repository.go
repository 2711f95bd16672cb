package usage

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
)

// RecordStore - контракт чтения данных об использовании.
// Ядро только читает: записи создаёт внешний трекер, агрегаты пересчитывает
// внешний процесс. Реализация обязана различать два исхода:
//   - отсутствие данных: shared.ErrDailyRecordNotFound / shared.ErrAggregateNotFound;
//   - сбой чтения: любая ошибка с shared.ErrFetchFailure в цепочке.
//
// Вызывающий код трактует отсутствие в пользу пользователя, а сбой
// превращает в "данных нет, ждём следующий refresh" без автоматических
// повторов.
type RecordStore interface {
	// DailyRecord возвращает запись пользователя за календарный день.
	DailyRecord(ctx context.Context, userID shared.UserID, day time.Time) (*DailyRecord, error)

	// DailyRecordsInRange возвращает записи пользователя за дни [from, to]
	// включительно, отсортированные по дате по возрастанию.
	// Дни без записи просто отсутствуют в результате; пустой срез - не ошибка.
	DailyRecordsInRange(ctx context.Context, userID shared.UserID, from, to time.Time) ([]*DailyRecord, error)

	// MonthlyAggregate возвращает месячный агрегат пользователя.
	MonthlyAggregate(ctx context.Context, userID shared.UserID) (*MonthlyAggregate, error)

	// AllMonthlyAggregates возвращает агрегаты всех пользователей за текущий
	// месяц. Порядок не гарантируется; ранжирование - забота вызывающего.
	AllMonthlyAggregates(ctx context.Context) ([]*MonthlyAggregate, error)
}
