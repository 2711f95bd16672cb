package leaderboard

import "context"

// Cache определяет контракт кэширования готового лидерборда.
// Реализация находится в infrastructure слое (Redis).
//
// Кэш хранит лидерборд целиком и без пометки IsCurrentUser:
// принадлежность строки запрашивающему проставляется при чтении,
// иначе кэш был бы персональным.
type Cache interface {
	// CachedEntries возвращает закэшированный лидерборд.
	// Пустой срез или ошибка означают промах; вызывающий пересчитывает
	// лидерборд из агрегатов.
	CachedEntries(ctx context.Context) ([]Entry, error)

	// StoreEntries кладёт пересчитанный лидерборд в кэш с TTL.
	StoreEntries(ctx context.Context, entries []Entry) error

	// Invalidate сбрасывает кэш. Вызывается при ручном refresh.
	Invalidate(ctx context.Context) error
}
