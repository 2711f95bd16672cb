package leaderboard

import (
	"sort"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
)

// Ranker превращает месячные агрегаты в упорядоченный лидерборд.
// Чистая функция над входным срезом: без состояния, без обращений к хранилищу.
type Ranker struct{}

// NewRanker создаёт ранкер.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank сортирует агрегаты по убыванию месячного счёта и присваивает
// плотные ранги 1..N без разделения мест.
// Вторичный ключ при равных счётах - UserID по возрастанию: порядок
// детерминирован независимо от порядка входа.
// Пустой вход даёт пустой лидерборд.
func (r *Ranker) Rank(aggregates []*usage.MonthlyAggregate, currentUserID shared.UserID) []Entry {
	sorted := make([]*usage.MonthlyAggregate, len(aggregates))
	copy(sorted, aggregates)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MonthlyScore != sorted[j].MonthlyScore {
			return sorted[i].MonthlyScore > sorted[j].MonthlyScore
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	entries := make([]Entry, 0, len(sorted))
	for i, aggregate := range sorted {
		entries = append(entries, Entry{
			Rank:          Rank(i + 1),
			UserID:        aggregate.UserID.String(),
			Username:      aggregate.Username,
			AvatarColor:   aggregate.AvatarColor,
			MonthlyScore:  aggregate.MonthlyScore,
			Tier:          TierForScore(aggregate.MonthlyScore),
			IsCurrentUser: aggregate.UserID == currentUserID,
		})
	}

	return entries
}

// RankOf возвращает позицию пользователя в готовом лидерборде.
// Ноль означает, что пользователя в лидерборде нет.
func RankOf(entries []Entry, userID shared.UserID) Rank {
	for _, entry := range entries {
		if entry.UserID == userID.String() {
			return entry.Rank
		}
	}
	return 0
}
