// Package leaderboard содержит доменную модель месячного лидерборда SocialDetox.
// Лидерборд - производная структура: он пересчитывается из месячных агрегатов
// на каждом refresh и нигде не хранится как запись. Живёт один цикл агрегации.
package leaderboard

import "fmt"

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию пользователя в лидерборде.
// Rank начинается с 1 (первое место). Ранги плотные и уникальные:
// пользователи с одинаковым счётом получают разные соседние позиции.
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsPodium возвращает true для трёх призовых мест.
func (r Rank) IsPodium() bool {
	return r >= 1 && r <= 3
}

// IsTop10 возвращает true, если пользователь в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// Tier представляет лигу пользователя по месячному счёту.
type Tier string

const (
	TierMaster   Tier = "master"
	TierDiamond  Tier = "diamond"
	TierPlatinum Tier = "platinum"
	TierGold     Tier = "gold"
	TierSilver   Tier = "silver"
	TierBronze   Tier = "bronze"
)

// TierForScore возвращает лигу по месячному счёту.
// Пороги строгие: лига начинается со счёта strictly greater.
func TierForScore(monthlyScore int) Tier {
	switch {
	case monthlyScore > 2500:
		return TierMaster
	case monthlyScore > 2000:
		return TierDiamond
	case monthlyScore > 1500:
		return TierPlatinum
	case monthlyScore > 1000:
		return TierGold
	case monthlyScore > 500:
		return TierSilver
	default:
		return TierBronze
	}
}

// String возвращает строковое представление лиги.
func (t Tier) String() string {
	return string(t)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка лидерборда.
// Производное значение: вычисляется заново на каждом refresh и не персистится
// (кроме короткоживущего кэша целиком).
type Entry struct {
	// Rank - позиция, начиная с 1.
	Rank Rank

	// UserID - идентификатор пользователя.
	UserID string

	// Username - отображаемое имя.
	Username string

	// AvatarColor - цвет аватара (непрозрачная строка из профиля).
	AvatarColor string

	// MonthlyScore - месячный счёт на момент пересчёта.
	MonthlyScore int

	// Tier - лига по месячному счёту.
	Tier Tier

	// IsCurrentUser - строка принадлежит запрашивающему пользователю.
	IsCurrentUser bool
}
