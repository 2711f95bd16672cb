// Package usage содержит доменную модель данных об использовании соцсетей.
// Записи создаются внешним трекинг-процессом один раз в день на пользователя;
// ядро SocialDetox читает их и превращает в fair-play очки.
// Философия: "Нет записи - нет использования" - отсутствие данных за день
// трактуется в пользу пользователя (идеальные 100 очков).
package usage

import (
	"sort"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TRACKED APPS
// ══════════════════════════════════════════════════════════════════════════════

// TrackedApp представляет одно из отслеживаемых приложений.
type TrackedApp string

const (
	// AppInstagram - Instagram.
	AppInstagram TrackedApp = "instagram"
	// AppTikTok - TikTok.
	AppTikTok TrackedApp = "tiktok"
	// AppYouTube - YouTube.
	AppYouTube TrackedApp = "youtube"
	// AppSnapchat - Snapchat.
	AppSnapchat TrackedApp = "snapchat"
)

// TrackedApps - канонический порядок приложений.
// Используется как вторичный ключ при сортировке разбивки:
// при равных минутах приложения остаются в этом порядке.
var TrackedApps = []TrackedApp{AppInstagram, AppTikTok, AppYouTube, AppSnapchat}

// IsValid проверяет, что приложение входит в отслеживаемый набор.
func (a TrackedApp) IsValid() bool {
	for _, known := range TrackedApps {
		if a == known {
			return true
		}
	}
	return false
}

// String возвращает строковое представление.
func (a TrackedApp) String() string {
	return string(a)
}

// ══════════════════════════════════════════════════════════════════════════════
// DAILY RECORD
// ══════════════════════════════════════════════════════════════════════════════

// PerfectScore - дневной счёт при полном отсутствии использования.
// Это же значение подставляется за дни без записи (fair-play политика).
const PerfectScore = 100

// DailyRecord представляет данные об использовании за один календарный день.
// Запись уникальна по паре (UserID, Date) и создаётся внешним трекером.
// DailyScore вычисляется трекером из минут; ядро доверяет этому значению
// и не перепроверяет его (граница доверия - см. DESIGN.md).
type DailyRecord struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// Date - календарный день записи (нормализован на полночь).
	Date time.Time

	// PerAppMinutes - минуты по каждому приложению.
	PerAppMinutes map[TrackedApp]int

	// DailyScore - дневной fair-play счёт (обычно 0-100).
	DailyScore int
}

// Minutes возвращает минуты использования приложения (0, если нет данных).
func (r *DailyRecord) Minutes(app TrackedApp) int {
	if r == nil || r.PerAppMinutes == nil {
		return 0
	}
	return r.PerAppMinutes[app]
}

// TotalMinutes возвращает суммарные минуты по всем отслеживаемым приложениям.
func (r *DailyRecord) TotalMinutes() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, app := range TrackedApps {
		total += r.Minutes(app)
	}
	return total
}

// ══════════════════════════════════════════════════════════════════════════════
// APP BREAKDOWN
// ══════════════════════════════════════════════════════════════════════════════

// AppUsage - минуты одного приложения в разбивке дня.
type AppUsage struct {
	// App - приложение.
	App TrackedApp

	// Minutes - минуты использования.
	Minutes int
}

// Breakdown возвращает разбивку дня по приложениям, отсортированную
// по убыванию минут. Сортировка стабильная: при равных минутах
// сохраняется канонический порядок TrackedApps.
// Для nil-записи возвращается пустая разбивка.
func (r *DailyRecord) Breakdown() []AppUsage {
	if r == nil {
		return []AppUsage{}
	}

	breakdown := make([]AppUsage, 0, len(TrackedApps))
	for _, app := range TrackedApps {
		breakdown = append(breakdown, AppUsage{App: app, Minutes: r.Minutes(app)})
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Minutes > breakdown[j].Minutes
	})

	return breakdown
}

// ══════════════════════════════════════════════════════════════════════════════
// MONTHLY AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// MonthlyAggregate - месячный агрегат пользователя за текущий календарный
// месяц. Пересчитывается внешним процессом; ядро читает его как есть.
// Одна строка на пользователя.
type MonthlyAggregate struct {
	// UserID - идентификатор пользователя.
	UserID shared.UserID

	// Username - отображаемое имя (денормализовано для лидерборда).
	Username string

	// AvatarColor - цвет аватара (непрозрачная строка из профиля).
	AvatarColor string

	// MonthlyScore - суммарный счёт за месяц.
	MonthlyScore int
}
