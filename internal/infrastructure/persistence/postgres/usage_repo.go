// Package postgres implements the PostgreSQL persistence layer for the
// SocialDetox core.
package postgres

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/shared"
	"github.com/socialdetox/detox-hub/internal/domain/usage"
	"github.com/socialdetox/detox-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// USAGE RECORD STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UsageRepository implements usage.RecordStore for PostgreSQL.
// All reads distinguish "absent" (domain not-found sentinels) from
// "failed" (wrapped as FetchFailure); callers never retry on their own.
type UsageRepository struct {
	conn *Connection
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(conn *Connection) *UsageRepository {
	return &UsageRepository{conn: conn}
}

// DailyRecord returns the usage record for one calendar day.
func (r *UsageRepository) DailyRecord(ctx context.Context, userID shared.UserID, day time.Time) (*usage.DailyRecord, error) {
	query := `
		SELECT user_id, date, instagram_min, tiktok_min, youtube_min, snapchat_min, daily_score
		FROM daily_stats
		WHERE user_id = $1 AND date = $2
	`

	row := r.conn.QueryRow(ctx, query, userID.String(), timeutil.DateKey(day))
	record, err := scanDailyRecord(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDailyRecordNotFound
		}
		return nil, shared.WrapError("usage", "DailyRecord", shared.ErrFetchFailure, "querying daily_stats", err)
	}

	return record, nil
}

// DailyRecordsInRange returns the user's records for [from, to] inclusive,
// oldest first. Days without a record are simply missing from the result.
func (r *UsageRepository) DailyRecordsInRange(ctx context.Context, userID shared.UserID, from, to time.Time) ([]*usage.DailyRecord, error) {
	query := `
		SELECT user_id, date, instagram_min, tiktok_min, youtube_min, snapchat_min, daily_score
		FROM daily_stats
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), timeutil.DateKey(from), timeutil.DateKey(to))
	if err != nil {
		return nil, shared.WrapError("usage", "DailyRecordsInRange", shared.ErrFetchFailure, "querying daily_stats", err)
	}
	defer rows.Close()

	records := make([]*usage.DailyRecord, 0)
	for rows.Next() {
		record, err := scanDailyRecord(rows)
		if err != nil {
			return nil, shared.WrapError("usage", "DailyRecordsInRange", shared.ErrFetchFailure, "scanning daily_stats row", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("usage", "DailyRecordsInRange", shared.ErrFetchFailure, "iterating daily_stats rows", err)
	}

	return records, nil
}

// MonthlyAggregate returns the user's aggregate for the current month.
func (r *UsageRepository) MonthlyAggregate(ctx context.Context, userID shared.UserID) (*usage.MonthlyAggregate, error) {
	query := `
		SELECT m.user_id, p.username, p.avatar_color, m.monthly_score
		FROM monthly_scores m
		JOIN profiles p ON p.id = m.user_id
		WHERE m.user_id = $1
	`

	var aggregate usage.MonthlyAggregate
	var id string
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(&id, &aggregate.Username, &aggregate.AvatarColor, &aggregate.MonthlyScore)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAggregateNotFound
		}
		return nil, shared.WrapError("usage", "MonthlyAggregate", shared.ErrFetchFailure, "querying monthly_scores", err)
	}
	aggregate.UserID = shared.UserID(id)

	return &aggregate, nil
}

// AllMonthlyAggregates returns every user's aggregate for the current month.
// Ordering is left to the ranker; the query just reads.
func (r *UsageRepository) AllMonthlyAggregates(ctx context.Context) ([]*usage.MonthlyAggregate, error) {
	query := `
		SELECT m.user_id, p.username, p.avatar_color, m.monthly_score
		FROM monthly_scores m
		JOIN profiles p ON p.id = m.user_id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, shared.WrapError("usage", "AllMonthlyAggregates", shared.ErrFetchFailure, "querying monthly_scores", err)
	}
	defer rows.Close()

	aggregates := make([]*usage.MonthlyAggregate, 0)
	for rows.Next() {
		var aggregate usage.MonthlyAggregate
		var id string
		if err := rows.Scan(&id, &aggregate.Username, &aggregate.AvatarColor, &aggregate.MonthlyScore); err != nil {
			return nil, shared.WrapError("usage", "AllMonthlyAggregates", shared.ErrFetchFailure, "scanning monthly_scores row", err)
		}
		aggregate.UserID = shared.UserID(id)
		aggregates = append(aggregates, &aggregate)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("usage", "AllMonthlyAggregates", shared.ErrFetchFailure, "iterating monthly_scores rows", err)
	}

	return aggregates, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDailyRecord maps one daily_stats row to the domain record.
func scanDailyRecord(row rowScanner) (*usage.DailyRecord, error) {
	var id string
	var date time.Time
	var instagram, tiktok, youtube, snapchat, score int

	if err := row.Scan(&id, &date, &instagram, &tiktok, &youtube, &snapchat, &score); err != nil {
		return nil, err
	}

	return &usage.DailyRecord{
		UserID: shared.UserID(id),
		Date:   timeutil.StartOfDay(date),
		PerAppMinutes: map[usage.TrackedApp]int{
			usage.AppInstagram: instagram,
			usage.AppTikTok:    tiktok,
			usage.AppYouTube:   youtube,
			usage.AppSnapchat:  snapchat,
		},
		DailyScore: score,
	}, nil
}
