// Package postgres implements the PostgreSQL persistence layer for the
// SocialDetox core.
package postgres

import (
	"context"
	"time"

	"github.com/socialdetox/detox-hub/internal/domain/battle"
	"github.com/socialdetox/detox-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BATTLE STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BattleRepository implements battle.Store for PostgreSQL.
// The one-live-battle-per-pair invariant lives in the idx_battles_live_pair
// partial unique index, so InsertIfAbsent is a plain insert: the database
// rejects the duplicate atomically.
type BattleRepository struct {
	conn *Connection
}

// NewBattleRepository creates a new BattleRepository.
func NewBattleRepository(conn *Connection) *BattleRepository {
	return &BattleRepository{conn: conn}
}

const battleColumns = `id, challenger_id, opponent_id, duration, status, created_at, start_date, end_date, winner_id`

// BattleByID returns a battle by its ID.
func (r *BattleRepository) BattleByID(ctx context.Context, id string) (*battle.Battle, error) {
	query := `SELECT ` + battleColumns + ` FROM battles WHERE id = $1`

	b, err := scanBattle(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrBattleNotFound
		}
		return nil, shared.WrapError("battle", "BattleByID", shared.ErrFetchFailure, "querying battles", err)
	}

	return b, nil
}

// BattlesFor returns every battle the user participates in, newest first.
func (r *BattleRepository) BattlesFor(ctx context.Context, userID shared.UserID) ([]*battle.Battle, error) {
	query := `
		SELECT ` + battleColumns + `
		FROM battles
		WHERE challenger_id = $1 OR opponent_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, shared.WrapError("battle", "BattlesFor", shared.ErrFetchFailure, "querying battles", err)
	}
	defer rows.Close()

	battles := make([]*battle.Battle, 0)
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, shared.WrapError("battle", "BattlesFor", shared.ErrFetchFailure, "scanning battle row", err)
		}
		battles = append(battles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("battle", "BattlesFor", shared.ErrFetchFailure, "iterating battle rows", err)
	}

	return battles, nil
}

// InsertIfAbsent inserts a new battle unless a live battle already exists
// between the pair. The partial unique index turns the duplicate into a
// unique violation, reported as shared.ErrConflictOnWrite with no record
// written.
func (r *BattleRepository) InsertIfAbsent(ctx context.Context, b *battle.Battle) error {
	query := `
		INSERT INTO battles (` + battleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		b.ID,
		b.ChallengerID.String(),
		b.OpponentID.String(),
		b.Duration.String(),
		b.Status.String(),
		b.CreatedAt,
		b.StartDate,
		b.EndDate,
		winnerArg(b),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrConflictOnWrite
		}
		return shared.WrapError("battle", "InsertIfAbsent", shared.ErrFetchFailure, "inserting battle", err)
	}

	return nil
}

// Update fully rewrites an existing battle.
func (r *BattleRepository) Update(ctx context.Context, b *battle.Battle) error {
	query := `
		UPDATE battles
		SET status = $2, start_date = $3, end_date = $4, winner_id = $5
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, b.ID, b.Status.String(), b.StartDate, b.EndDate, winnerArg(b))
	if err != nil {
		return shared.WrapError("battle", "Update", shared.ErrFetchFailure, "updating battle", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrBattleNotFound
	}

	return nil
}

// Delete removes a battle regardless of state.
// Deleting a battle that is already gone is not an error; if a delete
// races a resolve, whichever write lands last wins.
func (r *BattleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM battles WHERE id = $1`, id)
	if err != nil {
		return shared.WrapError("battle", "Delete", shared.ErrFetchFailure, "deleting battle", err)
	}
	return nil
}

// ExpiredActiveBattles returns active battles whose window closed before
// asOf, oldest first, capped at limit. Feeds the optional periodic sweep;
// the lazy on-read path does not use it.
func (r *BattleRepository) ExpiredActiveBattles(ctx context.Context, asOf time.Time, limit int) ([]*battle.Battle, error) {
	query := `
		SELECT ` + battleColumns + `
		FROM battles
		WHERE status = 'active' AND end_date < $1
		ORDER BY end_date ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, asOf, limit)
	if err != nil {
		return nil, shared.WrapError("battle", "ExpiredActiveBattles", shared.ErrFetchFailure, "querying battles", err)
	}
	defer rows.Close()

	battles := make([]*battle.Battle, 0)
	for rows.Next() {
		b, err := scanBattle(rows)
		if err != nil {
			return nil, shared.WrapError("battle", "ExpiredActiveBattles", shared.ErrFetchFailure, "scanning battle row", err)
		}
		battles = append(battles, b)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("battle", "ExpiredActiveBattles", shared.ErrFetchFailure, "iterating battle rows", err)
	}

	return battles, nil
}

// scanBattle maps one battles row to the domain entity.
func scanBattle(row rowScanner) (*battle.Battle, error) {
	var b battle.Battle
	var challengerID, opponentID, duration, status string
	var createdAt time.Time
	var startDate, endDate *time.Time
	var winnerID *string

	err := row.Scan(&b.ID, &challengerID, &opponentID, &duration, &status, &createdAt, &startDate, &endDate, &winnerID)
	if err != nil {
		return nil, err
	}

	b.ChallengerID = shared.UserID(challengerID)
	b.OpponentID = shared.UserID(opponentID)
	b.Duration = battle.Duration(duration)
	b.Status = battle.Status(status)
	b.CreatedAt = createdAt
	b.StartDate = startDate
	b.EndDate = endDate
	if winnerID != nil {
		winner := shared.UserID(*winnerID)
		b.WinnerID = &winner
	}

	return &b, nil
}

// winnerArg converts the optional winner to a nullable query argument.
func winnerArg(b *battle.Battle) *string {
	if b.WinnerID == nil {
		return nil
	}
	winner := b.WinnerID.String()
	return &winner
}
