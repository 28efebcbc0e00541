package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CharacterSummary is the slim per-character record the wire needs for
// character selection and the LS↔GS character census (ReplyChars/ServerList
// char counts) — full character business state is out of scope.
type CharacterSummary struct {
	Slot     int32
	Name     string
	Level    int16
	ClassID  int16
	DeleteAt *time.Time
}

// CharacterRepository manages the slim character-summary rows a GameServer
// needs to answer character selection and LS census queries.
type CharacterRepository struct {
	pool *pgxpool.Pool
}

// NewCharacterRepository creates a new CharacterRepository.
func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// ListByAccount returns every character summary for an account, ordered by slot.
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountLogin string) ([]CharacterSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT slot, name, level, class_id, deletion_at
		 FROM characters WHERE account_login = $1 ORDER BY slot`, accountLogin)
	if err != nil {
		return nil, fmt.Errorf("listing characters for %q: %w", accountLogin, err)
	}
	defer rows.Close()

	var out []CharacterSummary
	for rows.Next() {
		var c CharacterSummary
		if err := rows.Scan(&c.Slot, &c.Name, &c.Level, &c.ClassID, &c.DeleteAt); err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character rows: %w", err)
	}
	return out, nil
}

// PendingDeletions returns the seconds-until-deletion for every character on
// the account that is scheduled for removal — the exact shape ReplyChars
// reports back to the LoginServer.
func (r *CharacterRepository) PendingDeletions(ctx context.Context, accountLogin string) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT deletion_at FROM characters
		 WHERE account_login = $1 AND deletion_at IS NOT NULL`, accountLogin)
	if err != nil {
		return nil, fmt.Errorf("listing pending deletions for %q: %w", accountLogin, err)
	}
	defer rows.Close()

	now := time.Now()
	var out []int64
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("scanning deletion row: %w", err)
		}
		remaining := int64(at.Sub(now).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, remaining)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating deletion rows: %w", err)
	}
	return out, nil
}
