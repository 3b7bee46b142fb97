package repository

import (
	"context"
	"database/sql"
	"fmt"
	"team-balancer/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

// FlagRepository persists per-player booleans, currently the rating-limit
// exemption flag.
type FlagRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewFlagRepository(db *sql.DB, logger zerolog.Logger) *FlagRepository {
	return &FlagRepository{db: db, logger: logger}
}

// IsExempt reports whether a player is exempt from rating-limit
// enforcement. An unknown player is not exempt.
func (r *FlagRepository) IsExempt(ctx context.Context, id domain.PlayerID) (bool, error) {
	var exempt bool
	err := r.db.QueryRowContext(ctx,
		`SELECT exempt FROM player_flags WHERE steam_id = ?`, int64(id),
	).Scan(&exempt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading exemption for %d: %w", id, err)
	}
	return exempt, nil
}

func (r *FlagRepository) SetExempt(ctx context.Context, id domain.PlayerID, exempt bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO player_flags (steam_id, exempt, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (steam_id) DO UPDATE SET exempt = excluded.exempt, updated_at = excluded.updated_at`,
		int64(id), exempt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("setting exemption for %d: %w", id, err)
	}
	r.logger.Info().Int64("steam_id", int64(id)).Bool("exempt", exempt).Msg("exemption flag updated")
	return nil
}
