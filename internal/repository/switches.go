package repository

import (
	"context"
	"database/sql"
	"fmt"
	"team-balancer/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

// SwitchRepository records executed and vetoed suggestions so the
// unique-switches and no-repeat-vetoed filters survive restarts.
type SwitchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSwitchRepository(db *sql.DB, logger zerolog.Logger) *SwitchRepository {
	return &SwitchRepository{db: db, logger: logger}
}

func (r *SwitchRepository) Record(ctx context.Context, rec domain.SwitchRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO switch_history (id, match_seq, red_player, blue_player, vetoed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MatchSeq, int64(rec.RedPlayer), int64(rec.BluePlayer), rec.Vetoed, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("recording switch %s: %w", rec.ID, err)
	}
	r.logger.Debug().
		Str("id", rec.ID).
		Int64("red", int64(rec.RedPlayer)).
		Int64("blue", int64(rec.BluePlayer)).
		Bool("vetoed", rec.Vetoed).
		Msg("switch recorded")
	return nil
}

// WasVetoed reports whether the exact pair was vetoed earlier in the same
// match.
func (r *SwitchRepository) WasVetoed(ctx context.Context, matchSeq int64, red, blue domain.PlayerID) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM switch_history
		 WHERE match_seq = ? AND red_player = ? AND blue_player = ? AND vetoed`,
		matchSeq, int64(red), int64(blue),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("reading vetoed switches: %w", err)
	}
	return count > 0, nil
}

// SwitchedPlayers returns every player who took part in an executed switch
// during the given match.
func (r *SwitchRepository) SwitchedPlayers(ctx context.Context, matchSeq int64) (map[domain.PlayerID]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT red_player, blue_player FROM switch_history
		 WHERE match_seq = ? AND NOT vetoed`,
		matchSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("reading switched players: %w", err)
	}
	defer rows.Close()

	out := map[domain.PlayerID]bool{}
	for rows.Next() {
		var red, blue int64
		if err := rows.Scan(&red, &blue); err != nil {
			return nil, fmt.Errorf("scanning switch row: %w", err)
		}
		out[domain.PlayerID(red)] = true
		out[domain.PlayerID(blue)] = true
	}
	return out, rows.Err()
}
