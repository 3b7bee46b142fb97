package repository

import (
	"context"
	"database/sql"
	"fmt"
	"team-balancer/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

// AliasRepository keeps the name/address history the host reports on
// connect.
type AliasRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAliasRepository(db *sql.DB, logger zerolog.Logger) *AliasRepository {
	return &AliasRepository{db: db, logger: logger}
}

func (r *AliasRepository) RecordSighting(ctx context.Context, id domain.PlayerID, name, address string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO player_aliases (steam_id, name, address, seen_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (steam_id, name, address) DO UPDATE SET seen_at = excluded.seen_at`,
		int64(id), name, address, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("recording alias for %d: %w", id, err)
	}
	return nil
}

func (r *AliasRepository) KnownAliases(ctx context.Context, id domain.PlayerID) ([]domain.AliasSighting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT steam_id, name, address, seen_at FROM player_aliases
		 WHERE steam_id = ? ORDER BY seen_at DESC`,
		int64(id),
	)
	if err != nil {
		return nil, fmt.Errorf("reading aliases for %d: %w", id, err)
	}
	defer rows.Close()

	var out []domain.AliasSighting
	for rows.Next() {
		var sighting domain.AliasSighting
		var steamID int64
		if err := rows.Scan(&steamID, &sighting.Name, &sighting.Address, &sighting.SeenAt); err != nil {
			return nil, fmt.Errorf("scanning alias row: %w", err)
		}
		sighting.PlayerID = domain.PlayerID(steamID)
		out = append(out, sighting)
	}
	return out, rows.Err()
}
