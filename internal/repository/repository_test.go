package repository

import (
	"context"
	"database/sql"
	"team-balancer/internal/domain"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE player_flags (
			steam_id INTEGER PRIMARY KEY,
			exempt BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE switch_history (
			id TEXT PRIMARY KEY,
			match_seq INTEGER NOT NULL,
			red_player INTEGER NOT NULL,
			blue_player INTEGER NOT NULL,
			vetoed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE player_aliases (
			steam_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			seen_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (steam_id, name, address)
		)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func TestFlagRepositoryExemption(t *testing.T) {
	repo := NewFlagRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	exempt, err := repo.IsExempt(ctx, 42)
	require.NoError(t, err)
	assert.False(t, exempt, "unknown players are not exempt")

	require.NoError(t, repo.SetExempt(ctx, 42, true))
	exempt, err = repo.IsExempt(ctx, 42)
	require.NoError(t, err)
	assert.True(t, exempt)

	// Upsert flips the existing row back.
	require.NoError(t, repo.SetExempt(ctx, 42, false))
	exempt, err = repo.IsExempt(ctx, 42)
	require.NoError(t, err)
	assert.False(t, exempt)
}

func TestSwitchRepositoryMatchScoping(t *testing.T) {
	repo := NewSwitchRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, domain.SwitchRecord{
		ID: "a", MatchSeq: 100, RedPlayer: 1, BluePlayer: 2,
	}))
	require.NoError(t, repo.Record(ctx, domain.SwitchRecord{
		ID: "b", MatchSeq: 100, RedPlayer: 3, BluePlayer: 4, Vetoed: true,
	}))
	require.NoError(t, repo.Record(ctx, domain.SwitchRecord{
		ID: "c", MatchSeq: 200, RedPlayer: 5, BluePlayer: 6,
	}))

	vetoed, err := repo.WasVetoed(ctx, 100, 3, 4)
	require.NoError(t, err)
	assert.True(t, vetoed)

	vetoed, err = repo.WasVetoed(ctx, 100, 1, 2)
	require.NoError(t, err)
	assert.False(t, vetoed, "executed switches are not vetoes")

	vetoed, err = repo.WasVetoed(ctx, 200, 3, 4)
	require.NoError(t, err)
	assert.False(t, vetoed, "vetoes do not leak across matches")

	switched, err := repo.SwitchedPlayers(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, map[domain.PlayerID]bool{1: true, 2: true}, switched,
		"only executed switches count, only for the given match")
}

func TestAliasRepositorySightings(t *testing.T) {
	repo := NewAliasRepository(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.RecordSighting(ctx, 7, "crash", "10.0.0.1"))
	require.NoError(t, repo.RecordSighting(ctx, 7, "keel", "10.0.0.1"))
	require.NoError(t, repo.RecordSighting(ctx, 8, "sarge", "10.0.0.2"))

	// Re-sighting the same triple only bumps the timestamp.
	require.NoError(t, repo.RecordSighting(ctx, 7, "crash", "10.0.0.1"))

	aliases, err := repo.KnownAliases(ctx, 7)
	require.NoError(t, err)
	require.Len(t, aliases, 2)

	names := []string{aliases[0].Name, aliases[1].Name}
	assert.ElementsMatch(t, []string{"crash", "keel"}, names)
	for _, sighting := range aliases {
		assert.Equal(t, domain.PlayerID(7), sighting.PlayerID)
		assert.Equal(t, "10.0.0.1", sighting.Address)
		assert.False(t, sighting.SeenAt.IsZero())
	}
}
