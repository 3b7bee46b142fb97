package game

import (
	"context"
	"team-balancer/internal/domain"
)

// Host is the narrow surface of the game server the core reads and
// mutates. The roster is read fresh per call; the only mutations are team
// moves, swaps and player notifications.
type Host interface {
	CurrentRoster(ctx context.Context) (domain.Roster, error)
	CurrentRoundsPlayed(ctx context.Context) (int, error)
	CurrentGameType(ctx context.Context) (domain.GameType, error)
	CurrentMap(ctx context.Context) (string, error)
	MatchInProgress(ctx context.Context) (bool, error)

	MovePlayerToTeam(ctx context.Context, id domain.PlayerID, team domain.TeamName) error
	SwapPlayers(ctx context.Context, a, b domain.PlayerID) error
	NotifyPlayer(ctx context.Context, id domain.PlayerID, message string) error
}
