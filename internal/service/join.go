package service

import (
	"context"
	"fmt"
	"team-balancer/internal/balance"
	"team-balancer/internal/domain"
	"team-balancer/internal/rating"
)

// JoinDecision is the verdict on a team-switch attempt. When Allow is
// true the host should place the player on Team, which may differ from
// the team they asked for.
type JoinDecision struct {
	Allow  bool
	Team   domain.TeamName
	Reason string
}

// OnTeamSwitchAttempt decides a spectator's join attempt: the rating-limit
// gate first, then the one-slot auto-rebalancer. The first join onto even
// teams is remembered as the pending new player; a second join while one
// is pending triggers the placement comparison and may move the pending
// player first.
func (s *BalanceService) OnTeamSwitchAttempt(ctx context.Context, player domain.PlayerID, target domain.TeamName) (JoinDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !target.Playing() {
		// Leaving for spectators invalidates a pending marker.
		if s.pendingNewPlayer == player {
			s.pendingNewPlayer = 0
		}
		return JoinDecision{Allow: true, Team: target}, nil
	}

	if decision, blocked, err := s.ratingGate(ctx, player, target); err != nil {
		return JoinDecision{}, err
	} else if blocked {
		return decision, nil
	}

	roster, err := s.host.CurrentRoster(ctx)
	if err != nil {
		return JoinDecision{}, fmt.Errorf("reading roster: %w", err)
	}

	if s.pendingNewPlayer == 0 || s.pendingNewPlayer == player {
		if len(roster.Red) == len(roster.Blue) {
			s.pendingNewPlayer = player
			s.logger.Debug().Int64("player", int64(player)).Msg("pending new player remembered")
		}
		return JoinDecision{Allow: true, Team: target}, nil
	}

	return s.compareAndPlace(ctx, roster, player, target)
}

// compareAndPlace resolves a join attempt racing an earlier new player:
// either the joiner lands opposite the pending player, or the pending
// player is swapped over and the joiner takes their place, whichever
// leaves the smaller average difference.
func (s *BalanceService) compareAndPlace(ctx context.Context, roster domain.Roster, joiner domain.PlayerID, target domain.TeamName) (JoinDecision, error) {
	pending := s.pendingNewPlayer
	pendingTeam := roster.TeamOf(pending)
	if !pendingTeam.Playing() {
		// Stale marker: the pending player already left the teams.
		s.pendingNewPlayer = 0
		return JoinDecision{Allow: true, Team: target}, nil
	}

	gt, err := s.host.CurrentGameType(ctx)
	if err != nil {
		return JoinDecision{}, fmt.Errorf("reading game type: %w", err)
	}
	snap, _ := s.balancingSnapshot(s.currentMap)
	if snap.Empty() {
		s.pendingNewPlayer = 0
		return JoinDecision{Allow: true, Team: target}, nil
	}

	pendingSide, otherSide := roster.Red, roster.Blue
	if pendingTeam == domain.TeamBlue {
		pendingSide, otherSide = roster.Blue, roster.Red
	}

	// Option A: joiner lands opposite the pending player.
	diffOpposite := balance.AverageDiff(pendingSide, append(clone(otherSide), joiner), snap, gt)

	// Option B: pending player swaps over, joiner takes their spot.
	swappedPending := append(clone(without(pendingSide, pending)), joiner)
	swappedOther := append(clone(otherSide), pending)
	diffSwapped := balance.AverageDiff(swappedPending, swappedOther, snap, gt)

	defer func() { s.pendingNewPlayer = 0 }()

	if diffSwapped < diffOpposite {
		if err := s.host.MovePlayerToTeam(ctx, pending, pendingTeam.Opposite()); err != nil {
			return JoinDecision{}, fmt.Errorf("moving pending player %d: %w", pending, err)
		}
		s.notify(ctx, pending, fmt.Sprintf("You were moved to the %s team to keep the teams balanced.", pendingTeam.Opposite()))
		s.notify(ctx, joiner, fmt.Sprintf("You were placed on the %s team to keep the teams balanced.", pendingTeam))
		s.logger.Info().
			Int64("pending", int64(pending)).
			Int64("joiner", int64(joiner)).
			Float64("diff", diffSwapped).
			Msg("pending player swapped for better balance")
		return JoinDecision{Allow: true, Team: pendingTeam, Reason: "balanced placement"}, nil
	}

	s.logger.Debug().
		Int64("joiner", int64(joiner)).
		Float64("diff", diffOpposite).
		Msg("joiner placed opposite pending player")
	return JoinDecision{Allow: true, Team: pendingTeam.Opposite(), Reason: "balanced placement"}, nil
}

// ratingGate enforces the configured rating band and minimum games for
// non-exempt players.
func (s *BalanceService) ratingGate(ctx context.Context, player domain.PlayerID, target domain.TeamName) (JoinDecision, bool, error) {
	if s.cfg.RatingFloor == 0 && s.cfg.RatingCeiling == 0 && s.cfg.MinGames == 0 {
		return JoinDecision{}, false, nil
	}

	exempt, err := s.flags.IsExempt(ctx, player)
	if err != nil {
		return JoinDecision{}, false, fmt.Errorf("reading exemption: %w", err)
	}
	if exempt {
		return JoinDecision{}, false, nil
	}

	gt, err := s.host.CurrentGameType(ctx)
	if err != nil {
		return JoinDecision{}, false, fmt.Errorf("reading game type: %w", err)
	}
	snap, _ := s.balancingSnapshot(s.currentMap)
	entry, rated := snap.Lookup(player, gt)
	if !rated {
		// No data yet; the gate never blocks on missing ratings.
		return JoinDecision{}, false, nil
	}

	if s.cfg.MinGames > 0 && entry.Games < s.cfg.MinGames {
		reason := fmt.Sprintf("You need at least %d rated games to join.", s.cfg.MinGames)
		s.notify(ctx, player, reason)
		return JoinDecision{Allow: false, Team: domain.TeamSpectator, Reason: reason}, true, nil
	}
	if s.cfg.RatingFloor > 0 && entry.Value < s.cfg.RatingFloor {
		reason := fmt.Sprintf("Your rating %s is below this server's limit.", rating.FormatValue(entry.Value))
		s.notify(ctx, player, reason)
		return JoinDecision{Allow: false, Team: domain.TeamSpectator, Reason: reason}, true, nil
	}
	if s.cfg.RatingCeiling > 0 && entry.Value > s.cfg.RatingCeiling {
		reason := fmt.Sprintf("Your rating %s is above this server's limit.", rating.FormatValue(entry.Value))
		s.notify(ctx, player, reason)
		return JoinDecision{Allow: false, Team: domain.TeamSpectator, Reason: reason}, true, nil
	}
	return JoinDecision{}, false, nil
}

// SetExempt flips the persisted rating-limit exemption for a player.
func (s *BalanceService) SetExempt(ctx context.Context, player domain.PlayerID, exempt bool) error {
	return s.flags.SetExempt(ctx, player, exempt)
}

func clone(ids []domain.PlayerID) []domain.PlayerID {
	out := make([]domain.PlayerID, len(ids))
	copy(out, ids)
	return out
}

func without(ids []domain.PlayerID, remove domain.PlayerID) []domain.PlayerID {
	out := make([]domain.PlayerID, 0, len(ids))
	for _, id := range ids {
		if id != remove {
			out = append(out, id)
		}
	}
	return out
}
