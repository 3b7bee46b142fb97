package service

import (
	"context"
	"fmt"
	"team-balancer/internal/balance"
	"team-balancer/internal/constants"
	"team-balancer/internal/domain"
	"team-balancer/internal/rating"
	"time"
)

// OnMapChange resets per-match state, retires the rating cache generation
// and kicks off a background refetch for everyone connected. Once the
// fresh ratings land, players whose primary rating moved are told by how
// much.
func (s *BalanceService) OnMapChange(ctx context.Context, mapName string) error {
	s.mu.Lock()

	roster, err := s.host.CurrentRoster(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("reading roster: %w", err)
	}

	if len(roster.Red) > 0 || len(roster.Blue) > 0 {
		s.previousTeams = [][]domain.PlayerID{roster.Red, roster.Blue}
	}
	s.cache.ResetForMap()
	s.pending = nil
	s.pendingNewPlayer = 0
	s.matchSeq = time.Now().Unix()
	s.currentMap = mapName

	s.logger.Info().
		Str("map", mapName).
		Int("connected", len(roster.Connected())).
		Msg("map changed, state reset")
	s.mu.Unlock()

	connected := roster.Connected()
	go s.refetchAndAnnounce(mapName, connected)
	return nil
}

// refetchAndAnnounce runs on its own goroutine; results rejoin the event
// flow only through the cache.
func (s *BalanceService) refetchAndAnnounce(mapName string, ids []domain.PlayerID) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	defer cancel()

	s.orch.FetchAll(ctx, mapName, ids)

	diff := s.cache.ChangesSinceMapChange(rating.SourceSkill)
	if len(diff) == 0 {
		return
	}
	gt, err := s.host.CurrentGameType(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not read game type for rating announcements")
		return
	}
	for _, id := range ids {
		delta, ok := diff[id][gt]
		if !ok {
			continue
		}
		sign := "+"
		if delta < 0 {
			sign = ""
		}
		s.notify(ctx, id, fmt.Sprintf("Your %s rating changed by %s%s.", gt, sign, rating.FormatValue(delta)))
	}
}

// OnRoundCountdown is the execution window for deferred suggestions: an
// agreed suggestion in manual mode, or a not-vetoed one in auto-switch
// mode, fires here.
func (s *BalanceService) OnRoundCountdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return nil
	}

	shouldExecute := s.pending.Agreed()
	if s.cfg.AutoSwitch && s.pending.State() == balance.StateProposed {
		shouldExecute = true
	}
	if !shouldExecute {
		return nil
	}

	_, err := s.executePending(ctx)
	return err
}

// OnPlayerConnected records the alias sighting and warms the rating cache
// for the new player in the background.
func (s *BalanceService) OnPlayerConnected(ctx context.Context, id domain.PlayerID, name, address string) error {
	if err := s.aliases.RecordSighting(ctx, id, name, address); err != nil {
		s.logger.Warn().Err(err).Int64("player", int64(id)).Msg("could not record alias")
	}

	s.mu.Lock()
	mapName := s.currentMap
	s.mu.Unlock()

	go func() {
		fetchCtx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
		defer cancel()
		s.orch.FetchAll(fetchCtx, mapName, []domain.PlayerID{id})
	}()
	return nil
}

// OnPlayerDisconnected clears any state the player was part of: a stale
// pending-new-player marker or a suggestion they participated in.
func (s *BalanceService) OnPlayerDisconnected(ctx context.Context, id domain.PlayerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingNewPlayer == id {
		s.pendingNewPlayer = 0
		s.logger.Debug().Int64("player", int64(id)).Msg("pending new player disconnected, marker cleared")
	}
	if s.pending != nil && s.pending.Participant(id) {
		s.logger.Debug().Str("id", s.pending.ID).Msg("suggestion participant disconnected, suggestion discarded")
		s.pending = nil
	}
}
