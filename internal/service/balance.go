package service

import (
	"context"
	"fmt"
	"sync"
	"team-balancer/internal/balance"
	"team-balancer/internal/config"
	"team-balancer/internal/domain"
	"team-balancer/internal/game"
	"team-balancer/internal/rating"
	"team-balancer/internal/repository"
	"time"

	"github.com/rs/zerolog"
)

// BalanceService owns the process-wide mutable state: the rating cache,
// the pending suggestion, the pending new player and the previous match's
// teams. Host events enter through its methods one at a time; the mutex
// stands in for the host's single-threaded event dispatch.
type BalanceService struct {
	mu sync.Mutex

	cfg      *config.Config
	logger   zerolog.Logger
	host     game.Host
	cache    *rating.Cache
	orch     *rating.Orchestrator
	flags    *repository.FlagRepository
	switches *repository.SwitchRepository
	aliases  *repository.AliasRepository
	balancer *balance.Balancer
	rank     balance.RankStrategy

	avgTable balance.StepTable
	devTable balance.StepTable

	pending          *balance.Suggestion
	pendingNewPlayer domain.PlayerID
	previousTeams    [][]domain.PlayerID
	matchSeq         int64
	currentMap       string
}

func NewBalanceService(
	cfg *config.Config,
	host game.Host,
	cache *rating.Cache,
	orch *rating.Orchestrator,
	flags *repository.FlagRepository,
	switches *repository.SwitchRepository,
	aliases *repository.AliasRepository,
	logger zerolog.Logger,
) *BalanceService {
	return &BalanceService{
		cfg:      cfg,
		logger:   logger,
		host:     host,
		cache:    cache,
		orch:     orch,
		flags:    flags,
		switches: switches,
		aliases:  aliases,
		balancer: balance.NewBalancer(logger),
		rank:     balance.SmallestAvgDiff(),
		avgTable: parseThreshold(cfg.MinSuggestionDiff, "min_suggestion_diff", logger),
		devTable: parseThreshold(cfg.MinSuggestionDeviation, "min_suggestion_deviation", logger),
		matchSeq: time.Now().Unix(),
	}
}

// parseThreshold falls back to a disabled table on a misparse so a bad
// config value degrades suggestion filtering instead of crashing startup.
func parseThreshold(spec, name string, logger zerolog.Logger) balance.StepTable {
	table, err := balance.ParseStepTable(spec)
	if err != nil {
		logger.Warn().Err(err).Str("option", name).Str("value", spec).Msg("invalid threshold, disabling")
		return balance.StepTable{}
	}
	return table
}

// balancingSnapshot resolves the snapshot the configured strategy points
// at. The map-qualified primary falls back to the unqualified primary when
// the per-map table has not arrived yet.
func (s *BalanceService) balancingSnapshot(mapName string) (*rating.Snapshot, string) {
	name := rating.SourceNameForStrategy(s.cfg.Strategy, mapName)
	if snap, ok := s.cache.Get(name); ok {
		return snap, name
	}
	if s.cfg.Strategy == domain.StrategyMapPrimary {
		if snap, ok := s.cache.Get(rating.SourceSkill); ok {
			return snap, rating.SourceSkill
		}
	}
	return nil, name
}

// TeamsReport is the answer to a !teams-style query.
type TeamsReport struct {
	RedAverage  float64
	BlueAverage float64
	AverageDiff float64
	Source      string

	Suggestion *SuggestionReport
}

type SuggestionReport struct {
	ID       string
	Red      domain.PlayerID
	Blue     domain.PlayerID
	AvgDelta float64
	DevDelta float64
	State    string
}

// Teams reports the current balance and re-evaluates swap suggestions. A
// newly ranked suggestion supersedes a still-proposed pending one.
func (s *BalanceService) Teams(ctx context.Context) (*TeamsReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.host.CurrentRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	gt, err := s.host.CurrentGameType(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading game type: %w", err)
	}
	rounds, err := s.host.CurrentRoundsPlayed(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading rounds played: %w", err)
	}

	snap, source := s.balancingSnapshot(s.currentMap)
	if snap.Empty() {
		return nil, ErrNoRatings
	}

	report := &TeamsReport{
		RedAverage:  balance.TeamAverage(roster.Red, snap, gt),
		BlueAverage: balance.TeamAverage(roster.Blue, snap, gt),
		Source:      source,
	}
	report.AverageDiff = balance.AverageDiff(roster.Red, roster.Blue, snap, gt)

	avgTh, hasAvg := s.avgTable.Active(rounds)
	devTh, hasDev := s.devTable.Active(rounds)

	candidates := balance.PossibleSwitches(roster.Red, roster.Blue, snap, gt, avgTh, hasAvg)
	filtered := balance.FilterSwitches(candidates, report.AverageDiff, avgTh, hasAvg, devTh, hasDev, s.excludeSwitch(ctx))
	best, ok := s.rank.Rank(filtered)
	if ok && s.shouldPropose(best) {
		s.pending = balance.NewSuggestion(best)
		s.logger.Info().
			Str("id", s.pending.ID).
			Int64("red", int64(best.Red)).
			Int64("blue", int64(best.Blue)).
			Float64("avg_diff", best.AvgDiff).
			Msg("suggestion proposed")
	}

	if s.pending != nil {
		report.Suggestion = &SuggestionReport{
			ID:       s.pending.ID,
			Red:      s.pending.Red,
			Blue:     s.pending.Blue,
			AvgDelta: s.pending.AvgDelta,
			DevDelta: s.pending.DevDelta,
			State:    s.pending.State().String(),
		}
	}
	return report, nil
}

// shouldPropose decides whether a newly ranked candidate replaces the
// pending suggestion. An agreed suggestion stays until it executes or is
// vetoed; only a still-proposed one can be superseded.
func (s *BalanceService) shouldPropose(best balance.Switch) bool {
	if s.pending == nil {
		return true
	}
	if s.pending.SamePair(best) {
		return false
	}
	if s.pending.Supersede() {
		s.logger.Info().Str("id", s.pending.ID).Msg("suggestion superseded")
		return true
	}
	return false
}

// excludeSwitch builds the optional candidate filters: pairs vetoed
// earlier this match and players already switched this match.
func (s *BalanceService) excludeSwitch(ctx context.Context) func(balance.Switch) bool {
	var switched map[domain.PlayerID]bool
	if s.cfg.UniqueSwitches {
		var err error
		switched, err = s.switches.SwitchedPlayers(ctx, s.matchSeq)
		if err != nil {
			s.logger.Warn().Err(err).Msg("could not load switched players, filter disabled")
		}
	}
	return func(sw balance.Switch) bool {
		if !s.cfg.RepeatVetoed {
			vetoed, err := s.switches.WasVetoed(ctx, s.matchSeq, sw.Red, sw.Blue)
			if err != nil {
				s.logger.Warn().Err(err).Msg("could not check vetoed switches")
			} else if vetoed {
				return true
			}
		}
		if switched != nil && (switched[sw.Red] || switched[sw.Blue]) {
			return true
		}
		return false
	}
}

// BalanceTeams recomputes both teams from scratch and issues the moves.
func (s *BalanceService) BalanceTeams(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, err := s.host.CurrentRoster(ctx)
	if err != nil {
		return fmt.Errorf("reading roster: %w", err)
	}
	gt, err := s.host.CurrentGameType(ctx)
	if err != nil {
		return fmt.Errorf("reading game type: %w", err)
	}
	rounds, err := s.host.CurrentRoundsPlayed(ctx)
	if err != nil {
		return fmt.Errorf("reading rounds played: %w", err)
	}

	snap, _ := s.balancingSnapshot(s.currentMap)
	if snap.Empty() {
		return ErrNoRatings
	}

	playing := roster.Playing()
	assignment := map[domain.PlayerID]domain.TeamName{}
	for _, id := range playing {
		assignment[id] = roster.TeamOf(id)
	}

	threshold, hasThreshold := s.avgTable.Active(rounds)
	teamA, teamB := s.balancer.Balance(playing, snap, gt, balance.Options{
		Threshold:         threshold,
		HasThreshold:      hasThreshold,
		PreviousTeams:     s.previousTeams,
		UnevenPolicy:      s.cfg.UnevenTeamsPolicy,
		CurrentAssignment: assignment,
	})
	if len(teamA) == 0 && len(teamB) == 0 {
		return ErrNoRatings
	}

	placed := map[domain.PlayerID]domain.TeamName{}
	for _, id := range teamA {
		placed[id] = domain.TeamRed
	}
	for _, id := range teamB {
		placed[id] = domain.TeamBlue
	}

	for _, id := range playing {
		target, ok := placed[id]
		if !ok {
			// Skipped by the large-roster filter under the
			// spectate-extra policy.
			if err := s.host.MovePlayerToTeam(ctx, id, domain.TeamSpectator); err != nil {
				return fmt.Errorf("moving player %d to spectators: %w", id, err)
			}
			s.notify(ctx, id, "You were moved to spectators to even up the teams.")
			continue
		}
		if assignment[id] != target {
			if err := s.host.MovePlayerToTeam(ctx, id, target); err != nil {
				return fmt.Errorf("moving player %d: %w", id, err)
			}
		}
	}

	s.logger.Info().
		Int("team_a", len(teamA)).
		Int("team_b", len(teamB)).
		Msg("teams rebalanced")
	return nil
}

// Agree records a participant's consent to the pending suggestion and
// executes it when both sides have agreed, deferring to the next round
// countdown while a match is live.
func (s *BalanceService) Agree(ctx context.Context, player domain.PlayerID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false, ErrNoSuggestion
	}
	if !s.pending.Participant(player) {
		return false, ErrNotParticipant
	}

	s.pending.Agree(player)
	if !s.pending.Agreed() {
		return false, nil
	}

	inProgress, err := s.host.MatchInProgress(ctx)
	if err != nil {
		return false, fmt.Errorf("reading match state: %w", err)
	}
	if inProgress {
		s.logger.Info().Str("id", s.pending.ID).Msg("suggestion agreed, deferring to next round countdown")
		return false, nil
	}
	return s.executePending(ctx)
}

// Veto records a decline. Admin vetoes are final; in auto-switch mode both
// participants must veto before the suggestion dies.
func (s *BalanceService) Veto(ctx context.Context, player domain.PlayerID, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return ErrNoSuggestion
	}
	if !admin && !s.pending.Participant(player) {
		return ErrNotParticipant
	}

	var died bool
	if admin {
		died = s.pending.VetoByAdmin()
	} else {
		died = s.pending.Veto(player, s.cfg.AutoSwitch)
	}
	if !died {
		return nil
	}

	rec := domain.SwitchRecord{
		ID:         s.pending.ID,
		MatchSeq:   s.matchSeq,
		RedPlayer:  s.pending.Red,
		BluePlayer: s.pending.Blue,
		Vetoed:     true,
	}
	if err := s.switches.Record(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Msg("could not record vetoed switch")
	}
	s.logger.Info().Str("id", s.pending.ID).Msg("suggestion vetoed")
	s.pending = nil
	return nil
}

// ForceExecute executes the pending suggestion regardless of agreement
// (authorized override).
func (s *BalanceService) ForceExecute(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return false, ErrNoSuggestion
	}
	return s.executePending(ctx)
}

// executePending runs the pending suggestion's execute transition and
// settles the bookkeeping. Callers hold the mutex.
func (s *BalanceService) executePending(ctx context.Context) (bool, error) {
	suggestion := s.pending
	result, err := suggestion.Execute(ctx, s.host)
	if err != nil {
		return false, err
	}

	switch result {
	case balance.ExecuteDone:
		rec := domain.SwitchRecord{
			ID:         suggestion.ID,
			MatchSeq:   s.matchSeq,
			RedPlayer:  suggestion.Red,
			BluePlayer: suggestion.Blue,
		}
		if err := s.switches.Record(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Msg("could not record executed switch")
		}
		s.notify(ctx, suggestion.Red, "You were switched to even up the teams.")
		s.notify(ctx, suggestion.Blue, "You were switched to even up the teams.")
		s.logger.Info().Str("id", suggestion.ID).Msg("suggestion executed")
		s.pending = nil
		return true, nil
	case balance.ExecuteAbortedSpectator:
		// Raced by a disconnect or manual move; the suggestion is
		// silently discarded.
		s.logger.Debug().Str("id", suggestion.ID).Msg("suggestion aborted, participant no longer playing")
		s.pending = nil
		return false, nil
	default:
		return false, nil
	}
}

func (s *BalanceService) notify(ctx context.Context, id domain.PlayerID, message string) {
	if err := s.host.NotifyPlayer(ctx, id, message); err != nil {
		s.logger.Warn().Err(err).Int64("player", int64(id)).Msg("could not notify player")
	}
}

// PlayerRatings reports a player's entry for the current game type across
// every cached source, for display.
type PlayerRatingLine struct {
	Source string
	Value  string
	Games  int
}

func (s *BalanceService) PlayerRatings(ctx context.Context, id domain.PlayerID) ([]PlayerRatingLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gt, err := s.host.CurrentGameType(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading game type: %w", err)
	}

	var lines []PlayerRatingLine
	for _, src := range s.orch.Sources() {
		for _, key := range sourceCacheKeys(src, s.currentMap) {
			snap, ok := s.cache.Get(key)
			if !ok {
				continue
			}
			entry, ok := snap.Lookup(id, gt)
			if !ok {
				continue
			}
			lines = append(lines, PlayerRatingLine{
				Source: key,
				Value:  rating.FormatValue(entry.Value),
				Games:  entry.Games,
			})
		}
	}
	return lines, nil
}

func sourceCacheKeys(src rating.Source, mapName string) []string {
	keys := []string{src.CacheKey("")}
	if src.MapQualifiable && mapName != "" {
		keys = append(keys, src.CacheKey(mapName))
	}
	return keys
}
