package balance

import (
	"context"
	"fmt"
	"team-balancer/internal/constants"
	"team-balancer/internal/domain"
	"team-balancer/internal/game"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type State int

const (
	StateProposed State = iota
	StateAgreed
	StateExecuted
	StateVetoed
	StateSuperseded
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateProposed:
		return "proposed"
	case StateAgreed:
		return "agreed"
	case StateExecuted:
		return "executed"
	case StateVetoed:
		return "vetoed"
	case StateSuperseded:
		return "superseded"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// ExecuteResult is the typed outcome of Execute; a raced participant who
// went to spectators is a normal outcome, not an error.
type ExecuteResult int

const (
	ExecuteDone ExecuteResult = iota
	ExecuteAbortedSpectator
	ExecuteInvalidState
)

// Suggestion is one proposed red/blue swap. Immutable once created except
// for its agreement/veto sets and state.
type Suggestion struct {
	ID       string
	Red      domain.PlayerID
	Blue     domain.PlayerID
	AvgDelta float64
	DevDelta float64

	state  State
	agreed map[domain.PlayerID]bool
	vetoes map[domain.PlayerID]bool
}

func NewSuggestion(sw Switch) *Suggestion {
	id, err := gonanoid.New(constants.SuggestionIDLength)
	if err != nil {
		// nanoid only fails when the OS entropy source does.
		id = fmt.Sprintf("%d-%d", sw.Red, sw.Blue)
	}
	return &Suggestion{
		ID:       id,
		Red:      sw.Red,
		Blue:     sw.Blue,
		AvgDelta: sw.AvgDiff,
		DevDelta: sw.DevDiff,
		state:    StateProposed,
		agreed:   map[domain.PlayerID]bool{},
		vetoes:   map[domain.PlayerID]bool{},
	}
}

func (s *Suggestion) State() State { return s.state }

func (s *Suggestion) Participant(id domain.PlayerID) bool {
	return id == s.Red || id == s.Blue
}

// SamePair reports whether a candidate proposes the same swap.
func (s *Suggestion) SamePair(sw Switch) bool {
	return s.Red == sw.Red && s.Blue == sw.Blue
}

// Agree records a participant's consent. Returns true when the suggestion
// just transitioned to Agreed.
func (s *Suggestion) Agree(id domain.PlayerID) bool {
	if s.state != StateProposed || !s.Participant(id) {
		return false
	}
	s.agreed[id] = true
	if s.agreed[s.Red] && s.agreed[s.Blue] {
		s.state = StateAgreed
		return true
	}
	return false
}

func (s *Suggestion) Agreed() bool {
	return s.state == StateAgreed
}

// Veto records a decline. In auto-switch mode both participants must veto
// before the suggestion dies; in manual mode any participant or an admin
// kills it outright. Returns true when the suggestion became Vetoed.
func (s *Suggestion) Veto(id domain.PlayerID, requireBoth bool) bool {
	if s.state != StateProposed && s.state != StateAgreed {
		return false
	}
	if !s.Participant(id) {
		return false
	}
	s.vetoes[id] = true
	if !requireBoth || (s.vetoes[s.Red] && s.vetoes[s.Blue]) {
		s.state = StateVetoed
		return true
	}
	return false
}

// VetoByAdmin kills the suggestion regardless of participant opinion.
func (s *Suggestion) VetoByAdmin() bool {
	if s.state != StateProposed && s.state != StateAgreed {
		return false
	}
	s.state = StateVetoed
	return true
}

// Supersede retires a still-proposed suggestion in favor of a newer one.
func (s *Suggestion) Supersede() bool {
	if s.state != StateProposed {
		return false
	}
	s.state = StateSuperseded
	return true
}

// Execute swaps the participants by moving each to the opposite team. If
// either participant is no longer on a playing team (raced by a
// disconnect or a manual move), nothing is mutated and the suggestion is
// discarded with ExecuteAbortedSpectator.
func (s *Suggestion) Execute(ctx context.Context, host game.Host) (ExecuteResult, error) {
	if s.state != StateProposed && s.state != StateAgreed {
		return ExecuteInvalidState, nil
	}

	roster, err := host.CurrentRoster(ctx)
	if err != nil {
		return ExecuteInvalidState, fmt.Errorf("reading roster: %w", err)
	}
	redTeam := roster.TeamOf(s.Red)
	blueTeam := roster.TeamOf(s.Blue)
	if !redTeam.Playing() || !blueTeam.Playing() {
		s.state = StateAborted
		return ExecuteAbortedSpectator, nil
	}

	if err := host.MovePlayerToTeam(ctx, s.Red, redTeam.Opposite()); err != nil {
		return ExecuteInvalidState, fmt.Errorf("moving player %d: %w", s.Red, err)
	}
	if err := host.MovePlayerToTeam(ctx, s.Blue, blueTeam.Opposite()); err != nil {
		return ExecuteInvalidState, fmt.Errorf("moving player %d: %w", s.Blue, err)
	}

	s.state = StateExecuted
	return ExecuteDone, nil
}
