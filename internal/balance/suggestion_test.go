package balance

import (
	"context"
	"fmt"
	"team-balancer/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	roster domain.Roster
	moves  []string
}

func (h *fakeHost) CurrentRoster(context.Context) (domain.Roster, error) { return h.roster, nil }
func (h *fakeHost) CurrentRoundsPlayed(context.Context) (int, error)     { return 0, nil }
func (h *fakeHost) CurrentGameType(context.Context) (domain.GameType, error) {
	return domain.GameTypeCA, nil
}
func (h *fakeHost) CurrentMap(context.Context) (string, error)      { return "campgrounds", nil }
func (h *fakeHost) MatchInProgress(context.Context) (bool, error)   { return false, nil }
func (h *fakeHost) SwapPlayers(context.Context, domain.PlayerID, domain.PlayerID) error {
	return nil
}
func (h *fakeHost) NotifyPlayer(context.Context, domain.PlayerID, string) error { return nil }

func (h *fakeHost) MovePlayerToTeam(_ context.Context, id domain.PlayerID, team domain.TeamName) error {
	h.moves = append(h.moves, fmt.Sprintf("%d->%s", id, team))
	return nil
}

func TestSuggestionAgreeBothRequired(t *testing.T) {
	s := NewSuggestion(Switch{Red: 201, Blue: 202, AvgDiff: 10})

	require.Equal(t, StateProposed, s.State())

	s.Agree(201)
	assert.Equal(t, StateProposed, s.State(), "one agreement does not change state")

	s.Agree(202)
	assert.Equal(t, StateAgreed, s.State())
}

func TestSuggestionAgreeIgnoresOutsiders(t *testing.T) {
	s := NewSuggestion(Switch{Red: 201, Blue: 202})

	s.Agree(999)
	s.Agree(201)
	assert.Equal(t, StateProposed, s.State())
}

func TestSuggestionVetoManual(t *testing.T) {
	s := NewSuggestion(Switch{Red: 201, Blue: 202})

	died := s.Veto(201, false)
	assert.True(t, died)
	assert.Equal(t, StateVetoed, s.State())
}

func TestSuggestionVetoAutoNeedsBoth(t *testing.T) {
	s := NewSuggestion(Switch{Red: 201, Blue: 202})

	assert.False(t, s.Veto(201, true))
	assert.Equal(t, StateProposed, s.State())

	assert.True(t, s.Veto(202, true))
	assert.Equal(t, StateVetoed, s.State())
}

func TestSuggestionSupersede(t *testing.T) {
	s := NewSuggestion(Switch{Red: 201, Blue: 202})
	assert.True(t, s.Supersede())
	assert.Equal(t, StateSuperseded, s.State())

	assert.False(t, s.Supersede(), "only a proposed suggestion can be superseded")
}

func TestSuggestionExecuteSwapsBothPlayers(t *testing.T) {
	host := &fakeHost{roster: domain.Roster{
		Red:  []domain.PlayerID{201, 203},
		Blue: []domain.PlayerID{202, 204},
	}}
	s := NewSuggestion(Switch{Red: 201, Blue: 202})
	s.Agree(201)
	s.Agree(202)

	result, err := s.Execute(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, ExecuteDone, result)
	assert.Equal(t, StateExecuted, s.State())
	assert.Equal(t, []string{"201->blue", "202->red"}, host.moves)
}

func TestSuggestionExecuteAbortsOnSpectator(t *testing.T) {
	tests := []struct {
		name   string
		roster domain.Roster
	}{
		{
			name: "red participant went to spectators",
			roster: domain.Roster{
				Blue:      []domain.PlayerID{202},
				Spectator: []domain.PlayerID{201},
			},
		},
		{
			name: "blue participant disconnected",
			roster: domain.Roster{
				Red: []domain.PlayerID{201},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := &fakeHost{roster: tt.roster}
			s := NewSuggestion(Switch{Red: 201, Blue: 202})

			result, err := s.Execute(context.Background(), host)
			require.NoError(t, err)
			assert.Equal(t, ExecuteAbortedSpectator, result)
			assert.Equal(t, StateAborted, s.State())
			assert.Empty(t, host.moves, "no roster mutation on abort")
		})
	}
}

func TestSuggestionExecuteInvalidState(t *testing.T) {
	host := &fakeHost{roster: domain.Roster{
		Red:  []domain.PlayerID{201},
		Blue: []domain.PlayerID{202},
	}}
	s := NewSuggestion(Switch{Red: 201, Blue: 202})
	s.Veto(201, false)

	result, err := s.Execute(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, ExecuteInvalidState, result)
	assert.Empty(t, host.moves)
}
