package balance

import (
	"team-balancer/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPossibleSwitchesThresholdGate(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{
		1: 1500, 2: 1700,
		3: 1400, 4: 1450,
	}, 20)
	red := []domain.PlayerID{1, 2}
	blue := []domain.PlayerID{3, 4}

	// Hypothetical diffs: 1<->3 and 2<->4 leave 75, 1<->4 and 2<->3
	// leave 125; a threshold of 100 keeps only the former pair of swaps.
	candidates := PossibleSwitches(red, blue, snap, domain.GameTypeCA, 100, true)

	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.LessOrEqual(t, c.AvgDiff, 100.0)
	}
}

func TestPossibleSwitchesNoThresholdKeepsAll(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{1: 1500, 2: 1700, 3: 1400, 4: 1450}, 20)
	candidates := PossibleSwitches([]domain.PlayerID{1, 2}, []domain.PlayerID{3, 4}, snap, domain.GameTypeCA, 0, false)
	assert.Len(t, candidates, 4)
}

func TestFilterSwitchesMonotonicImprovement(t *testing.T) {
	// Current diff exceeds the threshold: survivors must improve it by
	// at least the threshold amount, so none may be worse than current.
	candidates := []Switch{
		{Red: 1, Blue: 3, AvgDiff: 120},
		{Red: 1, Blue: 4, AvgDiff: 60},
		{Red: 2, Blue: 3, AvgDiff: 20},
	}
	currentDiff := 150.0

	filtered := FilterSwitches(candidates, currentDiff, 50, true, 0, false, nil)

	require.NotEmpty(t, filtered)
	for _, c := range filtered {
		assert.LessOrEqual(t, c.AvgDiff, currentDiff)
		assert.GreaterOrEqual(t, currentDiff-c.AvgDiff, 50.0)
	}
	assert.Len(t, filtered, 2)
}

func TestFilterSwitchesTightenOnly(t *testing.T) {
	// Current diff already within threshold: only candidates that also
	// keep the deviation difference within its threshold survive.
	candidates := []Switch{
		{Red: 1, Blue: 3, AvgDiff: 30, DevDiff: 10},
		{Red: 1, Blue: 4, AvgDiff: 20, DevDiff: 90},
	}

	filtered := FilterSwitches(candidates, 40, 50, true, 25, true, nil)

	require.Len(t, filtered, 1)
	assert.Equal(t, domain.PlayerID(3), filtered[0].Blue)
}

func TestFilterSwitchesExcludeHook(t *testing.T) {
	candidates := []Switch{
		{Red: 1, Blue: 3, AvgDiff: 10},
		{Red: 2, Blue: 4, AvgDiff: 5},
	}
	exclude := func(sw Switch) bool { return sw.Red == 2 }

	filtered := FilterSwitches(candidates, 100, 50, true, 0, false, exclude)

	require.Len(t, filtered, 1)
	assert.Equal(t, domain.PlayerID(1), filtered[0].Red)
}

func TestRankSmallestAvgDiff(t *testing.T) {
	best, ok := SmallestAvgDiff().Rank([]Switch{
		{Red: 1, Blue: 3, AvgDiff: 40},
		{Red: 1, Blue: 4, AvgDiff: 15},
		{Red: 2, Blue: 3, AvgDiff: 25},
	})

	require.True(t, ok)
	assert.Equal(t, domain.PlayerID(4), best.Blue)
}

func TestRankStableOnTies(t *testing.T) {
	best, ok := SmallestAvgDiff().Rank([]Switch{
		{Red: 1, Blue: 3, AvgDiff: 15},
		{Red: 2, Blue: 4, AvgDiff: 15},
	})

	require.True(t, ok)
	assert.Equal(t, domain.PlayerID(1), best.Red, "ties break by input order")
}

func TestRankEmpty(t *testing.T) {
	_, ok := SmallestAvgDiff().Rank(nil)
	assert.False(t, ok)
}

func TestTeamAverageEmptyAndUnrated(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{1: 1500}, 20)

	assert.Zero(t, TeamAverage(nil, snap, domain.GameTypeCA))
	assert.Zero(t, TeamAverage([]domain.PlayerID{999}, snap, domain.GameTypeCA))
	assert.Equal(t, 1500.0, TeamAverage([]domain.PlayerID{1, 999}, snap, domain.GameTypeCA))
}

func TestTeamStdDev(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{1: 1400, 2: 1600}, 20)

	// Deviations from the 1500 average are +-100; RMS is 100.
	assert.InDelta(t, 100, TeamStdDev([]domain.PlayerID{1, 2}, snap, domain.GameTypeCA), 1e-9)
	assert.Zero(t, TeamStdDev(nil, snap, domain.GameTypeCA))
}
