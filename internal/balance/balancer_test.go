package balance

import (
	"math"
	"math/rand"
	"team-balancer/internal/domain"
	"team-balancer/internal/rating"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBalancer(seed int64) *Balancer {
	return &Balancer{rng: rand.New(rand.NewSource(seed)), logger: zerolog.Nop()}
}

func ratedSnapshot(values map[domain.PlayerID]float64, games int) *rating.Snapshot {
	table := rating.Table{}
	for id, value := range values {
		table[id] = map[domain.GameType]domain.RatingEntry{
			domain.GameTypeCA: {Value: value, Games: games},
		}
	}
	return rating.SnapshotOf(table)
}

func asSet(ids []domain.PlayerID) map[domain.PlayerID]bool {
	out := map[domain.PlayerID]bool{}
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func TestBalanceSmallRosterPicksBestSplit(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{
		101: 1500, 102: 1600, 103: 1400, 104: 1550,
	}, 50)
	ids := []domain.PlayerID{101, 102, 103, 104}

	// Threshold 2 leaves no split "good enough", so the single smallest
	// difference must win: {101,104} (avg 1525) vs {102,103} (avg 1500).
	teamA, teamB := testBalancer(1).Balance(ids, snap, domain.GameTypeCA, Options{
		Threshold:    2,
		HasThreshold: true,
	})

	got := []map[domain.PlayerID]bool{asSet(teamA), asSet(teamB)}
	want := []map[domain.PlayerID]bool{
		{101: true, 104: true},
		{102: true, 103: true},
	}
	if !assert.ObjectsAreEqual(want[0], got[0]) {
		got[0], got[1] = got[1], got[0]
	}
	assert.Equal(t, want[0], got[0])
	assert.Equal(t, want[1], got[1])
	assert.InDelta(t, 25, AverageDiff(teamA, teamB, snap, domain.GameTypeCA), 1e-9)
}

func TestBalanceSmallRosterAntiRepetition(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{
		101: 1500, 102: 1600, 103: 1400, 104: 1550,
	}, 50)
	ids := []domain.PlayerID{101, 102, 103, 104}

	teamA, teamB := testBalancer(1).Balance(ids, snap, domain.GameTypeCA, Options{
		Threshold:    2,
		HasThreshold: true,
		PreviousTeams: [][]domain.PlayerID{
			{101, 104},
			{102, 103},
		},
	})

	// The optimal split repeats the previous match, so the next-best one
	// ({101,102} avg 1550 vs {103,104} avg 1475) is chosen.
	union := asSet(append(append([]domain.PlayerID{}, teamA...), teamB...))
	assert.Equal(t, asSet(ids), union)
	assert.False(t, sameSet(teamA, []domain.PlayerID{101, 104}))
	assert.False(t, sameSet(teamB, []domain.PlayerID{101, 104}))
	assert.InDelta(t, 75, AverageDiff(teamA, teamB, snap, domain.GameTypeCA), 1e-9)
}

func TestBalanceSmallRosterFallbackToCurrentAssignment(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{101: 1500, 102: 1600}, 50)
	ids := []domain.PlayerID{101, 102}

	teamA, teamB := testBalancer(1).Balance(ids, snap, domain.GameTypeCA, Options{
		PreviousTeams: [][]domain.PlayerID{{101}, {102}},
		CurrentAssignment: map[domain.PlayerID]domain.TeamName{
			101: domain.TeamBlue,
			102: domain.TeamRed,
		},
	})

	assert.Equal(t, []domain.PlayerID{102}, teamA)
	assert.Equal(t, []domain.PlayerID{101}, teamB)
}

func TestBalanceSmallRosterRandomAmongGoodSplits(t *testing.T) {
	snap := ratedSnapshot(map[domain.PlayerID]float64{
		101: 1500, 102: 1500, 103: 1500, 104: 1500,
	}, 50)
	ids := []domain.PlayerID{101, 102, 103, 104}

	// Every split has difference 0 < threshold; any of them is a valid
	// random pick but the partition must stay a clean two-way split.
	teamA, teamB := testBalancer(7).Balance(ids, snap, domain.GameTypeCA, Options{
		Threshold:    100,
		HasThreshold: true,
	})

	require.Len(t, teamA, 2)
	require.Len(t, teamB, 2)
	union := asSet(append(append([]domain.PlayerID{}, teamA...), teamB...))
	assert.Equal(t, asSet(ids), union)
}

func TestBalanceReturnsEmptyWithoutData(t *testing.T) {
	teamA, teamB := testBalancer(1).Balance([]domain.PlayerID{1, 2}, rating.NewSnapshot(), domain.GameTypeCA, Options{})
	assert.Empty(t, teamA)
	assert.Empty(t, teamB)
}

func TestBalanceGreedyDisjointUnion(t *testing.T) {
	values := map[domain.PlayerID]float64{}
	var ids []domain.PlayerID
	for i := 1; i <= 10; i++ {
		id := domain.PlayerID(i)
		ids = append(ids, id)
		values[id] = 1000 + float64(i)*37
	}
	snap := ratedSnapshot(values, 10)

	teamA, teamB := testBalancer(3).Balance(ids, snap, domain.GameTypeCA, Options{})

	require.Len(t, teamA, 5)
	require.Len(t, teamB, 5)
	union := asSet(append(append([]domain.PlayerID{}, teamA...), teamB...))
	assert.Equal(t, asSet(ids), union)
}

func TestBalanceGreedyBeatsNaiveHalves(t *testing.T) {
	values := map[domain.PlayerID]float64{
		1: 1000, 2: 1100, 3: 1200, 4: 1300,
		5: 1400, 6: 1500, 7: 1600, 8: 1700,
	}
	snap := ratedSnapshot(values, 10)
	ids := []domain.PlayerID{1, 2, 3, 4, 5, 6, 7, 8}

	teamA, teamB := testBalancer(5).Balance(ids, snap, domain.GameTypeCA, Options{})

	naiveLow := []domain.PlayerID{1, 2, 3, 4}
	naiveHigh := []domain.PlayerID{5, 6, 7, 8}
	naiveDiff := AverageDiff(naiveLow, naiveHigh, snap, domain.GameTypeCA)
	greedyDiff := AverageDiff(teamA, teamB, snap, domain.GameTypeCA)

	assert.LessOrEqual(t, greedyDiff, naiveDiff)
}

func TestBalanceGreedySkipsUnratedAndZeroGames(t *testing.T) {
	table := rating.Table{}
	var ids []domain.PlayerID
	for i := 1; i <= 8; i++ {
		id := domain.PlayerID(i)
		ids = append(ids, id)
		table[id] = map[domain.GameType]domain.RatingEntry{
			domain.GameTypeCA: {Value: 1000 + float64(i)*50, Games: 10},
		}
	}
	// Zero-games and unrated players must not land on either team.
	zeroGames := domain.PlayerID(90)
	unrated := domain.PlayerID(91)
	table[zeroGames] = map[domain.GameType]domain.RatingEntry{
		domain.GameTypeCA: {Value: 2000, Games: 0},
	}
	ids = append(ids, zeroGames, unrated)
	snap := rating.SnapshotOf(table)

	teamA, teamB := testBalancer(2).Balance(ids, snap, domain.GameTypeCA, Options{})

	placed := asSet(append(append([]domain.PlayerID{}, teamA...), teamB...))
	assert.False(t, placed[zeroGames])
	assert.False(t, placed[unrated])
	assert.Len(t, placed, 8)
}

func TestBalanceGreedySingleRatedPlayer(t *testing.T) {
	// Everyone but one player is unrated, so the only rated player is
	// parked with both teams still empty and must land on a team anyway.
	table := rating.Table{
		1: {domain.GameTypeCA: {Value: 1500, Games: 10}},
	}
	ids := []domain.PlayerID{1, 2, 3, 4, 5, 6, 7, 8, 9}
	snap := rating.SnapshotOf(table)

	teamA, teamB := testBalancer(6).Balance(ids, snap, domain.GameTypeCA, Options{
		UnevenPolicy: domain.UnevenAllow,
	})

	assert.Equal(t, []domain.PlayerID{1}, teamA)
	assert.Empty(t, teamB)
}

func TestBalanceGreedyOddRoster(t *testing.T) {
	values := map[domain.PlayerID]float64{}
	var ids []domain.PlayerID
	for i := 1; i <= 9; i++ {
		id := domain.PlayerID(i)
		ids = append(ids, id)
		values[id] = 1000 + float64(i)*100
	}
	snap := ratedSnapshot(values, 10)

	t.Run("allow uneven parks and inserts the lowest", func(t *testing.T) {
		teamA, teamB := testBalancer(4).Balance(ids, snap, domain.GameTypeCA, Options{
			UnevenPolicy: domain.UnevenAllow,
		})
		placed := asSet(append(append([]domain.PlayerID{}, teamA...), teamB...))
		assert.Len(t, placed, 9)
		assert.True(t, placed[1], "lowest-rated player is inserted, not dropped")
		assert.Equal(t, 1, int(math.Abs(float64(len(teamA)-len(teamB)))))
	})

	t.Run("spectate policy excludes the lowest", func(t *testing.T) {
		teamA, teamB := testBalancer(4).Balance(ids, snap, domain.GameTypeCA, Options{
			UnevenPolicy: domain.UnevenSpectateExtra,
		})
		placed := asSet(append(append([]domain.PlayerID{}, teamA...), teamB...))
		assert.Len(t, placed, 8)
		assert.False(t, placed[1])
	})
}
