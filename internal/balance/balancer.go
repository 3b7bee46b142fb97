package balance

import (
	"math"
	"math/bits"
	"math/rand"
	"sort"
	"team-balancer/internal/constants"
	"team-balancer/internal/domain"
	"team-balancer/internal/rating"
	"time"

	"github.com/rs/zerolog"
)

// Options carries the per-call context the balancer needs: the active
// average-difference threshold (if any), the previous match's teams for
// anti-repetition, the uneven-teams policy, and the live assignment used
// as a last-resort fallback on small rosters.
type Options struct {
	Threshold    float64
	HasThreshold bool

	PreviousTeams [][]domain.PlayerID

	UnevenPolicy domain.UnevenTeamsPolicy

	CurrentAssignment map[domain.PlayerID]domain.TeamName
}

// Balancer partitions a flat player list into two teams. It never touches
// the roster; callers decide what to do with the proposal.
type Balancer struct {
	rng    *rand.Rand
	logger zerolog.Logger
}

func NewBalancer(logger zerolog.Logger) *Balancer {
	return &Balancer{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Balance proposes a two-team partition of ids using the given snapshot.
// Small rosters get an exhaustive search, larger ones greedy pairing.
// A snapshot with no data yields two empty teams.
func (b *Balancer) Balance(ids []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType, opts Options) (teamA, teamB []domain.PlayerID) {
	if snap.Empty() || len(ids) == 0 {
		return nil, nil
	}
	if len(ids) < constants.ExhaustiveRosterLimit {
		return b.balanceExhaustive(ids, snap, gt, opts)
	}
	return b.balanceGreedy(ids, snap, gt, opts)
}

type splitCandidate struct {
	a, b []domain.PlayerID
	diff float64
}

// balanceExhaustive enumerates every half/half split, drops splits that
// repeat a team from the previous match, and picks uniformly among splits
// under the active threshold, else the single best. If anti-repetition
// leaves nothing, the players' current assignment stands.
func (b *Balancer) balanceExhaustive(ids []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType, opts Options) ([]domain.PlayerID, []domain.PlayerID) {
	n := len(ids)
	half := n / 2

	var candidates []splitCandidate
	for mask := 0; mask < 1<<n; mask++ {
		if bits.OnesCount(uint(mask)) != half {
			continue
		}
		// For even rosters each split appears as mask and complement;
		// pinning player 0 into team B halves the enumeration.
		if n%2 == 0 && mask&1 == 1 {
			continue
		}
		var a, bTeam []domain.PlayerID
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				a = append(a, id)
			} else {
				bTeam = append(bTeam, id)
			}
		}
		if repeatsPreviousMatch(a, bTeam, opts.PreviousTeams) {
			continue
		}
		candidates = append(candidates, splitCandidate{
			a:    a,
			b:    bTeam,
			diff: AverageDiff(a, bTeam, snap, gt),
		})
	}

	if len(candidates) == 0 {
		b.logger.Debug().Msg("every split repeats the previous match, keeping current assignment")
		return currentSplit(ids, opts.CurrentAssignment)
	}

	if opts.HasThreshold {
		var underThreshold []splitCandidate
		for _, c := range candidates {
			if c.diff < opts.Threshold {
				underThreshold = append(underThreshold, c)
			}
		}
		if len(underThreshold) > 0 {
			// Random pick among good-enough splits so the same "best"
			// pairing is not proposed match after match.
			pick := underThreshold[b.rng.Intn(len(underThreshold))]
			return pick.a, pick.b
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.diff < best.diff {
			best = c
		}
	}
	return best.a, best.b
}

// balanceGreedy sorts rated players ascending and assigns the top pair to
// whichever orientation keeps the running averages closest, flipping a
// coin on near-ties. Unrated and zero-games players are skipped entirely.
// An odd player out is parked and inserted last, or excluded when the
// uneven-teams policy sends extras to spectate.
func (b *Balancer) balanceGreedy(ids []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType, opts Options) ([]domain.PlayerID, []domain.PlayerID) {
	type ratedPlayer struct {
		id    domain.PlayerID
		value float64
	}
	var rated []ratedPlayer
	for _, id := range ids {
		entry, ok := snap.Lookup(id, gt)
		if !ok || entry.Games == 0 {
			continue
		}
		rated = append(rated, ratedPlayer{id: id, value: entry.Value})
	}
	sort.Slice(rated, func(i, j int) bool { return rated[i].value < rated[j].value })

	var parked *ratedPlayer
	if len(rated)%2 == 1 {
		lowest := rated[0]
		rated = rated[1:]
		if opts.UnevenPolicy != domain.UnevenSpectateExtra {
			parked = &lowest
		}
	}

	var teamA, teamB []domain.PlayerID
	var sumA, sumB float64
	for i := len(rated) - 1; i > 0; i -= 2 {
		p1, p2 := rated[i], rated[i-1]
		count := float64(len(teamA) + 1)
		straight := math.Abs((sumA+p1.value)/count - (sumB+p2.value)/count)
		crossed := math.Abs((sumA+p2.value)/count - (sumB+p1.value)/count)

		pickStraight := straight < crossed
		if opts.HasThreshold && math.Abs(straight-crossed) < opts.Threshold {
			pickStraight = b.rng.Intn(2) == 0
		}

		if pickStraight {
			teamA = append(teamA, p1.id)
			teamB = append(teamB, p2.id)
			sumA += p1.value
			sumB += p2.value
		} else {
			teamA = append(teamA, p2.id)
			teamB = append(teamB, p1.id)
			sumA += p2.value
			sumB += p1.value
		}
	}

	if parked != nil {
		// With a single rated player both teams are still empty; the
		// average comparison would divide by zero.
		if len(teamA) == 0 {
			return []domain.PlayerID{parked.id}, nil
		}
		intoA := math.Abs((sumA+parked.value)/float64(len(teamA)+1) - sumB/float64(len(teamB)))
		intoB := math.Abs(sumA/float64(len(teamA)) - (sumB+parked.value)/float64(len(teamB)+1))
		if intoA <= intoB {
			teamA = append(teamA, parked.id)
		} else {
			teamB = append(teamB, parked.id)
		}
	}

	return teamA, teamB
}

func repeatsPreviousMatch(a, b []domain.PlayerID, previous [][]domain.PlayerID) bool {
	for _, prev := range previous {
		if sameSet(a, prev) || sameSet(b, prev) {
			return true
		}
	}
	return false
}

func sameSet(a, b []domain.PlayerID) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	members := make(map[domain.PlayerID]bool, len(a))
	for _, id := range a {
		members[id] = true
	}
	for _, id := range b {
		if !members[id] {
			return false
		}
	}
	return true
}

func currentSplit(ids []domain.PlayerID, assignment map[domain.PlayerID]domain.TeamName) ([]domain.PlayerID, []domain.PlayerID) {
	var red, blue []domain.PlayerID
	for _, id := range ids {
		switch assignment[id] {
		case domain.TeamRed:
			red = append(red, id)
		case domain.TeamBlue:
			blue = append(blue, id)
		}
	}
	return red, blue
}
