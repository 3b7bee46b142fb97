package balance

import (
	"math"
	"team-balancer/internal/domain"
	"team-balancer/internal/rating"
)

// Switch is one candidate single-player swap and its predicted impact:
// the team average and deviation differences the rosters would have after
// swapping exactly this red/blue pair.
type Switch struct {
	Red     domain.PlayerID
	Blue    domain.PlayerID
	AvgDiff float64
	DevDiff float64
}

// PossibleSwitches computes the hypothetical post-swap differences for
// every (red, blue) pair and keeps the pairs whose average difference is
// at or below the active threshold. With no threshold configured every
// pair survives to filtering.
func PossibleSwitches(red, blue []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType, threshold float64, hasThreshold bool) []Switch {
	var out []Switch
	for _, rp := range red {
		for _, bp := range blue {
			newRed := swapOut(red, rp, bp)
			newBlue := swapOut(blue, bp, rp)
			avgDiff := AverageDiff(newRed, newBlue, snap, gt)
			if hasThreshold && avgDiff > threshold {
				continue
			}
			out = append(out, Switch{
				Red:     rp,
				Blue:    bp,
				AvgDiff: avgDiff,
				DevDiff: DeviationDiff(newRed, newBlue, snap, gt),
			})
		}
	}
	return out
}

// FilterSwitches applies the tighten-only rule: when the current average
// difference is already within threshold, only candidates that also keep
// the deviation difference within its threshold survive; when it is not,
// only candidates that improve the average difference by at least the
// threshold amount do. The exclude hook drops vetoed pairs and re-used
// players when those filters are enabled.
func FilterSwitches(candidates []Switch, currentAvgDiff float64, avgThreshold float64, hasAvgThreshold bool, devThreshold float64, hasDevThreshold bool, exclude func(Switch) bool) []Switch {
	var out []Switch
	for _, c := range candidates {
		if exclude != nil && exclude(c) {
			continue
		}
		if !hasAvgThreshold {
			out = append(out, c)
			continue
		}
		if currentAvgDiff <= avgThreshold {
			if hasDevThreshold && c.DevDiff > devThreshold {
				continue
			}
		} else if currentAvgDiff-c.AvgDiff < avgThreshold {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RankStrategy picks the suggestion to propose from the filtered
// candidates.
type RankStrategy interface {
	Rank(candidates []Switch) (Switch, bool)
}

type smallestAvgDiff struct{}

// SmallestAvgDiff ranks by smallest absolute hypothetical average
// difference, keeping input order on ties.
func SmallestAvgDiff() RankStrategy {
	return smallestAvgDiff{}
}

func (smallestAvgDiff) Rank(candidates []Switch) (Switch, bool) {
	if len(candidates) == 0 {
		return Switch{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if math.Abs(c.AvgDiff) < math.Abs(best.AvgDiff) {
			best = c
		}
	}
	return best, true
}

func swapOut(team []domain.PlayerID, remove, add domain.PlayerID) []domain.PlayerID {
	out := make([]domain.PlayerID, 0, len(team))
	for _, id := range team {
		if id == remove {
			continue
		}
		out = append(out, id)
	}
	return append(out, add)
}
