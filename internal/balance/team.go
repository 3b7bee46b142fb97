package balance

import (
	"math"
	"team-balancer/internal/domain"
	"team-balancer/internal/rating"
)

// TeamAverage is the mean rating of the rated players on a team. An empty
// or entirely-unrated team averages zero, never an error.
func TeamAverage(ids []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType) float64 {
	var sum float64
	var rated int
	for _, id := range ids {
		if entry, ok := snap.Lookup(id, gt); ok {
			sum += entry.Value
			rated++
		}
	}
	if rated == 0 {
		return 0
	}
	return sum / float64(rated)
}

// TeamStdDev is the root-mean-square deviation of rated players from the
// team average.
func TeamStdDev(ids []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType) float64 {
	avg := TeamAverage(ids, snap, gt)
	var sum float64
	var rated int
	for _, id := range ids {
		if entry, ok := snap.Lookup(id, gt); ok {
			sum += (entry.Value - avg) * (entry.Value - avg)
			rated++
		}
	}
	if rated == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(rated))
}

// AverageDiff is the absolute difference between the two team averages.
func AverageDiff(teamA, teamB []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType) float64 {
	return math.Abs(TeamAverage(teamA, snap, gt) - TeamAverage(teamB, snap, gt))
}

// DeviationDiff is the absolute difference between the two team standard
// deviations.
func DeviationDiff(teamA, teamB []domain.PlayerID, snap *rating.Snapshot, gt domain.GameType) float64 {
	return math.Abs(TeamStdDev(teamA, snap, gt) - TeamStdDev(teamB, snap, gt))
}
