package rating

import (
	"sort"
	"team-balancer/internal/domain"
)

// Table is one fetch result: player -> game type -> entry.
type Table map[domain.PlayerID]map[domain.GameType]domain.RatingEntry

// Snapshot is a layered, append-only rating table for one source. Fetch
// results are stacked with Append; lookups search the newest layer first,
// so a player who only ever appeared in an old layer still resolves while
// a re-fetched player resolves to the newest value.
type Snapshot struct {
	layers []Table
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

func SnapshotOf(t Table) *Snapshot {
	s := &Snapshot{}
	s.Append(t)
	return s
}

// Append stacks a fetch result on top of the existing layers. Empty tables
// are ignored.
func (s *Snapshot) Append(t Table) {
	if len(t) == 0 {
		return
	}
	s.layers = append(s.layers, t)
}

// Merge stacks every layer of other on top of s.
func (s *Snapshot) Merge(other *Snapshot) {
	if other == nil {
		return
	}
	s.layers = append(s.layers, other.layers...)
}

// Lookup resolves a player's entry for a game type, newest layer first.
// A player absent from every layer yields ok == false, never an error.
func (s *Snapshot) Lookup(id domain.PlayerID, gt domain.GameType) (domain.RatingEntry, bool) {
	if s == nil {
		return domain.RatingEntry{}, false
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		if byType, ok := s.layers[i][id]; ok {
			if entry, ok := byType[gt]; ok {
				return entry, true
			}
		}
	}
	return domain.RatingEntry{}, false
}

// Value returns the rating value, zero when unrated.
func (s *Snapshot) Value(id domain.PlayerID, gt domain.GameType) float64 {
	entry, _ := s.Lookup(id, gt)
	return entry.Value
}

// Has reports whether the player appears in any layer with any game type.
func (s *Snapshot) Has(id domain.PlayerID) bool {
	if s == nil {
		return false
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		if _, ok := s.layers[i][id]; ok {
			return true
		}
	}
	return false
}

// Players returns every player known to any layer, ascending.
func (s *Snapshot) Players() []domain.PlayerID {
	if s == nil {
		return nil
	}
	seen := map[domain.PlayerID]bool{}
	for _, layer := range s.layers {
		for id := range layer {
			seen[id] = true
		}
	}
	out := make([]domain.PlayerID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Empty reports whether the snapshot holds no data at all.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.layers) == 0
}

// Diff is a per-player, per-game-type signed rating delta.
type Diff map[domain.PlayerID]map[domain.GameType]float64

// DiffFrom computes s minus old for every game type known to s. Entries
// only s knows pass through as their raw value; zero deltas are omitted.
func (s *Snapshot) DiffFrom(old *Snapshot) Diff {
	out := Diff{}
	for _, id := range s.Players() {
		for gt := range domainGameTypes(s, id) {
			entry, ok := s.Lookup(id, gt)
			if !ok {
				continue
			}
			delta := entry.Value
			if oldEntry, ok := old.Lookup(id, gt); ok {
				delta = entry.Value - oldEntry.Value
			}
			if delta == 0 {
				continue
			}
			if out[id] == nil {
				out[id] = map[domain.GameType]float64{}
			}
			out[id][gt] = delta
		}
	}
	return out
}

func domainGameTypes(s *Snapshot, id domain.PlayerID) map[domain.GameType]bool {
	types := map[domain.GameType]bool{}
	for _, layer := range s.layers {
		for gt := range layer[id] {
			types[gt] = true
		}
	}
	return types
}
