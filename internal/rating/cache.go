package rating

import (
	"sync"
	"team-balancer/internal/domain"

	"github.com/rs/zerolog"
)

// Cache is the process-wide table of source name -> Snapshot. Fetch results
// are merged in by the orchestrator; nothing else mutates it. Across a map
// change the outgoing snapshots are retained under a previous generation
// long enough to report rating changes, then dropped on the next change.
type Cache struct {
	mu       sync.RWMutex
	live     map[string]*Snapshot
	previous map[string]*Snapshot
	logger   zerolog.Logger
}

func NewCache(logger zerolog.Logger) *Cache {
	return &Cache{
		live:     map[string]*Snapshot{},
		previous: map[string]*Snapshot{},
		logger:   logger,
	}
}

// Get returns the live snapshot for a source name.
func (c *Cache) Get(source string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.live[source]
	return snap, ok
}

// Previous returns the snapshot retired by the last map change.
func (c *Cache) Previous(source string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.previous[source]
	return snap, ok
}

// Has reports whether a player is already resolved in the live snapshot for
// a source, letting the orchestrator skip redundant fetches.
func (c *Cache) Has(source string, id domain.PlayerID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.live[source].Has(id)
}

// Merge layers a fetch result into the live snapshot for a source,
// creating the entry on first success.
func (c *Cache) Merge(source string, snap *Snapshot) {
	if snap.Empty() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.live[source]
	if !ok {
		existing = NewSnapshot()
		c.live[source] = existing
	}
	existing.Merge(snap)
	c.logger.Debug().Str("source", source).Msg("rating snapshot merged")
}

// ResetForMap retires the live generation to previous and starts fresh.
func (c *Cache) ResetForMap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous = c.live
	c.live = map[string]*Snapshot{}
	c.logger.Info().Int("retired_sources", len(c.previous)).Msg("rating cache reset for map change")
}

// ChangesSinceMapChange diffs the live snapshot against the retired one for
// the same source, for player-facing change notifications.
func (c *Cache) ChangesSinceMapChange(source string) Diff {
	c.mu.RLock()
	defer c.mu.RUnlock()
	live, ok := c.live[source]
	if !ok {
		return Diff{}
	}
	return live.DiffFrom(c.previous[source])
}
