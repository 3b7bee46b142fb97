package rating

import (
	"context"
	"errors"
	"sync"
	"team-balancer/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrStillFetching reports that every requested player already has a fetch
// in flight for the source; the caller should simply wait for the next
// event instead of issuing another network call.
var ErrStillFetching = errors.New("rating fetch already in flight")

type inflightKey struct {
	source string
	player domain.PlayerID
}

// Orchestrator issues fetches against the configured sources and merges
// successes into the cache. It guarantees at most one in-flight fetch per
// (player, source) pair.
type Orchestrator struct {
	client  *Client
	cache   *Cache
	sources []Source
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[inflightKey]bool
}

func NewOrchestrator(client *Client, cache *Cache, sources []Source, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client:   client,
		cache:    cache,
		sources:  sources,
		logger:   logger,
		inflight: map[inflightKey]bool{},
	}
}

func (o *Orchestrator) Sources() []Source {
	return o.sources
}

// Fetch resolves ratings for the given players from one source, skipping
// players already cached and players with a fetch outstanding. A successful
// result is merged into the cache under the source's cache key.
func (o *Orchestrator) Fetch(ctx context.Context, src Source, mapName string, ids []domain.PlayerID) (*Snapshot, error) {
	cacheKey := src.CacheKey(mapName)

	var missing []domain.PlayerID
	for _, id := range ids {
		if !o.cache.Has(cacheKey, id) {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		snap, _ := o.cache.Get(cacheKey)
		return snap, nil
	}

	claimed := o.claim(cacheKey, missing)
	if len(claimed) == 0 {
		return nil, ErrStillFetching
	}
	defer o.release(cacheKey, claimed)

	snap, err := o.client.Fetch(ctx, src, mapName, claimed)
	if err != nil {
		return nil, err
	}

	o.cache.Merge(cacheKey, snap)
	return snap, nil
}

// FetchAll issues one fetch per configured source concurrently, plus a
// map-qualified fetch of any map-qualifiable source when a map is active.
// Individual failures are logged and dropped; successes are merged.
func (o *Orchestrator) FetchAll(ctx context.Context, mapName string, ids []domain.PlayerID) {
	g := new(errgroup.Group)
	for _, src := range o.sources {
		g.Go(o.fetchTask(ctx, src, "", ids))
		if src.MapQualifiable && mapName != "" {
			g.Go(o.fetchTask(ctx, src, mapName, ids))
		}
	}
	// Tasks never return errors; failed sources are just "no data yet".
	_ = g.Wait()
}

func (o *Orchestrator) fetchTask(ctx context.Context, src Source, mapName string, ids []domain.PlayerID) func() error {
	return func() error {
		if _, err := o.Fetch(ctx, src, mapName, ids); err != nil {
			if errors.Is(err, ErrStillFetching) {
				o.logger.Debug().Str("source", src.CacheKey(mapName)).Msg("fetch already in flight, skipping")
				return nil
			}
			o.logger.Warn().Err(err).Str("source", src.CacheKey(mapName)).Msg("dropping failed rating source for this round")
		}
		return nil
	}
}

// claim marks the subset of ids with no outstanding fetch as in flight and
// returns it.
func (o *Orchestrator) claim(source string, ids []domain.PlayerID) []domain.PlayerID {
	o.mu.Lock()
	defer o.mu.Unlock()
	var claimed []domain.PlayerID
	for _, id := range ids {
		key := inflightKey{source: source, player: id}
		if o.inflight[key] {
			continue
		}
		o.inflight[key] = true
		claimed = append(claimed, id)
	}
	return claimed
}

func (o *Orchestrator) release(source string, ids []domain.PlayerID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		delete(o.inflight, inflightKey{source: source, player: id})
	}
}
