package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"golang.org/x/sync/singleflight"
)

type Poller interface {
	// Poll returns the current snapshot for a network, contacting upstream at
	// most once per poll interval. Upstream failures are logged and absorbed:
	// the caller always gets a snapshot, possibly a stale one.
	Poll(ctx context.Context, network models.NetworkName) models.Snapshot
}

const (
	defaultPollInterval = 500 * time.Millisecond
	// nominal inter-block time on Aptos, used when no prior block is cached
	defaultBlockTimeMs = 94
	// how many of the newest cached blocks feed the TPS / avg-block-time metrics
	metricsWindow = 20
)

type Config struct {
	PollInterval  time.Duration
	BackfillDepth int
}

type poller struct {
	log  *slog.Logger
	node fullnode.Client
	cfg  Config

	mu     sync.Mutex
	caches map[models.NetworkName]*networkCache
	// collapses interleaved fetch attempts for the same network into one
	// upstream cycle
	flight singleflight.Group
}

var _ Poller = &poller{}

func New(log *slog.Logger, node fullnode.Client, cfg Config) *poller { // revive:disable-line:unexported-return
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &poller{
		log:    log.With("module", "poller"),
		node:   node,
		cfg:    cfg,
		caches: make(map[models.NetworkName]*networkCache),
	}
}

func (p *poller) cache(network models.NetworkName) *networkCache {
	p.mu.Lock()
	defer p.mu.Unlock()
	cache, ok := p.caches[network]
	if !ok {
		cache = newNetworkCache()
		p.caches[network] = cache
	}
	return cache
}

func (p *poller) Poll(ctx context.Context, network models.NetworkName) models.Snapshot {
	cache := p.cache(network)

	cache.mu.Lock()
	elapsed := time.Since(cache.lastFetch)
	if elapsed < p.cfg.PollInterval {
		// heartbeat path: serve the cached window, lastFetch untouched
		snap := p.snapshotLocked(cache, models.EventHeartbeat, nil)
		cache.mu.Unlock()
		heartbeatCount.WithLabelValues(network.String()).Inc()
		return snap
	}
	cache.mu.Unlock()

	result, _, _ := p.flight.Do(network.String(), func() (interface{}, error) {
		return p.fetch(ctx, network, cache), nil
	})
	return result.(models.Snapshot)
}

func (p *poller) fetch(ctx context.Context, network models.NetworkName, cache *networkCache) models.Snapshot {
	upstreamPollCount.WithLabelValues(network.String()).Inc()

	info, err := p.node.LedgerInfo(ctx, network)
	if err != nil {
		p.log.Error("Failed to fetch ledger info, serving cached data", "network", network, "error", err)
		return p.snapshot(cache, models.EventHeartbeat, nil)
	}
	height, err := info.Height()
	if err != nil {
		p.log.Error("Malformed ledger info, serving cached data", "network", network, "error", err)
		return p.snapshot(cache, models.EventHeartbeat, nil)
	}

	cache.mu.Lock()
	seeded := cache.backfilled
	lastHeight := cache.lastHeight
	cache.mu.Unlock()

	if !seeded {
		p.backfill(ctx, network, cache, height)
		cache.mu.Lock()
		lastHeight = cache.lastHeight
		cache.mu.Unlock()
	}

	if height <= lastHeight {
		// no new block; lastHeight stays monotonic even if a lagging
		// upstream reports an older tip
		cache.mu.Lock()
		cache.lastFetch = time.Now()
		snap := p.snapshotLocked(cache, models.EventHeartbeat, nil)
		cache.mu.Unlock()
		return snap
	}

	block, err := p.node.BlockByHeight(ctx, network, height)
	if err != nil {
		p.log.Error("Failed to fetch block, serving cached data",
			"network", network,
			"height", height,
			"error", err,
		)
		return p.snapshot(cache, models.EventHeartbeat, nil)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	var prev *models.BlockStats
	if newest, ok := cache.newest(); ok {
		prev = &newest
	}
	stats, err := deriveBlockStats(block, prev)
	if err != nil {
		p.log.Error("Malformed block payload, serving cached data",
			"network", network,
			"height", height,
			"error", err,
		)
		return p.snapshotLocked(cache, models.EventHeartbeat, nil)
	}
	cache.insert(stats)
	cache.lastFetch = time.Now()
	latestBlockHeight.WithLabelValues(network.String()).Set(float64(cache.lastHeight))
	cachedBlockCount.WithLabelValues(network.String()).Set(float64(cache.blocks.Size()))
	return p.snapshotLocked(cache, models.EventBlocks, []models.BlockStats{stats})
}

func (p *poller) snapshot(cache *networkCache, event string, fresh []models.BlockStats) models.Snapshot {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return p.snapshotLocked(cache, event, fresh)
}

// snapshotLocked builds a snapshot over the cached window. Caller holds cache.mu.
func (p *poller) snapshotLocked(cache *networkCache, event string, fresh []models.BlockStats) models.Snapshot {
	recent := cache.recentBlocks()
	window := recent
	if len(window) > metricsWindow {
		window = window[:metricsWindow]
	}
	if fresh == nil {
		fresh = []models.BlockStats{}
	}
	return models.Snapshot{
		Event:  event,
		Blocks: fresh,
		Stats: models.ChainStats{
			BlockHeight:  cache.lastHeight,
			TPS:          CalculateTPS(window),
			AvgBlockTime: CalculateAvgBlockTime(window),
			RecentBlocks: recent,
		},
	}
}
