package poller

import (
	"context"
	"sync"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/panjf2000/ants/v2"
)

const backfillConcurrency = 5

// backfill seeds an empty cache with the blocks preceding the tip so the
// dashboard has a history window from the first event. Runs once per network;
// any failure degrades to a smaller (or empty) window, never an error.
func (p *poller) backfill(ctx context.Context, network models.NetworkName, cache *networkCache, tip int64) {
	cache.mu.Lock()
	if cache.backfilled {
		cache.mu.Unlock()
		return
	}
	cache.backfilled = true
	cache.mu.Unlock()

	depth := int64(p.cfg.BackfillDepth)
	if depth > tip {
		depth = tip
	}
	if depth <= 0 {
		return
	}

	pool, err := ants.NewPool(backfillConcurrency)
	if err != nil {
		p.log.Error("Failed to create backfill pool", "error", err)
		return
	}
	defer pool.Release()

	t0 := time.Now()
	// the tip itself is fetched by the poll that triggered the backfill
	results := make([]*fullnode.Block, depth)
	var wg sync.WaitGroup
	for i := int64(0); i < depth; i++ {
		i := i
		height := tip - depth + i
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			block, err := p.node.BlockByHeight(ctx, network, height)
			if err != nil {
				p.log.Warn("Backfill block fetch failed, skipping",
					"network", network,
					"height", height,
					"error", err,
				)
				return
			}
			results[i] = block
		})
		if submitErr != nil {
			wg.Done()
		}
	}
	wg.Wait()

	cache.mu.Lock()
	defer cache.mu.Unlock()
	for _, block := range results {
		if block == nil {
			continue
		}
		stats, err := deriveBlockStats(block, nil)
		if err != nil {
			p.log.Warn("Malformed backfill block, skipping", "network", network, "error", err)
			continue
		}
		cache.insert(stats)
	}
	cache.recomputeBlockTimes()
	cachedBlockCount.WithLabelValues(network.String()).Set(float64(cache.blocks.Size()))
	p.log.Info("Backfilled recent blocks",
		"network", network,
		"count", cache.blocks.Size(),
		"elapsed", time.Since(t0),
	)
}
