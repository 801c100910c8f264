package poller

import (
	"sync"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

const maxRecentBlocks = 50

// networkCache holds the recent-block window for one network. The poller keys
// a map of these by network so concurrent mainnet and testnet clients never
// thrash each other's state.
type networkCache struct {
	mu sync.Mutex
	// height (int64) -> models.BlockStats, ordered newest first.
	// The treemap makes de-duplication and descending order structural.
	blocks     *treemap.Map
	lastHeight int64
	lastFetch  time.Time
	backfilled bool
}

func newNetworkCache() *networkCache {
	return &networkCache{blocks: treemap.NewWith(byHeightDescending)}
}

func byHeightDescending(a, b interface{}) int {
	return -utils.Int64Comparator(a, b)
}

// insert adds a block and evicts the oldest entries past the cap.
// Caller holds mu.
func (c *networkCache) insert(block models.BlockStats) {
	c.blocks.Put(block.Height, block)
	for c.blocks.Size() > maxRecentBlocks {
		// descending comparator: Max is the lowest height
		oldest, _ := c.blocks.Max()
		c.blocks.Remove(oldest)
	}
	if block.Height > c.lastHeight {
		c.lastHeight = block.Height
	}
}

// recentBlocks returns the cached window, newest first. Caller holds mu.
// The returned slice is freshly allocated, so readers never observe a
// partially mutated buffer.
func (c *networkCache) recentBlocks() []models.BlockStats {
	out := make([]models.BlockStats, 0, c.blocks.Size())
	for _, value := range c.blocks.Values() {
		out = append(out, value.(models.BlockStats))
	}
	return out
}

// newest returns the highest cached block. Caller holds mu.
func (c *networkCache) newest() (models.BlockStats, bool) {
	_, value := c.blocks.Min()
	if value == nil {
		return models.BlockStats{}, false
	}
	return value.(models.BlockStats), true
}

// recomputeBlockTimes rederives inter-block times from cached neighbors.
// Backfill inserts blocks out of order, so their block times can only be
// computed once the whole window has landed. The oldest block keeps its
// default. Caller holds mu.
func (c *networkCache) recomputeBlockTimes() {
	blocks := c.recentBlocks()
	for i := 0; i < len(blocks)-1; i++ {
		blockTime := blocks[i].TimestampMs - blocks[i+1].TimestampMs
		if blockTime < 1 {
			blockTime = 1
		}
		blocks[i].BlockTimeMs = blockTime
		c.blocks.Put(blocks[i].Height, blocks[i])
	}
}
