package poller

import (
	"slices"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/lib/strnum"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/go-errors/errors"
)

// deriveBlockStats computes a block's summary record from the raw fullnode
// payload. prev is the newest cached block, or nil when the cache is empty.
func deriveBlockStats(block *fullnode.Block, prev *models.BlockStats) (models.BlockStats, error) {
	height, err := strnum.IntFromDecimal(block.BlockHeight)
	if err != nil {
		return models.BlockStats{}, errors.Errorf("malformed block height: %w", err)
	}
	micros, err := block.TimestampMicros()
	if err != nil {
		return models.BlockStats{}, errors.Errorf("malformed block timestamp: %w", err)
	}
	timestampMs := micros / 1000

	blockTimeMs := int64(defaultBlockTimeMs)
	if prev != nil {
		blockTimeMs = timestampMs - prev.TimestampMs
		if blockTimeMs < 1 {
			blockTimeMs = 1
		}
	}

	var gasUsed int64
	var gasPrices []int64
	var consensus *models.ConsensusInfo
	for _, tx := range block.Transactions {
		if used, err := strnum.IntFromDecimal(tx.GasUsed); err == nil {
			gasUsed += used
		}
		if tx.Type == fullnode.TxTypeUser && tx.GasUnitPrice != "" {
			if price, err := strnum.IntFromDecimal(tx.GasUnitPrice); err == nil {
				gasPrices = append(gasPrices, price)
			}
		}
		if tx.Type == fullnode.TxTypeBlockMetadata && consensus == nil {
			consensus = extractConsensus(tx)
		}
	}

	return models.BlockStats{
		Height:      height,
		TxCount:     len(block.Transactions),
		TimestampMs: timestampMs,
		BlockTimeMs: blockTimeMs,
		GasUsed:     gasUsed,
		GasStats:    gasStatsOf(gasPrices),
		Consensus:   consensus,
	}, nil
}

// gasStatsOf summarizes the gas unit price distribution, or nil when no user
// transaction carried a price. Median is the lower-middle element.
func gasStatsOf(prices []int64) *models.GasStats {
	if len(prices) == 0 {
		return nil
	}
	sorted := slices.Clone(prices)
	slices.Sort(sorted)
	return &models.GasStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: sorted[(len(sorted)-1)/2],
		Count:  len(sorted),
	}
}

func extractConsensus(tx fullnode.Transaction) *models.ConsensusInfo {
	// round and epoch default to zero when missing or malformed
	round, _ := strnum.IntFromDecimal(tx.Round)
	epoch, _ := strnum.IntFromDecimal(tx.Epoch)
	return &models.ConsensusInfo{
		Proposer:        tx.Proposer,
		Round:           round,
		Epoch:           epoch,
		VotesBitvec:     tx.PreviousBlockVotesBitvec,
		FailedProposers: tx.FailedProposerIndices,
	}
}
