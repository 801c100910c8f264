package poller

import "github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"

// CalculateTPS returns transactions per second over a window of block
// summaries: total transactions divided by total block time.
func CalculateTPS(window []models.BlockStats) float64 {
	var txCount, totalMs int64
	for _, block := range window {
		txCount += int64(block.TxCount)
		totalMs += block.BlockTimeMs
	}
	if totalMs == 0 {
		return 0
	}
	return float64(txCount) / float64(totalMs) * 1000
}

// CalculateAvgBlockTime returns the arithmetic mean block time in
// milliseconds, or 0 on an empty window.
func CalculateAvgBlockTime(window []models.BlockStats) float64 {
	if len(window) == 0 {
		return 0
	}
	var totalMs int64
	for _, block := range window {
		totalMs += block.BlockTimeMs
	}
	return float64(totalMs) / float64(len(window))
}
