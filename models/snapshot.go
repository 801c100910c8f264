package models

const (
	EventBlocks    = "blocks"
	EventHeartbeat = "heartbeat"
)

// ChainStats are the derived metrics served alongside every stream event.
type ChainStats struct {
	BlockHeight  int64        `json:"blockHeight"`
	TPS          float64      `json:"tps"`
	AvgBlockTime float64      `json:"avgBlockTime"`
	RecentBlocks []BlockStats `json:"recentBlocks"`
}

// Snapshot is the result of a single poll: the blocks that are new since the
// previous poll (usually zero or one) plus fresh metrics over the cached window.
type Snapshot struct {
	Event  string       `json:"type"`
	Blocks []BlockStats `json:"blocks"`
	Stats  ChainStats   `json:"stats"`
}
