package models

// BlockStats is a derived summary of one block, computed once when the block
// is first observed and immutable afterwards.
type BlockStats struct {
	Height      int64 `json:"height"`
	TxCount     int   `json:"txCount"`
	TimestampMs int64 `json:"timestamp"`
	// BlockTimeMs is the time since the previously observed block, floored at 1ms.
	BlockTimeMs int64          `json:"blockTimeMs"`
	GasUsed     int64          `json:"gasUsed"`
	GasStats    *GasStats      `json:"gasStats,omitempty"`
	Consensus   *ConsensusInfo `json:"consensus,omitempty"`
}

// GasStats is the gas unit price distribution over the user transactions of a
// single block. Absent when no user transaction carried a gas price.
type GasStats struct {
	Min    int64 `json:"min"`
	Max    int64 `json:"max"`
	Median int64 `json:"median"`
	Count  int   `json:"count"`
}

// ConsensusInfo is extracted from a block's metadata transaction, if present.
type ConsensusInfo struct {
	Proposer        string  `json:"proposer,omitempty"`
	Round           int64   `json:"round,omitempty"`
	Epoch           int64   `json:"epoch,omitempty"`
	VotesBitvec     []uint8 `json:"votesBitvec,omitempty"`
	FailedProposers []int64 `json:"failedProposers,omitempty"`
}
