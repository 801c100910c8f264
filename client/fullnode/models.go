package fullnode

import (
	"net/http"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/lib/strnum"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
)

type Config struct {
	// Ordered per-network failover lists. An empty list falls back to the
	// public default endpoint for that network.
	Upstreams map[models.NetworkName][]string
	// Optional per-network API keys, sent as a bearer token.
	APIKeys map[models.NetworkName]string
}

var defaultUpstreams = map[models.NetworkName]string{
	models.Mainnet: "https://fullnode.mainnet.aptoslabs.com/v1",
	models.Testnet: "https://fullnode.testnet.aptoslabs.com/v1",
}

func (c Config) endpoints(network models.NetworkName) []string {
	if list := c.Upstreams[network]; len(list) > 0 {
		return list
	}
	return []string{defaultUpstreams[network]}
}

// Response is what Route always hands back, including the synthesized failure
// cases, so callers never deal with transport errors directly.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type LedgerInfo struct {
	ChainID         int    `json:"chain_id"`
	Epoch           string `json:"epoch"`
	LedgerVersion   string `json:"ledger_version"`
	LedgerTimestamp string `json:"ledger_timestamp"`
	BlockHeight     string `json:"block_height"`
}

func (l LedgerInfo) Height() (int64, error) {
	return strnum.IntFromDecimal(l.BlockHeight)
}

type Block struct {
	BlockHeight    string        `json:"block_height"`
	BlockHash      string        `json:"block_hash"`
	BlockTimestamp string        `json:"block_timestamp"` // microseconds since epoch
	FirstVersion   string        `json:"first_version"`
	LastVersion    string        `json:"last_version"`
	Transactions   []Transaction `json:"transactions"`
}

func (b Block) TimestampMicros() (int64, error) {
	return strnum.IntFromDecimal(b.BlockTimestamp)
}

const (
	TxTypeUser          = "user_transaction"
	TxTypeBlockMetadata = "block_metadata_transaction"
)

// Transaction is the union of the fields we read off the transaction variants.
// u64 fields arrive as strings, u32 and u8 fields as numbers.
type Transaction struct {
	Type         string `json:"type"`
	GasUsed      string `json:"gas_used"`
	GasUnitPrice string `json:"gas_unit_price"`

	// block_metadata_transaction only
	Proposer                 string  `json:"proposer"`
	Round                    string  `json:"round"`
	Epoch                    string  `json:"epoch"`
	PreviousBlockVotesBitvec []uint8 `json:"previous_block_votes_bitvec"`
	FailedProposerIndices    []int64 `json:"failed_proposer_indices"`
}

type errorBody struct {
	Message string `json:"message"`
}
