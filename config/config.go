package config

import (
	"strings"
	"time"

	"github.com/go-errors/errors"
	flags "github.com/jessevdk/go-flags"
)

type Upstreams struct {
	Mainnet string `long:"mainnet-upstreams" env:"APTOS_MAINNET_UPSTREAMS" description:"Comma-separated ordered list of mainnet fullnode base URLs"` // nolint:lll
	Testnet string `long:"testnet-upstreams" env:"APTOS_TESTNET_UPSTREAMS" description:"Comma-separated ordered list of testnet fullnode base URLs"` // nolint:lll
}

type APIKeys struct {
	Mainnet string `long:"mainnet-api-key" env:"APTOS_MAINNET_API_KEY" description:"API key sent to mainnet upstreams"`
	Testnet string `long:"testnet-api-key" env:"APTOS_TESTNET_API_KEY" description:"API key sent to testnet upstreams"`
}

type Config struct {
	Upstreams     Upstreams
	APIKeys       APIKeys
	ListenAddr    string        `long:"listen-addr" env:"LISTEN_ADDR" description:"Address the HTTP server binds to" default:":8080"`                          // nolint:lll
	PollInterval  time.Duration `long:"poll-interval" env:"POLL_INTERVAL" description:"Minimum interval between upstream polls" default:"500ms"`               // nolint:lll
	StreamTTL     time.Duration `long:"stream-ttl" env:"STREAM_TTL" description:"Hard ceiling on the lifetime of a single stream connection" default:"5m"`     // nolint:lll
	BackfillDepth int           `long:"backfill-depth" env:"BACKFILL_DEPTH" description:"Number of recent blocks fetched to seed an empty cache" default:"25"` // nolint:lll
}

func (c Config) HasError() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.StreamTTL <= 0 {
		return errors.New("stream TTL must be positive")
	}
	if c.BackfillDepth < 0 {
		return errors.New("backfill depth must be >= 0")
	}
	return nil
}

// SplitList parses a comma-separated upstream list, dropping empty entries.
// Order is significant: it is the failover try sequence.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, strings.TrimRight(trimmed, "/"))
		}
	}
	return out
}

func Parse() (*Config, error) {
	var config Config
	parser := flags.NewParser(&config, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}
	if err := config.HasError(); err != nil {
		return nil, err
	}
	return &config, nil
}
