package fullnode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/go-errors/errors"
	"github.com/hashicorp/go-retryablehttp"
)

type Client interface {
	// Route tries the network's upstream endpoints in order and returns the
	// first successful response, or a synthesized 429/502 when all fail.
	Route(ctx context.Context, network models.NetworkName, path string, header http.Header) (*Response, error)

	LedgerInfo(ctx context.Context, network models.NetworkName) (*LedgerInfo, error)
	BlockByHeight(ctx context.Context, network models.NetworkName, height int64) (*Block, error)
}

const (
	// Transport-level retries per endpoint. Failover across endpoints is
	// Route's job, so HTTP statuses never retry here.
	MaxTransportRetries   = 1
	DefaultRequestTimeout = 30 * time.Second
)

type client struct {
	client *retryablehttp.Client
	cfg    Config
	log    *slog.Logger
}

var _ Client = &client{}

func NewClient(log *slog.Logger, cfg Config) *client { // revive:disable-line:unexported-return
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = MaxTransportRetries
	httpClient.Logger = log
	checkRetry := func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil {
			// any HTTP status, including 429 and 5xx, is handled by the
			// failover loop rather than retried against the same endpoint
			return false, nil
		}
		yes, err2 := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		if yes {
			log.Warn("Retrying request to fullnode", "error", err2)
		}
		return yes, err2
	}
	httpClient.CheckRetry = checkRetry
	httpClient.Backoff = retryablehttp.LinearJitterBackoff
	httpClient.HTTPClient.Timeout = DefaultRequestTimeout

	return &client{
		client: httpClient,
		cfg:    cfg,
		log:    log.With("module", "fullnode"),
	}
}

func (c *client) Route(
	ctx context.Context, network models.NetworkName, path string, header http.Header,
) (*Response, error) {
	var rateLimited bool
	var retryAfter string
	var lastErr string

	for _, endpoint := range c.cfg.endpoints(network) {
		t0 := time.Now()
		resp, err := c.tryEndpoint(ctx, endpoint+path, network, header)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			observeUpstreamRequestErr(network.String(), err, t0)
			lastErr = err.Error()
			c.log.Warn("Upstream request failed, trying next",
				"endpoint", endpoint,
				"network", network,
				"error", err,
			)
			continue
		}
		observeUpstreamRequestCode(network.String(), resp.StatusCode, t0)
		if resp.StatusCode == http.StatusTooManyRequests {
			// last witness wins, deliberately: see the Retry-After note in DESIGN.md
			rateLimited = true
			retryAfter = resp.Header.Get("Retry-After")
			c.log.Warn("Upstream rate limited, trying next",
				"endpoint", endpoint,
				"network", network,
				"retryAfter", retryAfter,
			)
			continue
		}
		if !resp.Success() {
			lastErr = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
			c.log.Warn("Upstream returned error status, trying next",
				"endpoint", endpoint,
				"network", network,
				"statusCode", resp.StatusCode,
			)
			continue
		}
		return resp, nil
	}

	upstreamsExhausted.WithLabelValues(network.String()).Inc()
	if rateLimited {
		if retryAfter == "" {
			retryAfter = "30"
		}
		return synthesize(http.StatusTooManyRequests, "rate limited by upstream", retryAfter), nil
	}
	if lastErr == "" {
		lastErr = "upstream unavailable"
	}
	return synthesize(http.StatusBadGateway, lastErr, ""), nil
}

func (c *client) tryEndpoint(
	ctx context.Context, url string, network models.NetworkName, header http.Header,
) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Errorf("failed to build request for '%s': %w", url, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if key := c.cfg.APIKeys[network]; key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Errorf("failed to read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func synthesize(status int, message string, retryAfter string) *Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if retryAfter != "" {
		header.Set("Retry-After", retryAfter)
	}
	body, _ := json.Marshal(errorBody{Message: message})
	return &Response{StatusCode: status, Header: header, Body: body}
}

func (c *client) LedgerInfo(ctx context.Context, network models.NetworkName) (*LedgerInfo, error) {
	resp, err := c.Route(ctx, network, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, errors.Errorf("ledger info request failed with status %d", resp.StatusCode)
	}
	var info LedgerInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, errors.Errorf("failed to decode ledger info: %w", err)
	}
	return &info, nil
}

func (c *client) BlockByHeight(
	ctx context.Context, network models.NetworkName, height int64,
) (*Block, error) {
	path := fmt.Sprintf("/blocks/by_height/%d?with_transactions=true", height)
	resp, err := c.Route(ctx, network, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return nil, errors.Errorf("block %d request failed with status %d", height, resp.StatusCode)
	}
	var block Block
	if err := json.Unmarshal(resp.Body, &block); err != nil {
		return nil, errors.Errorf("failed to decode block %d: %w", height, err)
	}
	return &block, nil
}
