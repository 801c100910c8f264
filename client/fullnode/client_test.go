package fullnode_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	// Swap these to see logs
	// return slog.New(slog.NewTextHandler(os.Stderr, nil))
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(upstreams []string, apiKey string) fullnode.Client {
	cfg := fullnode.Config{
		Upstreams: map[models.NetworkName][]string{models.Mainnet: upstreams},
	}
	if apiKey != "" {
		cfg.APIKeys = map[models.NetworkName]string{models.Mainnet: apiKey}
	}
	return fullnode.NewClient(testLogger(), cfg)
}

func countingServer(t *testing.T, calls *int64, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouteFirstSuccessWins(t *testing.T) {
	var calls1, calls2, calls3 int64
	ok := countingServer(t, &calls1, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"from":"first"}`))
	})
	second := countingServer(t, &calls2, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"from":"second"}`))
	})
	third := countingServer(t, &calls3, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"from":"third"}`))
	})

	client := newTestClient([]string{ok.URL, second.URL, third.URL}, "")
	resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"from":"first"}`, string(resp.Body))
	require.EqualValues(t, 1, atomic.LoadInt64(&calls1))
	require.EqualValues(t, 0, atomic.LoadInt64(&calls2))
	require.EqualValues(t, 0, atomic.LoadInt64(&calls3))
}

// The rate-limit witness from a mid-sequence 429 must be discarded once a
// later endpoint succeeds.
func TestRouteFailsOverPast500And429(t *testing.T) {
	var calls1, calls2, calls3 int64
	failing := countingServer(t, &calls1, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	limited := countingServer(t, &calls2, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	ok := countingServer(t, &calls3, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"from":"third"}`))
	})

	client := newTestClient([]string{failing.URL, limited.URL, ok.URL}, "")
	for i := 0; i < 3; i++ {
		resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.JSONEq(t, `{"from":"third"}`, string(resp.Body))
		require.Empty(t, resp.Header.Get("Retry-After"))
	}
	// no health memory: every call restarts the failover sequence
	require.EqualValues(t, 3, atomic.LoadInt64(&calls1))
	require.EqualValues(t, 3, atomic.LoadInt64(&calls2))
	require.EqualValues(t, 3, atomic.LoadInt64(&calls3))
}

func TestRouteAllRateLimitedLastRetryAfterWins(t *testing.T) {
	var calls int64
	first := countingServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	second := countingServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient([]string{first.URL, second.URL}, "")
	resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	// last witness wins, not the maximum
	require.Equal(t, "20", resp.Header.Get("Retry-After"))
}

func TestRouteAllRateLimitedWithoutRetryAfterDefaults(t *testing.T) {
	var calls int64
	limited := countingServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient([]string{limited.URL}, "")
	resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "30", resp.Header.Get("Retry-After"))
}

func TestRouteAllFailedSynthesizes502(t *testing.T) {
	var calls1, calls2 int64
	first := countingServer(t, &calls1, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	second := countingServer(t, &calls2, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newTestClient([]string{first.URL, second.URL}, "")
	resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	// message derives from the last failure
	require.Contains(t, string(resp.Body), "503")
}

func TestRouteTransportErrorSynthesizes502(t *testing.T) {
	var calls int64
	dead := countingServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {})
	dead.Close()

	client := newTestClient([]string{dead.URL}, "")
	resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.NotEmpty(t, resp.Body)
}

func TestRouteAttachesAPIKey(t *testing.T) {
	var calls int64
	upstream := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sekret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	})

	client := newTestClient([]string{upstream.URL}, "sekret")
	resp, err := client.Route(context.Background(), models.Mainnet, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouteMergesCallerHeaders(t *testing.T) {
	var calls int64
	upstream := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{}`))
	})

	client := newTestClient([]string{upstream.URL}, "")
	header := http.Header{}
	header.Set("Accept", "application/json")
	resp, err := client.Route(context.Background(), models.Mainnet, "", header)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLedgerInfo(t *testing.T) {
	var calls int64
	upstream := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/", r.URL.Path)
		_, _ = w.Write([]byte(`{"chain_id":1,"epoch":"100","ledger_version":"999","block_height":"123"}`))
	})

	client := newTestClient([]string{upstream.URL}, "")
	info, err := client.LedgerInfo(context.Background(), models.Mainnet)
	require.NoError(t, err)
	height, err := info.Height()
	require.NoError(t, err)
	require.EqualValues(t, 123, height)
	require.Equal(t, 1, info.ChainID)
}

func TestBlockByHeight(t *testing.T) {
	var calls int64
	upstream := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blocks/by_height/5", r.URL.Path)
		require.Equal(t, "true", r.URL.Query().Get("with_transactions"))
		_, _ = w.Write([]byte(`{
			"block_height": "5",
			"block_timestamp": "1700000000000000",
			"transactions": [
				{"type": "user_transaction", "gas_used": "7", "gas_unit_price": "100"}
			]
		}`))
	})

	client := newTestClient([]string{upstream.URL}, "")
	block, err := client.BlockByHeight(context.Background(), models.Mainnet, 5)
	require.NoError(t, err)
	micros, err := block.TimestampMicros()
	require.NoError(t, err)
	require.EqualValues(t, 1700000000000000, micros)
	require.Len(t, block.Transactions, 1)
	require.Equal(t, fullnode.TxTypeUser, block.Transactions[0].Type)
}

func TestLedgerInfoUpstreamFailure(t *testing.T) {
	var calls int64
	failing := countingServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClient([]string{failing.URL}, "")
	_, err := client.LedgerInfo(context.Background(), models.Mainnet)
	require.ErrorContains(t, err, "502")
}
