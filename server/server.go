package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// BlockPoller is the one dependency the stream surface needs from the poller
// package.
type BlockPoller interface {
	Poll(ctx context.Context, network models.NetworkName) models.Snapshot
}

type Config struct {
	// PollInterval is the hub tick interval, matching the poller's rate gate.
	PollInterval time.Duration
	// StreamTTL is the hard ceiling on one stream connection's lifetime.
	StreamTTL time.Duration
}

type Server struct {
	log    *slog.Logger
	node   fullnode.Client
	poller BlockPoller
	cfg    Config

	mu   sync.Mutex
	hubs map[models.NetworkName]*hub

	validators validatorCache
}

func New(log *slog.Logger, node fullnode.Client, poller BlockPoller, cfg Config) *Server {
	return &Server{
		log:        log.With("module", "server"),
		node:       node,
		poller:     poller,
		cfg:        cfg,
		hubs:       make(map[models.NetworkName]*hub),
		validators: newValidatorCache(),
	}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)
	// SSE cannot be wrapped: gzhttp buffers, which breaks event delivery
	api.Handle("/ledger", gzhttp.GzipHandler(http.HandlerFunc(s.handleLedger))).Methods(http.MethodGet)
	api.Handle("/block/{height:[0-9]+}", gzhttp.GzipHandler(http.HandlerFunc(s.handleBlock))).Methods(http.MethodGet)
	api.Handle("/validators", gzhttp.GzipHandler(http.HandlerFunc(s.handleValidators))).Methods(http.MethodGet)

	return cors.Default().Handler(router)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// networkOf resolves the request's network query param, writing a 400 and
// returning false on unknown values.
func (s *Server) networkOf(w http.ResponseWriter, r *http.Request) (models.NetworkName, bool) {
	network, err := models.ParseNetwork(r.URL.Query().Get("network"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return network, true
}
