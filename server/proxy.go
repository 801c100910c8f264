package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/lib/strnum"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/gorilla/mux"
)

const (
	validatorSetPath = "/accounts/0x1/resource/0x1::stake::ValidatorSet"
	validatorTTL     = 60 * time.Second
)

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkOf(w, r)
	if !ok {
		return
	}
	resp, err := s.node.Route(r.Context(), network, "", nil)
	if err != nil {
		// context canceled or request build failure; the client is gone
		// or at fault either way
		return
	}
	writeUpstream(w, resp)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkOf(w, r)
	if !ok {
		return
	}
	height, err := strnum.IntFromDecimal(mux.Vars(r)["height"])
	if err != nil {
		http.Error(w, "invalid block height", http.StatusBadRequest)
		return
	}
	path := fmt.Sprintf("/blocks/by_height/%d?with_transactions=true", height)
	resp, err := s.node.Route(r.Context(), network, path, nil)
	if err != nil {
		return
	}
	writeUpstream(w, resp)
}

// validatorCache holds the last validator-set payload per network for a short
// window. The validator set changes on epoch boundaries (hours apart), so a
// 60 second window removes nearly all upstream load.
type validatorCache struct {
	mu      sync.Mutex
	entries map[models.NetworkName]validatorEntry
}

type validatorEntry struct {
	fetchedAt time.Time
	resp      *fullnode.Response
}

func newValidatorCache() validatorCache {
	return validatorCache{entries: make(map[models.NetworkName]validatorEntry)}
}

func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkOf(w, r)
	if !ok {
		return
	}

	s.validators.mu.Lock()
	entry, cached := s.validators.entries[network]
	s.validators.mu.Unlock()
	if cached && time.Since(entry.fetchedAt) < validatorTTL {
		writeUpstream(w, entry.resp)
		return
	}

	resp, err := s.node.Route(r.Context(), network, validatorSetPath, nil)
	if err != nil {
		return
	}
	if resp.Success() {
		s.validators.mu.Lock()
		s.validators.entries[network] = validatorEntry{fetchedAt: time.Now(), resp: resp}
		s.validators.mu.Unlock()
	}
	writeUpstream(w, resp)
}

// writeUpstream mirrors an upstream (or synthesized) response to the caller,
// preserving the status code and the headers that matter downstream.
func writeUpstream(w http.ResponseWriter, resp *fullnode.Response) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		w.Header().Set("Retry-After", retryAfter)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
