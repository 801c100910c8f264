package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
)

// subscriberBuffer bounds how far one client may fall behind before it is
// dropped instead of stalling the hub.
const subscriberBuffer = 8

// hub owns the authoritative poll cycle for one network and fans each
// serialized snapshot out to every subscribed stream connection. One hub per
// network means exactly one poll cycle per interval regardless of how many
// clients are connected.
type hub struct {
	log      *slog.Logger
	network  models.NetworkName
	poller   BlockPoller
	interval time.Duration

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
	cancel      context.CancelFunc
}

func newHub(log *slog.Logger, network models.NetworkName, poller BlockPoller, interval time.Duration) *hub {
	return &hub{
		log:         log.With("module", "stream", "network", network),
		network:     network,
		poller:      poller,
		interval:    interval,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// subscribe registers a new stream client. The tick loop starts with the
// first subscriber and stops when the last one leaves.
func (h *hub) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.run(ctx)
	}
	h.mu.Unlock()
	return ch, func() { h.unsubscribe(ch) }
}

func (h *hub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	if len(h.subscribers) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

func (h *hub) run(ctx context.Context) {
	h.log.Debug("Stream hub started")
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Stream hub stopped")
			return
		case <-ticker.C:
			snapshot := h.poller.Poll(ctx, h.network)
			frame, err := json.Marshal(snapshot)
			if err != nil {
				h.log.Error("Failed to serialize snapshot", "error", err)
				continue
			}
			h.broadcast(frame)
		}
	}
}

// broadcast delivers one frame to every subscriber. A subscriber whose buffer
// is full is evicted so a stalled client never blocks the others.
func (h *hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- frame:
		default:
			delete(h.subscribers, ch)
			close(ch)
			droppedSubscribers.WithLabelValues(h.network.String()).Inc()
			h.log.Warn("Dropped slow stream subscriber")
		}
	}
}

func (s *Server) subscribe(network models.NetworkName) (<-chan []byte, func()) {
	s.mu.Lock()
	h, ok := s.hubs[network]
	if !ok {
		h = newHub(s.log, network, s.poller, s.cfg.PollInterval)
		s.hubs[network] = h
	}
	s.mu.Unlock()
	return h.subscribe()
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	network, ok := s.networkOf(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	frames, unsubscribe := s.subscribe(network)
	defer unsubscribe()
	streamClients.WithLabelValues(network.String()).Inc()
	defer streamClients.WithLabelValues(network.String()).Dec()
	s.log.Debug("Stream client connected", "network", network)

	// initial frame so the dashboard renders without waiting a full tick
	if initial, err := json.Marshal(s.poller.Poll(r.Context(), network)); err == nil {
		if err := writeFrame(w, flusher, initial); err != nil {
			return
		}
	}

	ceiling := time.NewTimer(s.cfg.StreamTTL)
	defer ceiling.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("Stream client disconnected", "network", network)
			return
		case <-ceiling.C:
			s.log.Debug("Stream reached lifetime ceiling, closing", "network", network)
			return
		case frame, open := <-frames:
			if !open {
				// evicted as a slow client
				return
			}
			if err := writeFrame(w, flusher, frame); err != nil {
				s.log.Debug("Stream write failed, closing", "network", network, "error", err)
				return
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, frame []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
