package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/client/fullnode"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/config"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/models"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/poller"
	"github.com/SeamMoney/aptos-consensus-visualizer-sub002/server"
	"github.com/go-errors/errors"
	"golang.org/x/sync/errgroup"
)

func init() {
	// always use UTC
	time.Local = time.UTC
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := config.Parse()
	if err != nil {
		// go-flags already printed the problem
		os.Exit(1)
	}

	node := fullnode.NewClient(logger, fullnode.Config{
		Upstreams: map[models.NetworkName][]string{
			models.Mainnet: config.SplitList(cfg.Upstreams.Mainnet),
			models.Testnet: config.SplitList(cfg.Upstreams.Testnet),
		},
		APIKeys: map[models.NetworkName]string{
			models.Mainnet: cfg.APIKeys.Mainnet,
			models.Testnet: cfg.APIKeys.Testnet,
		},
	})

	blockPoller := poller.New(logger, node, poller.Config{
		PollInterval:  cfg.PollInterval,
		BackfillDepth: cfg.BackfillDepth,
	})

	srv := server.New(logger, node, blockPoller, server.Config{
		PollInterval: cfg.PollInterval,
		StreamTTL:    cfg.StreamTTL,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := context.WithCancel(context.Background())
	errGroup, ctx := errgroup.WithContext(ctx)

	errGroup.Go(func() error {
		logger.Info("Starting HTTP server", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	errGroup.Go(func() error {
		quit := make(chan os.Signal, 1)
		// handle Interrupt (ctrl-c) Term, used by `kill` et al, HUP which is commonly used to reload configs
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		select {
		case s := <-quit:
			logger.Warn("Caught UNIX signal", "signal", s.String())
		case <-ctx.Done():
		}
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := errGroup.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
