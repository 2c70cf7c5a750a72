// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/winmuxd/main.go
// Summary: The winmux daemon: restores persisted sessions, reconciles
// against the window manager event stream, and serves the control socket.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/framegrace/winmux/config"
	"github.com/framegrace/winmux/layout"
	"github.com/framegrace/winmux/logging"
	"github.com/framegrace/winmux/mux"
	"github.com/framegrace/winmux/persist"
	"github.com/framegrace/winmux/server"
	"github.com/framegrace/winmux/wm"
)

var (
	flagSocket  string
	flagGateway string
	flagDryRun  bool
)

var rootCmd = &cobra.Command{
	Use:           "winmuxd",
	Short:         "Session daemon layering tmux-style workflow over a window manager",
	RunE:          runDaemon,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagSocket, "socket", "", "control socket path (overrides WINMUX_SOCKET)")
	rootCmd.Flags().StringVar(&flagGateway, "gateway", "", "window manager IPC socket (overrides WINMUX_GATEWAY_SOCKET)")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "use an in-memory gateway instead of a real window manager")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagSocket != "" {
		cfg.Socket = flagSocket
	}
	if flagGateway != "" {
		cfg.Gateway.Socket = flagGateway
	}
	if flagDryRun {
		cfg.Gateway.DryRun = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := persist.Open(cfg.SnapshotPath())
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Load()
	if err != nil {
		return err
	}

	var gw wm.Gateway
	if cfg.Gateway.DryRun {
		logger.Info("dry-run gateway enabled")
		gw = wm.NewFake()
	} else {
		gw = wm.NewClient(cfg.Gateway.Socket, logger)
	}
	defer gw.Close()

	// Persisted panes rebind against the live window set before the
	// engine starts; anything unmatched waits as an unbound descriptor.
	live, err := gw.List(ctx)
	if err != nil {
		logger.Warn("window list unavailable at startup, restoring unbound", zap.Error(err))
		live = nil
	}
	graph, err := mux.Restore(snap, live)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	hub := server.NewHub(cfg.Notify.QueueSize, logger)
	engine := mux.NewEngine(graph, gw, mux.Options{
		Screen:                 layout.Rect{W: cfg.Screen.Width, H: cfg.Screen.Height},
		AdoptUntracked:         cfg.Reconcile.AdoptUntracked,
		RelayoutOnExternalMove: cfg.Reconcile.RelayoutOnExternalMove,
		AdoptionTimeout:        cfg.Reconcile.AdoptionTimeout,
		BackoffBase:            cfg.Reconcile.BackoffBase,
		BackoffMax:             cfg.Reconcile.BackoffMax,
		PersistentSessions:     cfg.Reconcile.PersistentSessions,
	}, hub, logger)

	// The engine outlives the signal context so the shutdown snapshot
	// can still be captured from the loop.
	engCtx, engCancel := context.WithCancel(context.Background())
	defer engCancel()
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(engCtx) }()

	srv := server.NewServer(cfg.Socket, engine, hub, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	go snapshotLoop(ctx, engine, store, cfg.Snapshot.Interval, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	saveFinalSnapshot(engine, store, logger)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Warn("server stop", zap.Error(err))
	}
	engCancel()
	<-engineDone
	return nil
}

// snapshotLoop persists the graph at the configured interval.
func snapshotLoop(ctx context.Context, engine *mux.Engine, store *persist.Store, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := engine.CaptureSnapshot(ctx)
			if err != nil {
				continue
			}
			if err := store.Save(snap); err != nil {
				logger.Warn("periodic snapshot failed", zap.Error(err))
			}
		}
	}
}

func saveFinalSnapshot(engine *mux.Engine, store *persist.Store, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	snap, err := engine.CaptureSnapshot(ctx)
	if err != nil {
		logger.Warn("final snapshot capture failed", zap.Error(err))
		return
	}
	if err := store.Save(snap); err != nil {
		logger.Warn("final snapshot save failed", zap.Error(err))
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}
