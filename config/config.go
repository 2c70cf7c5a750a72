// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Daemon configuration loaded from WINMUX_-prefixed environment
// variables.

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Socket    string `envconfig:"SOCKET" default:"/tmp/winmux.sock"`
	Gateway   GatewayConfig
	Screen    ScreenConfig
	Reconcile ReconcileConfig
	Notify    NotifyConfig
	Snapshot  SnapshotConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

// GatewayConfig points at the window manager's IPC socket.
type GatewayConfig struct {
	Socket string `envconfig:"GATEWAY_SOCKET" default:"/tmp/wm-ipc.sock"`
	// DryRun swaps the real gateway for an in-memory fake; commands run
	// end to end without touching any window.
	DryRun bool `envconfig:"GATEWAY_DRY_RUN" default:"false"`
}

// ScreenConfig is the rectangle workspaces tile.
type ScreenConfig struct {
	Width  int `envconfig:"SCREEN_WIDTH" default:"1920"`
	Height int `envconfig:"SCREEN_HEIGHT" default:"1080"`
}

// ReconcileConfig tunes the event-stream reconciler.
type ReconcileConfig struct {
	AdoptUntracked         bool          `envconfig:"ADOPT_UNTRACKED" default:"false"`
	RelayoutOnExternalMove bool          `envconfig:"RELAYOUT_ON_EXTERNAL_MOVE" default:"false"`
	AdoptionTimeout        time.Duration `envconfig:"ADOPTION_TIMEOUT" default:"5s"`
	BackoffBase            time.Duration `envconfig:"BACKOFF_BASE" default:"500ms"`
	BackoffMax             time.Duration `envconfig:"BACKOFF_MAX" default:"30s"`
	PersistentSessions     bool          `envconfig:"PERSISTENT_SESSIONS" default:"false"`
}

// NotifyConfig bounds per-client notification queues.
type NotifyConfig struct {
	QueueSize int `envconfig:"NOTIFY_QUEUE_SIZE" default:"128"`
}

// SnapshotConfig controls periodic persistence.
type SnapshotConfig struct {
	Path     string        `envconfig:"SNAPSHOT_PATH" default:"~/.local/share/winmux/winmux.db"`
	Interval time.Duration `envconfig:"SNAPSHOT_INTERVAL" default:"30s"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load reads configuration from WINMUX_-prefixed environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("WINMUX", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads from the environment, falling back to defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Socket:  "/tmp/winmux.sock",
		Gateway: GatewayConfig{Socket: "/tmp/wm-ipc.sock"},
		Screen:  ScreenConfig{Width: 1920, Height: 1080},
		Reconcile: ReconcileConfig{
			AdoptionTimeout: 5 * time.Second,
			BackoffBase:     500 * time.Millisecond,
			BackoffMax:      30 * time.Second,
		},
		Notify: NotifyConfig{QueueSize: 128},
		Snapshot: SnapshotConfig{
			Path:     "~/.local/share/winmux/winmux.db",
			Interval: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}
