// Copyright © 2026 Winmux contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: mux/metrics.go
// Summary: Prometheus counters for the engine and reconciler.

package mux

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricGatewayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winmux_gateway_events_total",
		Help: "Window manager events processed, by kind.",
	}, []string{"kind"})

	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmux_gateway_reconnects_total",
		Help: "Successful gateway reconnections after a stream loss.",
	})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winmux_commands_total",
		Help: "Commands executed on the engine loop, by verb.",
	}, []string{"verb"})

	metricAdoptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmux_adoptions_total",
		Help: "Windows adopted into panes (pending binds and policy adoptions).",
	})

	metricAdoptionTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmux_adoption_timeouts_total",
		Help: "Pending pane binds that expired before a window appeared.",
	})

	metricExternalMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmux_external_moves_total",
		Help: "Moves/resizes observed that did not originate from winmux.",
	})

	metricApplyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmux_gateway_apply_errors_total",
		Help: "Failed geometry/focus commands sent to the window manager.",
	})
)
