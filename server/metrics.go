package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "winmux_clients_connected",
		Help: "Currently connected control clients.",
	})
	metricNotifyDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winmux_notifications_dropped_total",
		Help: "Notifications dropped by per-client overflow policy.",
	})
	metricResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "winmux_responses_total",
		Help: "Command responses by error code.",
	}, []string{"code"})
)
