package gameserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gridgo_connections",
		Help: "Live websocket connections.",
	})

	intentsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridgo_intents_received_total",
		Help: "Intents accepted from clients and enqueued.",
	})
)
