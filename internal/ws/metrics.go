package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatty_ws_connections",
		Help: "Number of active WebSocket connections.",
	})
	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_ws_broadcasts_total",
		Help: "Total number of events broadcast to clients.",
	})
	droppedClientsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatty_ws_dropped_clients_total",
		Help: "Total number of clients dropped for not keeping up.",
	})
)
