package api

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one lobby tick",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.02, 0.05},
	})

	lobbyCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_lobby_count",
		Help: "Current number of lobbies",
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_player_count",
		Help: "Current number of players across all lobbies",
	})

	udpPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_packets_total",
		Help: "Inbound UDP packets accepted, by type",
	}, []string{"type"}) // Bounded: the eight inbound packet types

	udpRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udp_packets_rejected_total",
		Help: "Inbound UDP packets dropped before dispatch",
	}, []string{"reason"}) // Bounded: "rate_limit", "invalid"

	udpSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "udp_send_errors_total",
		Help: "Outbound UDP send failures",
	})

	commandsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_commands_dropped_total",
		Help: "Commands dropped because a lobby queue was full",
	})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_rejected_total",
		Help: "HTTP requests rejected by the rate limiter",
	}, []string{"reason"})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // MUST stay on localhost in production
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server with pprof,
// prometheus metrics and a health check. Binds to localhost only.
func StartDebugServer(cfg ObservabilityConfig, log *zap.Logger) {
	if !cfg.Enabled {
		log.Info("debug server disabled")
		return
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Info("debug server starting", zap.String("addr", cfg.ListenAddr))
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Warn("debug server error", zap.Error(err))
		}
	}()
}

// RecordTick records one lobby tick's duration.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateLobbyCount updates the lobby gauge.
func UpdateLobbyCount(count int) {
	lobbyCount.Set(float64(count))
}

// UpdatePlayerCount updates the player gauge.
func UpdatePlayerCount(count int) {
	playerCount.Set(float64(count))
}

// RecordUDPPacket counts one accepted inbound packet.
func RecordUDPPacket(packetType string) {
	udpPacketsTotal.WithLabelValues(packetType).Inc()
}

// RecordUDPRejected counts one packet dropped before dispatch.
// reason must be one of: "rate_limit", "invalid".
func RecordUDPRejected(reason string) {
	udpRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordUDPSendError counts one outbound send failure.
func RecordUDPSendError() {
	udpSendErrors.Inc()
}

// RecordCommandDropped counts one command lost to a full lobby queue.
func RecordCommandDropped() {
	commandsDropped.Inc()
}

// RecordRequest records HTTP request latency per route pattern.
func RecordRequest(method, endpoint string, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRequestRejected counts one rate-limited HTTP request.
func RecordRequestRejected(reason string) {
	requestRejected.WithLabelValues(reason).Inc()
}
