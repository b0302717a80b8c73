package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-guildwatch/internal/logging"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildwatch_events_ingested_total",
		Help: "Normalized events consumed by the engine, by kind.",
	}, []string{"kind"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guildwatch_events_dropped_total",
		Help: "Events dropped because the ingest ring buffer was full.",
	})

	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildwatch_alerts_raised_total",
		Help: "Alerts raised, by type and severity.",
	}, []string{"type", "severity"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guildwatch_alerts_suppressed_total",
		Help: "Alerts suppressed by the per-subject cooldown, by type.",
	}, []string{"type"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guildwatch_sweep_duration_seconds",
		Help:    "Duration of one periodic full-sweep across tracked guilds.",
		Buckets: prometheus.DefBuckets,
	})

	SweepGuildFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guildwatch_sweep_guild_failures_total",
		Help: "Per-guild sweep evaluations that panicked and were isolated.",
	})

	TrackedGuilds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guildwatch_tracked_guilds",
		Help: "Guilds currently tracked by the engine.",
	})

	HostCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guildwatch_host_cpu_percent",
		Help: "Host CPU utilization sampled by the watchdog.",
	})

	HostMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guildwatch_host_memory_percent",
		Help: "Host memory utilization sampled by the watchdog.",
	})
)

// Serve exposes /metrics on addr. Errors only get logged; metrics are an
// ambient concern and never take the process down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("metrics: listener failed: %v", err)
		}
	}()

	return srv
}
