// Package metrics exposes the server's Prometheus instrumentation. It is
// optional: App.Run only starts the HTTP listener when
// TESTSERVER_METRICS_ADDR is set, but the counters and gauges below are
// always registered and updated regardless, so enabling metrics later
// needs no code change.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "testserver_connections_total",
		Help: "total TCP connections accepted",
	})
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "testserver_connections_active",
		Help: "TCP connections currently open",
	})
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testserver_commands_total",
		Help: "commands processed, by verb and result",
	}, []string{"command", "result"})
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "testserver_command_duration_seconds",
		Help:    "time to process one command under the global lock",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "testserver_rooms_active",
		Help: "rooms currently registered in memory",
	})
	ParticipantsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "testserver_participants_active",
		Help: "participants with an in-progress (unsubmitted) attempt",
	})

	TimerSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "testserver_timer_sweep_duration_seconds",
		Help:    "time to scan all rooms/participants in one timer tick",
		Buckets: prometheus.DefBuckets,
	})
	TimerAutoSubmitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "testserver_timer_auto_submits_total",
		Help: "participants auto-submitted by the timer due to expiry",
	})
)

// Serve starts the /metrics HTTP listener and blocks until ctx is
// cancelled, at which point it shuts the listener down gracefully.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
