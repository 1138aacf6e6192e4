package restore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves Prometheus metrics for a long-running restore.
type MetricsServer struct {
	stats    *Stats
	port     int
	server   *http.Server
	registry *prometheus.Registry

	credentialsCreated prometheus.Counter
	workflowsCreated   prometheus.Counter
	resourcesSkipped   prometheus.Counter
	resourcesFailed    prometheus.Counter
	resourcesRolled    prometheus.Counter
	nodesRemaining     prometheus.Gauge
	uptimeSeconds      prometheus.Gauge
}

// NewMetricsServer creates a metrics server on the given port, labelled with
// the migration's source and target.
func NewMetricsServer(stats *Stats, port int, source, target string) *MetricsServer {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"source": source, "target": target}

	m := &MetricsServer{
		stats:    stats,
		port:     port,
		registry: reg,
		credentialsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "flowctl_restore_credentials_created_total",
			Help:        "Total number of credentials created on the target",
			ConstLabels: labels,
		}),
		workflowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "flowctl_restore_workflows_created_total",
			Help:        "Total number of workflows created on the target",
			ConstLabels: labels,
		}),
		resourcesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "flowctl_restore_skipped_total",
			Help:        "Total number of resources skipped as already mapped",
			ConstLabels: labels,
		}),
		resourcesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "flowctl_restore_failed_total",
			Help:        "Total number of resources that failed to restore",
			ConstLabels: labels,
		}),
		resourcesRolled: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "flowctl_restore_rolled_back_total",
			Help:        "Total number of compensating deletions performed",
			ConstLabels: labels,
		}),
		nodesRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "flowctl_restore_nodes_remaining",
			Help:        "Resources not yet processed in the current run",
			ConstLabels: labels,
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "flowctl_restore_uptime_seconds",
			Help:        "Restore run uptime in seconds",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		m.credentialsCreated,
		m.workflowsCreated,
		m.resourcesSkipped,
		m.resourcesFailed,
		m.resourcesRolled,
		m.nodesRemaining,
		m.uptimeSeconds,
	)

	return m
}

// Start begins serving metrics. Blocks until ctx is cancelled.
func (m *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", m.port),
		Handler: mux,
	}

	go m.updateLoop(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		m.server.Shutdown(shutdownCtx)
	}()

	if err := m.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// updateLoop periodically reads from Stats and updates Prometheus metrics.
func (m *MetricsServer) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var prevSnap StatsSnapshot

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := m.stats.Snapshot()

			// Counters: add the delta since last update
			if delta := snap.CredentialsMade - prevSnap.CredentialsMade; delta > 0 {
				m.credentialsCreated.Add(float64(delta))
			}
			if delta := snap.WorkflowsMade - prevSnap.WorkflowsMade; delta > 0 {
				m.workflowsCreated.Add(float64(delta))
			}
			if delta := snap.ResourcesSkipped - prevSnap.ResourcesSkipped; delta > 0 {
				m.resourcesSkipped.Add(float64(delta))
			}
			if delta := snap.ResourcesFailed - prevSnap.ResourcesFailed; delta > 0 {
				m.resourcesFailed.Add(float64(delta))
			}
			if delta := snap.RolledBack - prevSnap.RolledBack; delta > 0 {
				m.resourcesRolled.Add(float64(delta))
			}

			// Gauges: set directly
			done := snap.CredentialsMade + snap.WorkflowsMade + snap.ResourcesSkipped + snap.ResourcesFailed
			remaining := snap.NodesTotal - done
			if remaining < 0 {
				remaining = 0
			}
			m.nodesRemaining.Set(float64(remaining))
			m.uptimeSeconds.Set(snap.Uptime.Seconds())

			prevSnap = snap
		}
	}
}
