package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"dropmirror/internal/mirror"
)

const namespace = "dropmirror"

// RunCollector accumulates Prometheus metrics for one download run. The
// registry is private so a run's textfile holds only its own series.
type RunCollector struct {
	registry *prometheus.Registry

	collections   *prometheus.CounterVec
	items         *prometheus.CounterVec
	bytes         prometheus.Counter
	archiveOps    *prometheus.CounterVec
	archiveBytes  prometheus.Counter
	runDuration   prometheus.Histogram
	lastRunStatus *prometheus.GaugeVec
	lastRunTime   prometheus.Gauge
}

// NewRunCollector registers every run metric on a fresh registry.
func NewRunCollector() (*RunCollector, error) {
	c := &RunCollector{
		registry: prometheus.NewRegistry(),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Collections processed, by final status.",
		}, []string{"status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Collection items processed, by type and outcome.",
		}, []string{"type", "outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Bytes written to the local mirror.",
		}),
		archiveOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "uploads_total",
			Help:      "Archive uploads, by result.",
		}, []string{"result"}),
		archiveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes uploaded to archive vaults.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a download run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		lastRunStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run finished without aborted collections.",
		}, []string{"mode"}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.collections, c.items, c.bytes, c.archiveOps, c.archiveBytes,
		c.runDuration, c.lastRunStatus, c.lastRunTime,
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("registering metric: %w", err)
		}
	}
	return c, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (c *RunCollector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCollection records a finished collection and its items.
func (c *RunCollector) ObserveCollection(r *mirror.CollectionReport) {
	c.collections.WithLabelValues(r.Status.String()).Inc()
	for _, it := range r.Items {
		c.items.WithLabelValues(it.Type, it.Outcome.String()).Inc()
		if it.Outcome == mirror.OutcomeWritten {
			c.bytes.Add(float64(it.Bytes))
		}
	}
}

// ObserveArchive records one collection's archive result.
func (c *RunCollector) ObserveArchive(res mirror.ArchiveResult) {
	c.archiveOps.WithLabelValues("ok").Add(float64(res.Uploads))
	c.archiveOps.WithLabelValues("failed").Add(float64(res.Failures))
	c.archiveBytes.Add(float64(res.Bytes))
}

// ObserveRun records the end of a run.
func (c *RunCollector) ObserveRun(mode string, success bool, duration time.Duration, finished time.Time) {
	c.runDuration.Observe(duration.Seconds())
	v := 0.0
	if success {
		v = 1
	}
	c.lastRunStatus.WithLabelValues(mode).Set(v)
	c.lastRunTime.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in text format for a node_exporter
// textfile collector. The file is replaced atomically.
func (c *RunCollector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
