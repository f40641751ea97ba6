// Package metrics exposes opsboard measurements as Prometheus collectors.
//
// Collectors live on a private registry so several boards (and tests) can
// coexist in one process.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/opsboard/record"
)

const namespace = "opsboard"

// Collector records sweep, speed test and backup measurements.
type Collector struct {
	registry *prometheus.Registry

	sweeps       prometheus.Counter
	siteUp       *prometheus.GaugeVec
	siteResponse *prometheus.GaugeVec

	speedTests    prometheus.Counter
	speedDownload prometheus.Gauge
	speedMax      prometheus.Gauge
	speedPing     prometheus.Gauge

	backups *prometheus.GaugeVec
}

// New creates a Collector with all collectors registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Total number of completed monitor sweeps",
		}),
		siteUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "site_up",
			Help:      "Whether the site answered in the latest sweep (1) or not (0)",
		}, []string{"name", "url"}),
		siteResponse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "site_response_ms",
			Help:      "Response time of the site in the latest sweep, in milliseconds",
		}, []string{"name", "url"}),
		speedTests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speedtests_total",
			Help:      "Total number of completed speed tests",
		}),
		speedDownload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed_download_mbps",
			Help:      "Download speed of the latest speed test, in Mbps",
		}),
		speedMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed_max_mbps",
			Help:      "Peak sample speed of the latest speed test, in Mbps",
		}),
		speedPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "speed_ping_ms",
			Help:      "Latency of the latest speed test, in milliseconds",
		}),
		backups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backups",
			Help:      "Retained backup records by status",
		}, []string{"status"}),
	}

	c.registry.MustRegister(
		c.sweeps,
		c.siteUp,
		c.siteResponse,
		c.speedTests,
		c.speedDownload,
		c.speedMax,
		c.speedPing,
		c.backups,
	)
	return c
}

// ObserveSnapshot records a completed sweep. Per-site gauges are replaced,
// so sites removed from the target list disappear.
func (c *Collector) ObserveSnapshot(s record.MonitorSnapshot) {
	c.sweeps.Inc()
	c.siteUp.Reset()
	c.siteResponse.Reset()
	for _, r := range s.Results {
		up := 0.0
		if r.Status == record.SiteOnline {
			up = 1
		}
		c.siteUp.WithLabelValues(r.Name, r.URL).Set(up)
		if r.ResponseTimeMs != nil {
			c.siteResponse.WithLabelValues(r.Name, r.URL).Set(float64(*r.ResponseTimeMs))
		}
	}
}

// ObserveSpeedTest records a completed speed test.
func (c *Collector) ObserveSpeedTest(r record.SpeedRecord) {
	c.speedTests.Inc()
	c.speedDownload.Set(r.Download)
	c.speedMax.Set(r.MaxSpeed)
	c.speedPing.Set(r.Ping)
}

// ObserveBackups replaces the per-status backup counts.
func (c *Collector) ObserveBackups(list []record.BackupRecord) {
	for status, n := range record.CountByStatus(list) {
		c.backups.WithLabelValues(string(status)).Set(float64(n))
	}
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
