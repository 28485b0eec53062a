// Package metrics records build statistics in Prometheus format, for the
// node_exporter textfile collector or the /metrics endpoint of serve.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appLog "onevents/internal/log"
)

// Build is the outcome of one build run.
type Build struct {
	Events    int
	Upcoming  int
	Documents int
	Duration  time.Duration
	Err       error
	At        time.Time
}

// Recorder owns a private registry so repeated builds in one process
// update the same series.
type Recorder struct {
	Registry *prometheus.Registry

	events      prometheus.Gauge
	upcoming    prometheus.Gauge
	documents   prometheus.Gauge
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	runs        *prometheus.CounterVec
}

// NewRecorder registers the onevents_* series.
func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onevents_events_loaded",
			Help: "Event records loaded by the last build",
		}),
		upcoming: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onevents_events_upcoming",
			Help: "Events on or after the build date",
		}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onevents_calendar_documents",
			Help: "Calendar files written by the last build",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onevents_build_duration_seconds",
			Help: "Wall time of the last build",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "onevents_build_last_success_timestamp_seconds",
			Help: "Unix time of the last successful build",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onevents_builds_total",
			Help: "Build runs by result",
		}, []string{"result"}),
	}
	r.Registry.MustRegister(r.events, r.upcoming, r.documents, r.duration, r.lastSuccess, r.runs)
	return r
}

// Observe records b. Counts of a failed build are left at the values of
// the last successful one.
func (r *Recorder) Observe(b Build) {
	r.duration.Set(b.Duration.Seconds())
	if b.Err != nil {
		r.runs.WithLabelValues("error").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	r.events.Set(float64(b.Events))
	r.upcoming.Set(float64(b.Upcoming))
	r.documents.Set(float64(b.Documents))
	r.lastSuccess.Set(float64(b.At.Unix()))
}

// WriteTextfile writes every series to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return err
	}
	appLog.Debug("metrics written", "path", path)
	return nil
}

// Handler exposes the registry over HTTP.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
