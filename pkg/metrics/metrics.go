// Package metrics records the outcome of a digest run in a private Prometheus
// registry and pushes it to a Pushgateway, the usual pattern for batch jobs
// that exit before they could be scraped.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "techdigest"

// Failure stages.
const (
	StageFetch  = "fetch"
	StageRender = "render"
	StageSend   = "send"
)

// ErrNoGateway is returned by Push when no Pushgateway URL is configured.
var ErrNoGateway = errors.New("metrics: pushgateway url is empty")

// Config holds Pushgateway settings.
type Config struct {
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	Job            string `env:"PUSHGATEWAY_JOB" envDefault:"techdigest"`
}

// Recorder holds the collectors of one run.
type Recorder struct {
	registry    *prometheus.Registry
	events      prometheus.Gauge
	sent        prometheus.Counter
	failures    *prometheus.CounterVec
	lastSuccess prometheus.Gauge
	duration    prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of events included in the last digest.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Digest emails accepted by the mail provider.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_failures_total",
			Help:      "Digest runs that failed, by pipeline stage.",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful delivery.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}

	r.registry.MustRegister(r.events, r.sent, r.failures, r.lastSuccess, r.duration)
	return r
}

// ObserveEvents records how many events the digest contains.
func (r *Recorder) ObserveEvents(n int) {
	r.events.Set(float64(n))
}

// EmailSent records a successful delivery at t.
func (r *Recorder) EmailSent(t time.Time) {
	r.sent.Inc()
	r.lastSuccess.Set(float64(t.Unix()))
}

// Failure records a failed run at the given stage.
func (r *Recorder) Failure(stage string) {
	r.failures.WithLabelValues(stage).Inc()
}

// RunFinished records the run duration.
func (r *Recorder) RunFinished(d time.Duration) {
	r.duration.Set(d.Seconds())
}

// Gatherer exposes the registry, mostly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends the collected metrics to the Pushgateway, replacing the
// previous group for the job.
func (r *Recorder) Push(ctx context.Context, cfg Config) error {
	if cfg.PushgatewayURL == "" {
		return ErrNoGateway
	}
	job := cfg.Job
	if job == "" {
		job = namespace
	}
	return push.New(cfg.PushgatewayURL, job).Gatherer(r.registry).PushContext(ctx)
}
