// Package telemetry exposes solve and publish metrics.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives engine events
type Collector interface {
	ObserveSolve(org, mode string, d time.Duration, hardViolations int, health float64)
	IncPublish(org string)
	IncLoadError(kind string)
}

// Nop discards everything
type Nop struct{}

var _ Collector = Nop{}

func (Nop) ObserveSolve(string, string, time.Duration, int, float64) {}
func (Nop) IncPublish(string)                                        {}
func (Nop) IncLoadError(string)                                      {}

// Prometheus implements Collector with prometheus metrics
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	solveDuration  *prometheus.HistogramVec
	hardViolations *prometheus.CounterVec
	health         *prometheus.GaugeVec
	publishes      *prometheus.CounterVec
	loadErrors     *prometheus.CounterVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus registers collectors lazily on first use. A nil registerer
// uses prometheus.DefaultRegisterer and an empty namespace uses "roster".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "roster"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.solveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "duration_seconds",
			Help:      "Wall time of solve invocations by mode.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"mode"})
		p.hardViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "hard_violations_total",
			Help:      "Hard violations reported by solves, by organization.",
		}, []string{"org"})
		p.health = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "health_score",
			Help:      "Health score of the most recent solve per organization.",
		}, []string{"org"})
		p.publishes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "baseline",
			Name:      "publishes_total",
			Help:      "Snapshots published, by organization.",
		}, []string{"org"})
		p.loadErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "solver",
			Name:      "load_errors_total",
			Help:      "Solves rejected at load time, by error kind.",
		}, []string{"kind"})

		for _, c := range []prometheus.Collector{p.solveDuration, p.hardViolations, p.health, p.publishes, p.loadErrors} {
			_ = p.reg.Register(c)
		}
	})
}

// ObserveSolve records one completed solve
func (p *Prometheus) ObserveSolve(org, mode string, d time.Duration, hard int, health float64) {
	p.ensureRegistered()
	p.solveDuration.WithLabelValues(mode).Observe(d.Seconds())
	p.hardViolations.WithLabelValues(org).Add(float64(hard))
	p.health.WithLabelValues(org).Set(health)
}

// IncPublish counts a publish
func (p *Prometheus) IncPublish(org string) {
	p.ensureRegistered()
	p.publishes.WithLabelValues(org).Inc()
}

// IncLoadError counts a solve rejected before it ran
func (p *Prometheus) IncLoadError(kind string) {
	p.ensureRegistered()
	p.loadErrors.WithLabelValues(kind).Inc()
}
