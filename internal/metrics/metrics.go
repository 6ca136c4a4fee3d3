// Package metrics exposes Prometheus instrumentation for upstream fetches and
// the derived About state.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"overseerr-about/internal/status"
)

const namespace = "overseerr_about"

// Recorder implements resource.Observer and tracks panel state.
type Recorder struct {
	reg           *prom.Registry
	fetchDuration *prom.HistogramVec
	fetchResults  *prom.CounterVec
	freshness     *prom.GaugeVec
	phase         *prom.GaugeVec
	wsClients     prom.Gauge
	broadcasts    prom.Counter
}

// NewRecorder constructs and registers all collectors on reg (a fresh
// registry when nil).
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		fetchDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of upstream resource fetches",
			Buckets:   prom.DefBuckets,
		}, []string{"resource"}),
		fetchResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_results_total",
			Help:      "Upstream fetch results by resource and outcome",
		}, []string{"resource", "result"}),
		freshness: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "freshness",
			Help:      "1 for the current freshness classification, 0 otherwise",
		}, []string{"freshness"}),
		phase: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "1 for the current panel phase, 0 otherwise",
		}, []string{"phase"}),
		wsClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected websocket clients",
		}),
		broadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Panel updates pushed to websocket clients",
		}),
	}
	reg.MustRegister(r.fetchDuration, r.fetchResults, r.freshness, r.phase, r.wsClients, r.broadcasts)
	return r
}

func (r *Recorder) ObserveFetch(key string, d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.fetchDuration.WithLabelValues(key).Observe(d.Seconds())
	r.fetchResults.WithLabelValues(key, result).Inc()
}

// ObserveDerived records the latest phase and freshness as one-hot gauges.
func (r *Recorder) ObserveDerived(d status.Derived) {
	if r == nil {
		return
	}
	for _, p := range []status.Phase{status.Loading, status.Failed, status.Ready} {
		r.phase.WithLabelValues(p.String()).Set(oneHot(p == d.Phase))
	}
	for _, f := range []status.Freshness{status.Unknown, status.UpToDate, status.OutOfDate} {
		r.freshness.WithLabelValues(f.String()).Set(oneHot(d.Phase == status.Ready && f == d.Freshness))
	}
}

func (r *Recorder) SetClients(n int) {
	if r == nil {
		return
	}
	r.wsClients.Set(float64(n))
}

func (r *Recorder) IncBroadcast() {
	if r == nil {
		return
	}
	r.broadcasts.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
}

func oneHot(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
