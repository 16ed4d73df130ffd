package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	decisions     *prom.CounterVec
	changesetSize prom.Histogram
	failOpen      *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the decision metrics on reg. A nil
// registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		reg: reg,
		decisions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildgate",
			Name:      "decisions_total",
			Help:      "Build decisions by reason and verdict",
		}, []string{"reason", "build"}),
		changesetSize: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "buildgate",
			Name:      "changeset_commits",
			Help:      "Number of commits in evaluated changesets",
			Buckets:   prom.ExponentialBuckets(1, 2, 10),
		}),
		failOpen: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildgate",
			Name:      "fail_open_total",
			Help:      "Decisions that defaulted to build because of an error",
		}, []string{"cause"}),
	}
	reg.MustRegister(pr.decisions, pr.changesetSize, pr.failOpen)
	return pr
}

func (p *PrometheusRecorder) IncDecision(reason model.DecisionReason, build bool) {
	if p == nil {
		return
	}
	p.decisions.WithLabelValues(string(reason), strconv.FormatBool(build)).Inc()
}

func (p *PrometheusRecorder) ObserveChangesetSize(n int) {
	if p == nil {
		return
	}
	p.changesetSize.Observe(float64(n))
}

func (p *PrometheusRecorder) IncFailOpen(cause string) {
	if p == nil {
		return
	}
	p.failOpen.WithLabelValues(cause).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
