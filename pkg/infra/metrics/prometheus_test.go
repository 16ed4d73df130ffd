package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
	"github.com/m-mizutani/buildgate/pkg/infra/metrics"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := metrics.NewPrometheusRecorder(reg)

	pr.IncDecision(model.ReasonIgnoredAuthor, false)
	pr.IncDecision(model.ReasonIgnoredAuthor, false)
	pr.IncDecision(model.ReasonFailOpen, true)
	pr.ObserveChangesetSize(3)
	pr.IncFailOpen(metrics.CauseRetrieval)

	mfs, err := reg.Gather()
	gt.NoError(t, err)
	gt.Number(t, len(mfs)).Equal(3)

	expected := `
# HELP buildgate_decisions_total Build decisions by reason and verdict
# TYPE buildgate_decisions_total counter
buildgate_decisions_total{build="false",reason="ignored_author"} 2
buildgate_decisions_total{build="true",reason="fail_open"} 1
`
	gt.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "buildgate_decisions_total"))
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	pr := metrics.NewPrometheusRecorder(nil)
	pr.IncFailOpen(metrics.CausePanic)

	w := httptest.NewRecorder()
	pr.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`buildgate_fail_open_total{cause="panic"} 1`)
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *metrics.PrometheusRecorder
	pr.IncDecision(model.ReasonAlways, true)
	pr.ObserveChangesetSize(1)
	pr.IncFailOpen(metrics.CauseRetrieval)
}

func TestNoopRecorder(t *testing.T) {
	var r metrics.Recorder = metrics.NoopRecorder{}
	r.IncDecision(model.ReasonNoDecisiveCommit, true)
	r.ObserveChangesetSize(0)
	r.IncFailOpen(metrics.CauseNoBaseRevision)
}
