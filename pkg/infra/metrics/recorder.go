package metrics

import "github.com/m-mizutani/buildgate/pkg/domain/model"

// Fail-open causes
const (
	CauseOwnerUnavailable = "owner_unavailable"
	CauseNoBaseRevision   = "no_base_revision"
	CauseRetrieval        = "retrieval"
	CausePanic            = "panic"
)

// Recorder receives decision metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	IncDecision(reason model.DecisionReason, build bool)
	ObserveChangesetSize(n int)
	IncFailOpen(cause string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncDecision(model.DecisionReason, bool) {}
func (NoopRecorder) ObserveChangesetSize(int)              {}
func (NoopRecorder) IncFailOpen(string)                    {}
