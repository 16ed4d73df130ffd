package interfaces

import (
	"context"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// BuildDecisionPolicy decides whether a branch update should trigger a build.
// Implementations never fail: when they cannot decide they return a decision with Build set.
type BuildDecisionPolicy interface {
	Decide(ctx context.Context, update *model.BranchUpdate) *model.Decision
}

// BuildTrigger enqueues a build in the host scheduler
type BuildTrigger interface {
	TriggerBuild(ctx context.Context, update *model.BranchUpdate, decision *model.Decision) error
}

// Notifier reports builds that were suppressed by a policy
type Notifier interface {
	NotifySkipped(ctx context.Context, update *model.BranchUpdate, decision *model.Decision) error
}
