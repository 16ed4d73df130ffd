package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/buildgate/pkg/domain/interfaces"
	"github.com/m-mizutani/buildgate/pkg/domain/model"
	"github.com/m-mizutani/buildgate/pkg/infra/metrics"
)

// StrategyAlways builds every update
const StrategyAlways = "always"

// ErrUnknownStrategy is returned for strategy names that were never registered
var ErrUnknownStrategy = goerr.New("unknown build strategy")

// StrategyFactory creates a strategy for one changeset source and policy
type StrategyFactory func(source interfaces.ChangesetSource, policy *model.AuthorPolicy) interfaces.BuildDecisionPolicy

// StrategyRegistry holds the named build strategies.
type StrategyRegistry struct {
	factories map[string]StrategyFactory
	mu        sync.RWMutex
}

// NewStrategyRegistry creates an empty registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		factories: make(map[string]StrategyFactory),
	}
}

// DefaultStrategyRegistry returns a registry with the built-in strategies
func DefaultStrategyRegistry(recorder metrics.Recorder) *StrategyRegistry {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	r := NewStrategyRegistry()
	r.Register(model.StrategyIgnoreCommitter, func(source interfaces.ChangesetSource, policy *model.AuthorPolicy) interfaces.BuildDecisionPolicy {
		return NewIgnoreCommitter(source, policy, WithRecorder(recorder))
	})
	r.Register(StrategyAlways, func(interfaces.ChangesetSource, *model.AuthorPolicy) interfaces.BuildDecisionPolicy {
		return &alwaysBuild{recorder: recorder}
	})
	return r
}

// Register adds a factory. An existing factory with the same name is replaced.
func (r *StrategyRegistry) Register(name string, factory StrategyFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New instantiates the named strategy
func (r *StrategyRegistry) New(name string, source interfaces.ChangesetSource, policy *model.AuthorPolicy) (interfaces.BuildDecisionPolicy, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, goerr.Wrap(ErrUnknownStrategy, "cannot create strategy", goerr.V("name", name))
	}
	return factory(source, policy), nil
}

// Validate checks that every name is registered
func (r *StrategyRegistry) Validate(names ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range names {
		if _, ok := r.factories[name]; !ok {
			return goerr.Wrap(ErrUnknownStrategy, "strategy is not registered", goerr.V("name", name))
		}
	}
	return nil
}

type alwaysBuild struct {
	recorder metrics.Recorder
}

func (s *alwaysBuild) Decide(ctx context.Context, update *model.BranchUpdate) *model.Decision {
	decision := &model.Decision{
		ID:     uuid.NewString(),
		Build:  true,
		Reason: model.ReasonAlways,
	}
	ctxlog.From(ctx).Info("Strategy always builds", slog.String("decision_id", decision.ID))
	s.recorder.IncDecision(decision.Reason, decision.Build)
	return decision
}
