package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/buildgate/pkg/domain/interfaces"
	"github.com/m-mizutani/buildgate/pkg/domain/model"
	"github.com/m-mizutani/buildgate/pkg/infra/metrics"
	"github.com/m-mizutani/buildgate/pkg/utils/errs"
)

// IgnoreCommitter decides builds by the authors of the changeset. It fails open: any
// problem obtaining the changeset results in a build.
type IgnoreCommitter struct {
	source   interfaces.ChangesetSource
	policy   *model.AuthorPolicy
	recorder metrics.Recorder
}

// IgnoreCommitterOption configures IgnoreCommitter
type IgnoreCommitterOption func(*IgnoreCommitter)

// WithRecorder sets the metrics recorder
func WithRecorder(recorder metrics.Recorder) IgnoreCommitterOption {
	return func(s *IgnoreCommitter) {
		s.recorder = recorder
	}
}

// NewIgnoreCommitter creates the ignore-committer strategy
func NewIgnoreCommitter(source interfaces.ChangesetSource, policy *model.AuthorPolicy, opts ...IgnoreCommitterOption) *IgnoreCommitter {
	s := &IgnoreCommitter{
		source:   source,
		policy:   policy,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAutomaticBuild reports whether the update should be built
func (s *IgnoreCommitter) IsAutomaticBuild(ctx context.Context, update *model.BranchUpdate) bool {
	return s.Decide(ctx, update).Build
}

// Decide evaluates the changeset of update. It never returns nil.
func (s *IgnoreCommitter) Decide(ctx context.Context, update *model.BranchUpdate) (decision *model.Decision) {
	defer func() {
		if r := recover(); r != nil {
			decision = s.failOpen(ctx, metrics.CausePanic,
				goerr.New("panic while deciding build", goerr.V("recover", r)))
		}
	}()

	if update == nil {
		return s.failOpen(ctx, metrics.CauseOwnerUnavailable,
			goerr.Wrap(model.ErrOwnerUnavailable, "branch update is missing"))
	}

	ctx = ctxlog.With(ctx, ctxlog.From(ctx).With(
		slog.String("repository", update.FullName()),
		slog.String("branch", update.Branch),
	))

	if err := update.Validate(); err != nil {
		switch {
		case errors.Is(err, model.ErrOwnerUnavailable):
			return s.failOpen(ctx, metrics.CauseOwnerUnavailable, err)
		case errors.Is(err, model.ErrNoBaseRevision):
			// A new branch has nothing to compare against; building is the expected outcome.
			ctxlog.From(ctx).Info("Branch has no previous revision, build is required",
				slog.String("after", update.After))
			return s.openDecision(metrics.CauseNoBaseRevision, err)
		default:
			return s.failOpen(ctx, metrics.CauseRetrieval, err)
		}
	}

	if s.source == nil {
		return s.failOpen(ctx, metrics.CauseRetrieval, goerr.New("no changeset source configured"))
	}

	commits, err := s.source.Changeset(ctx, update)
	if err != nil {
		return s.failOpen(ctx, metrics.CauseRetrieval, goerr.Wrap(err, "failed to retrieve changeset",
			goerr.V("before", update.Before),
			goerr.V("after", update.After),
		))
	}

	s.recorder.ObserveChangesetSize(len(commits))
	decision = EvaluateAuthors(ctx, slices.Values(commits), s.policy)
	s.recorder.IncDecision(decision.Reason, decision.Build)
	return decision
}

func (s *IgnoreCommitter) failOpen(ctx context.Context, cause string, err error) *model.Decision {
	errs.Handle(ctx, "Build decision failed, defaulting to build", err)
	return s.openDecision(cause, err)
}

func (s *IgnoreCommitter) openDecision(cause string, err error) *model.Decision {
	s.recorder.IncFailOpen(cause)
	s.recorder.IncDecision(model.ReasonFailOpen, true)
	return &model.Decision{
		ID:     uuid.NewString(),
		Build:  true,
		Reason: model.ReasonFailOpen,
		Error:  err.Error(),
	}
}
