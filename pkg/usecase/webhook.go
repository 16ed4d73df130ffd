package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/buildgate/pkg/domain/interfaces"
	"github.com/m-mizutani/buildgate/pkg/domain/model"
	"github.com/m-mizutani/buildgate/pkg/utils/errs"
)

type webhookUseCase struct {
	policies *model.PolicySet
	registry *StrategyRegistry
	source   interfaces.ChangesetSource
	trigger  interfaces.BuildTrigger
	notifier interfaces.Notifier
}

// WebhookOption configures the webhook use case
type WebhookOption func(*webhookUseCase)

// WithPolicySet sets the policies applied to branch updates
func WithPolicySet(policies *model.PolicySet) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.policies = policies
	}
}

// WithStrategyRegistry replaces the default strategy registry
func WithStrategyRegistry(registry *StrategyRegistry) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.registry = registry
	}
}

// WithChangesetSource sets the source of changesets. Without it the commits embedded
// in the push payload are used.
func WithChangesetSource(source interfaces.ChangesetSource) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.source = source
	}
}

// WithBuildTrigger sets where builds are enqueued
func WithBuildTrigger(trigger interfaces.BuildTrigger) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.trigger = trigger
	}
}

// WithNotifier sets where skipped builds are reported
func WithNotifier(notifier interfaces.Notifier) WebhookOption {
	return func(uc *webhookUseCase) {
		uc.notifier = notifier
	}
}

// NewWebhook creates a new instance of WebhookUseCase
func NewWebhook(opts ...WebhookOption) *webhookUseCase {
	uc := &webhookUseCase{
		policies: model.NewPolicySet(model.StrategyIgnoreCommitter, nil),
		registry: DefaultStrategyRegistry(nil),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessEvent decides whether a push should be built and acts on the decision
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"ref", event.Ref,
		"repository", event.Repository,
		"sender", event.Sender,
		"supported", event.IsSupportedEvent(),
	)

	if !event.IsSupportedEvent() {
		logger.Info("Ignoring event without build decision",
			"type", event.Type,
			"ref", event.Ref,
			"deleted", event.Deleted,
		)
		return nil
	}

	var push github.PushEvent
	if err := json.Unmarshal(event.RawPayload, &push); err != nil {
		return goerr.Wrap(err, "failed to unmarshal push event", goerr.V("delivery", event.ID))
	}

	owner := push.GetRepo().GetOwner().GetLogin()
	if owner == "" {
		owner = push.GetRepo().GetOwner().GetName()
	}

	update := &model.BranchUpdate{
		Owner:  owner,
		Repo:   push.GetRepo().GetName(),
		Branch: event.Branch(),
		Before: push.GetBefore(),
		After:  push.GetAfter(),
		Sender: event.Sender,
	}

	decision := uc.decide(ctx, update, &push)

	logger.Info("Build decision",
		slog.String("decision_id", decision.ID),
		slog.String("repository", update.FullName()),
		slog.String("branch", update.Branch),
		slog.String("after", update.After),
		slog.Bool("build", decision.Build),
		slog.String("reason", string(decision.Reason)),
	)

	if decision.Build {
		if uc.trigger == nil {
			return nil
		}
		if err := uc.trigger.TriggerBuild(ctx, update, decision); err != nil {
			return goerr.Wrap(err, "failed to trigger build",
				goerr.V("repository", update.FullName()),
				goerr.V("branch", update.Branch),
			)
		}
		return nil
	}

	if uc.notifier == nil {
		return nil
	}
	if err := uc.notifier.NotifySkipped(ctx, update, decision); err != nil {
		return goerr.Wrap(err, "failed to notify skipped build",
			goerr.V("repository", update.FullName()),
			goerr.V("branch", update.Branch),
		)
	}
	return nil
}

func (uc *webhookUseCase) decide(ctx context.Context, update *model.BranchUpdate, push *github.PushEvent) *model.Decision {
	resolved := uc.policies.Lookup(update.FullName(), update.Branch)

	// In allow mode a commit missing from a capped payload could be the one that builds.
	var source interfaces.ChangesetSource = newPayloadSource(push, resolved.Authors.AllowIfNotExcluded())
	if uc.source != nil {
		source = uc.source
	}

	strategy, err := uc.registry.New(resolved.Strategy, source, resolved.Authors)
	if err != nil {
		errs.Handle(ctx, "Build strategy unavailable, defaulting to build", err)
		return &model.Decision{
			ID:     uuid.NewString(),
			Build:  true,
			Reason: model.ReasonFailOpen,
			Error:  err.Error(),
		}
	}

	return strategy.Decide(ctx, update)
}
