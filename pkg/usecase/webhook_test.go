package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
	"github.com/m-mizutani/buildgate/pkg/usecase"
)

func pushPayload(t *testing.T, ref string, authors ...string) []byte {
	t.Helper()

	commits := make([]map[string]any, 0, len(authors))
	for i, a := range authors {
		commits = append(commits, map[string]any{
			"id":     fmt.Sprintf("%040x", i+1),
			"author": map[string]any{"name": "n", "email": a},
		})
	}

	data, err := json.Marshal(map[string]any{
		"ref":    ref,
		"before": "1111111111111111111111111111111111111111",
		"after":  "2222222222222222222222222222222222222222",
		"repository": map[string]any{
			"name":      "api",
			"full_name": "acme/api",
			"owner":     map[string]any{"login": "acme", "name": "acme"},
		},
		"sender":  map[string]any{"login": "dev"},
		"commits": commits,
	})
	gt.NoError(t, err)
	return data
}

func pushEvent(t *testing.T, ref string, authors ...string) *model.WebhookEvent {
	return &model.WebhookEvent{
		ID:         "delivery-1",
		Type:       model.EventTypePush,
		Ref:        ref,
		Repository: "acme/api",
		Sender:     "dev",
		ReceivedAt: time.Now(),
		RawPayload: pushPayload(t, ref, authors...),
	}
}

func TestWebhookUseCase_ProcessEvent(t *testing.T) {
	ctx := context.Background()
	policies := model.NewPolicySet(model.StrategyIgnoreCommitter, model.ParseAuthorPolicy("bot@ci", false))

	t.Run("triggers build for regular authors", func(t *testing.T) {
		trigger := &MockBuildTrigger{}
		notifier := &MockNotifier{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(policies),
			usecase.WithBuildTrigger(trigger),
			usecase.WithNotifier(notifier),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "dev@x")))
		gt.Number(t, len(trigger.calls)).Equal(1)
		gt.True(t, trigger.calls[0].Build)
		gt.Number(t, len(notifier.updates)).Equal(0)
	})

	t.Run("notifies when ignored author suppresses build", func(t *testing.T) {
		trigger := &MockBuildTrigger{}
		notifier := &MockNotifier{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(policies),
			usecase.WithBuildTrigger(trigger),
			usecase.WithNotifier(notifier),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "dev@x", "Bot@CI")))
		gt.Number(t, len(trigger.calls)).Equal(0)
		gt.Number(t, len(notifier.updates)).Equal(1)
		gt.Value(t, notifier.updates[0].FullName()).Equal("acme/api")
		gt.Value(t, notifier.updates[0].Branch).Equal("main")
	})

	t.Run("uses configured changeset source instead of payload", func(t *testing.T) {
		source := &MockChangesetSource{
			changesetFunc: func(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error) {
				return commitsBy("bot@ci"), nil
			},
		}
		notifier := &MockNotifier{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(policies),
			usecase.WithChangesetSource(source),
			usecase.WithNotifier(notifier),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "dev@x")))
		gt.Number(t, len(source.calls)).Equal(1)
		gt.Value(t, source.calls[0].Before).Equal("1111111111111111111111111111111111111111")
		gt.Value(t, source.calls[0].After).Equal("2222222222222222222222222222222222222222")
		gt.Number(t, len(notifier.updates)).Equal(1)
	})

	t.Run("source failure still triggers build", func(t *testing.T) {
		source := &MockChangesetSource{
			changesetFunc: func(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error) {
				return nil, errors.New("rate limited")
			},
		}
		trigger := &MockBuildTrigger{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(model.NewPolicySet("", model.ParseAuthorPolicy("dev@x", true))),
			usecase.WithChangesetSource(source),
			usecase.WithBuildTrigger(trigger),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "dev@x")))
		gt.Number(t, len(trigger.calls)).Equal(1)
		gt.Value(t, trigger.calls[0].Reason).Equal(model.ReasonFailOpen)
	})

	t.Run("unknown strategy fails open", func(t *testing.T) {
		trigger := &MockBuildTrigger{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(model.NewPolicySet("nightly", nil)),
			usecase.WithBuildTrigger(trigger),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "dev@x")))
		gt.Number(t, len(trigger.calls)).Equal(1)
		gt.Value(t, trigger.calls[0].Reason).Equal(model.ReasonFailOpen)
	})

	t.Run("trigger error is returned", func(t *testing.T) {
		trigger := &MockBuildTrigger{err: errors.New("dispatch failed")}
		uc := usecase.NewWebhook(usecase.WithPolicySet(policies), usecase.WithBuildTrigger(trigger))

		err := uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "dev@x"))
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("dispatch failed")
	})

	t.Run("notifier error is returned", func(t *testing.T) {
		notifier := &MockNotifier{err: errors.New("slack down")}
		uc := usecase.NewWebhook(usecase.WithPolicySet(policies), usecase.WithNotifier(notifier))

		err := uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", "bot@ci"))
		gt.Error(t, err)
		gt.String(t, err.Error()).Contains("slack down")
	})
}

func TestWebhookUseCase_IgnoredEvents(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		event *model.WebhookEvent
	}{
		{
			name:  "tag push",
			event: pushEvent(t, "refs/tags/v1.0.0", "dev@x"),
		},
		{
			name: "branch deletion",
			event: func() *model.WebhookEvent {
				e := pushEvent(t, "refs/heads/feature", "dev@x")
				e.Deleted = true
				return e
			}(),
		},
		{
			name: "ping",
			event: &model.WebhookEvent{
				ID:         "delivery-ping",
				Type:       model.EventTypePing,
				RawPayload: []byte(`{"zen":"Keep it logically awesome."}`),
			},
		},
		{
			name: "unknown",
			event: &model.WebhookEvent{
				ID:   "delivery-unknown",
				Type: model.EventTypeUnknown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &MockBuildTrigger{}
			uc := usecase.NewWebhook(usecase.WithBuildTrigger(trigger))

			gt.NoError(t, uc.ProcessEvent(ctx, tt.event))
			gt.Number(t, len(trigger.calls)).Equal(0)
		})
	}
}

func TestWebhookUseCase_InvalidPayload(t *testing.T) {
	uc := usecase.NewWebhook()
	err := uc.ProcessEvent(context.Background(), &model.WebhookEvent{
		ID:         "broken",
		Type:       model.EventTypePush,
		Ref:        "refs/heads/main",
		RawPayload: []byte(`{"ref":`),
	})
	gt.Error(t, err)
}

func TestWebhookUseCase_CappedPayload(t *testing.T) {
	ctx := context.Background()
	capped := slices.Repeat([]string{"bot@ci"}, 2048)

	t.Run("allow mode fails open on a capped payload", func(t *testing.T) {
		trigger := &MockBuildTrigger{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(model.NewPolicySet("", model.ParseAuthorPolicy("bot@ci", true))),
			usecase.WithBuildTrigger(trigger),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", capped...)))
		gt.Number(t, len(trigger.calls)).Equal(1)
		gt.Value(t, trigger.calls[0].Reason).Equal(model.ReasonFailOpen)
		gt.String(t, trigger.calls[0].Error).Contains("truncated")
	})

	t.Run("allow mode below the cap uses payload commits", func(t *testing.T) {
		notifier := &MockNotifier{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(model.NewPolicySet("", model.ParseAuthorPolicy("bot@ci", true))),
			usecase.WithNotifier(notifier),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", capped[:2047]...)))
		gt.Number(t, len(notifier.updates)).Equal(1)
	})

	t.Run("veto mode keeps the visible veto", func(t *testing.T) {
		notifier := &MockNotifier{}
		uc := usecase.NewWebhook(
			usecase.WithPolicySet(model.NewPolicySet("", model.ParseAuthorPolicy("bot@ci", false))),
			usecase.WithNotifier(notifier),
		)

		gt.NoError(t, uc.ProcessEvent(ctx, pushEvent(t, "refs/heads/main", capped...)))
		gt.Number(t, len(notifier.updates)).Equal(1)
	})
}
