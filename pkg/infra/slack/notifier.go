package slack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// Notifier posts skipped builds to a Slack channel
type Notifier struct {
	client  *slack.Client
	channel string
}

// New creates a Notifier. Options are passed to the slack client.
func New(token, channel string, opts ...slack.Option) *Notifier {
	return &Notifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}
}

// NotifySkipped posts the decisive commit of a suppressed build
func (n *Notifier) NotifySkipped(ctx context.Context, update *model.BranchUpdate, decision *model.Decision) error {
	text := fmt.Sprintf("Build skipped for `%s` on `%s` (%s)", update.FullName(), update.Branch, decision.Reason)
	if decision.Commit != nil {
		text += fmt.Sprintf("\ncommit `%s` by %s", shortSHA(decision.Commit.ID), decision.Commit.Author)
	}

	_, ts, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return goerr.Wrap(err, "failed to post slack message",
			goerr.V("channel", n.channel),
			goerr.V("decision_id", decision.ID),
		)
	}

	ctxlog.From(ctx).Debug("Posted skipped build notification",
		slog.String("channel", n.channel),
		slog.String("ts", ts),
		slog.String("decision_id", decision.ID),
	)
	return nil
}

func shortSHA(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
