package github

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// DefaultDispatchEventType is the repository_dispatch event sent for builds
const DefaultDispatchEventType = "buildgate-build"

const comparePageSize = 100

// Client is a GitHub backed changeset source and build trigger
type Client struct {
	githubClient  *github.Client
	dispatchEvent string
}

// Option configures Client
type Option func(*Client)

// WithDispatchEventType sets the repository_dispatch event type used by TriggerBuild
func WithDispatchEventType(eventType string) Option {
	return func(c *Client) {
		if eventType != "" {
			c.dispatchEvent = eventType
		}
	}
}

// New wraps an existing go-github client
func New(githubClient *github.Client, opts ...Option) *Client {
	c := &Client{
		githubClient:  githubClient,
		dispatchEvent: DefaultDispatchEventType,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewAppClient creates a client authenticated as a GitHub App installation
func NewAppClient(appID, installationID int64, privateKey []byte, opts ...Option) (*Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("app_id", appID),
			goerr.V("installation_id", installationID),
		)
	}

	return New(github.NewClient(&http.Client{Transport: itr}), opts...), nil
}

// NewTokenClient creates a client authenticated with a personal access token
func NewTokenClient(token string, opts ...Option) *Client {
	return New(github.NewClient(nil).WithAuthToken(token), opts...)
}

// Changeset lists the commits between update.Before and update.After using the
// compare API, oldest first. The git author e-mail is the author identity.
func (c *Client) Changeset(ctx context.Context, update *model.BranchUpdate) ([]*model.Commit, error) {
	logger := ctxlog.From(ctx)

	var commits []*model.Commit
	opts := &github.ListOptions{PerPage: comparePageSize}

	for {
		cmp, resp, err := c.githubClient.Repositories.CompareCommits(ctx, update.Owner, update.Repo, update.Before, update.After, opts)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to compare commits",
				goerr.V("repository", update.FullName()),
				goerr.V("base", update.Before),
				goerr.V("head", update.After),
				goerr.V("page", opts.Page),
			)
		}

		for _, rc := range cmp.Commits {
			author := rc.GetCommit().GetAuthor()
			commits = append(commits, &model.Commit{
				ID:         rc.GetSHA(),
				Author:     author.GetEmail(),
				AuthorName: author.GetName(),
			})
		}

		logger.Debug("Fetched compare page",
			slog.String("repository", update.FullName()),
			slog.String("status", cmp.GetStatus()),
			slog.Int("total_commits", cmp.GetTotalCommits()),
			slog.Int("page_commits", len(cmp.Commits)),
		)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return commits, nil
}

type dispatchPayload struct {
	Branch     string               `json:"branch"`
	Before     string               `json:"before"`
	After      string               `json:"after"`
	DecisionID string               `json:"decision_id"`
	Reason     model.DecisionReason `json:"reason"`
}

// TriggerBuild sends a repository_dispatch event carrying the decision
func (c *Client) TriggerBuild(ctx context.Context, update *model.BranchUpdate, decision *model.Decision) error {
	raw, err := json.Marshal(dispatchPayload{
		Branch:     update.Branch,
		Before:     update.Before,
		After:      update.After,
		DecisionID: decision.ID,
		Reason:     decision.Reason,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal dispatch payload")
	}
	payload := json.RawMessage(raw)

	if _, _, err := c.githubClient.Repositories.Dispatch(ctx, update.Owner, update.Repo, github.DispatchRequestOptions{
		EventType:     c.dispatchEvent,
		ClientPayload: &payload,
	}); err != nil {
		return goerr.Wrap(err, "failed to dispatch build",
			goerr.V("repository", update.FullName()),
			goerr.V("event_type", c.dispatchEvent),
		)
	}

	ctxlog.From(ctx).Info("Build dispatched",
		slog.String("repository", update.FullName()),
		slog.String("branch", update.Branch),
		slog.String("event_type", c.dispatchEvent),
		slog.String("decision_id", decision.ID),
	)
	return nil
}
