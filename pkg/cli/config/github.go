package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	githubinfra "github.com/m-mizutani/buildgate/pkg/infra/github"
)

// GitHub holds GitHub configuration
type GitHub struct {
	WebhookSecret  string
	AppID          int64
	InstallationID int64
	PrivateKey     string
	Token          string
	DispatchEvent  string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("BUILDGATE_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("BUILDGATE_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("BUILDGATE_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("BUILDGATE_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token, used when App credentials are not set",
			Destination: &c.Token,
			Sources:     cli.EnvVars("BUILDGATE_GITHUB_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "github-dispatch-event",
			Usage:       "repository_dispatch event type sent to start a build",
			Value:       githubinfra.DefaultDispatchEventType,
			Destination: &c.DispatchEvent,
			Sources:     cli.EnvVars("BUILDGATE_GITHUB_DISPATCH_EVENT"),
		},
	}
}

// LogValue hides credentials in logs
func (c GitHub) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("app_id", c.AppID),
		slog.Int64("installation_id", c.InstallationID),
		slog.Bool("has_private_key", c.PrivateKey != ""),
		slog.Bool("has_token", c.Token != ""),
		slog.String("dispatch_event", c.DispatchEvent),
	)
}

// Build returns a GitHub API client. App credentials take precedence over a token.
// It returns nil without error if no credentials are configured.
func (c *GitHub) Build() (*githubinfra.Client, error) {
	opts := []githubinfra.Option{githubinfra.WithDispatchEventType(c.DispatchEvent)}

	switch {
	case c.AppID != 0 || c.InstallationID != 0 || c.PrivateKey != "":
		if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKey == "" {
			return nil, goerr.New("github-app-id, github-installation-id and github-private-key must be set together")
		}
		client, err := githubinfra.NewAppClient(c.AppID, c.InstallationID, []byte(c.PrivateKey), opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	case c.Token != "":
		return githubinfra.NewTokenClient(c.Token, opts...), nil

	default:
		return nil, nil
	}
}
