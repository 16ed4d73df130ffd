package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	slackinfra "github.com/m-mizutani/buildgate/pkg/infra/slack"
)

// Slack holds Slack notification configuration
type Slack struct {
	Token   string
	Channel string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack bot token for skipped build notifications",
			Destination: &c.Token,
			Sources:     cli.EnvVars("BUILDGATE_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel for skipped build notifications",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("BUILDGATE_SLACK_CHANNEL"),
		},
	}
}

// Build returns a notifier, or nil if Slack is not configured
func (c *Slack) Build() (*slackinfra.Notifier, error) {
	switch {
	case c.Token == "" && c.Channel == "":
		return nil, nil
	case c.Token == "" || c.Channel == "":
		return nil, goerr.New("slack-token and slack-channel must be set together")
	}
	return slackinfra.New(c.Token, c.Channel), nil
}
