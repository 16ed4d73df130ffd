package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/buildgate/pkg/domain/model"
)

// Policy holds the build decision policy configuration
type Policy struct {
	IgnoredAuthors     string
	AllowIfNotExcluded bool
	File               string
}

// Flags returns CLI flags for policy configuration
func (c *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "ignored-authors",
			Usage:       "Comma separated author identities whose commits do not trigger builds",
			Destination: &c.IgnoredAuthors,
			Sources:     cli.EnvVars("BUILDGATE_IGNORED_AUTHORS"),
		},
		&cli.BoolFlag{
			Name:        "allow-build-if-not-excluded-author",
			Usage:       "Build when any commit is by a non-ignored author, instead of skipping when any commit is by an ignored one",
			Destination: &c.AllowIfNotExcluded,
			Sources:     cli.EnvVars("BUILDGATE_ALLOW_BUILD_IF_NOT_EXCLUDED_AUTHOR"),
		},
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "TOML file with per repository policies. Overrides the other policy flags",
			Destination: &c.File,
			Sources:     cli.EnvVars("BUILDGATE_POLICY_FILE"),
		},
	}
}

// Build returns the policy set described by the flags or the policy file
func (c *Policy) Build() (*model.PolicySet, error) {
	if c.File == "" {
		return model.NewPolicySet(model.StrategyIgnoreCommitter, model.ParseAuthorPolicy(c.IgnoredAuthors, c.AllowIfNotExcluded)), nil
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", c.File))
	}

	set, err := model.ParsePolicySet(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", c.File))
	}
	return set, nil
}
