package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/buildgate/pkg/cli/config"
	"github.com/m-mizutani/buildgate/pkg/domain/model"
	gitinfra "github.com/m-mizutani/buildgate/pkg/infra/git"
	"github.com/m-mizutani/buildgate/pkg/usecase"
)

// exitCodeSkipped is returned by decide --exit-code when the build is skipped
const exitCodeSkipped = 3

func cmdDecide() *cli.Command {
	var (
		policyCfg  config.Policy
		repoPath   string
		before     string
		after      string
		repository string
		branch     string
		exitCode   bool
	)

	flags := append([]cli.Flag{
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Path to the local git repository",
			Value:       ".",
			Destination: &repoPath,
			Sources:     cli.EnvVars("BUILDGATE_REPO"),
		},
		&cli.StringFlag{
			Name:        "before",
			Usage:       "Previous revision of the branch",
			Value:       "HEAD~1",
			Destination: &before,
		},
		&cli.StringFlag{
			Name:        "after",
			Usage:       "Current revision of the branch",
			Value:       "HEAD",
			Destination: &after,
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "owner/name used for policy lookup (default: local/<directory name>)",
			Destination: &repository,
			Sources:     cli.EnvVars("BUILDGATE_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "branch",
			Usage:       "Branch name used for policy lookup",
			Destination: &branch,
			Sources:     cli.EnvVars("BUILDGATE_BRANCH"),
		},
		&cli.BoolFlag{
			Name:        "exit-code",
			Usage:       fmt.Sprintf("Exit with status %d when the build is skipped", exitCodeSkipped),
			Destination: &exitCode,
		},
	}, policyCfg.Flags()...)

	return &cli.Command{
		Name:    "decide",
		Aliases: []string{"d"},
		Usage:   "Decide whether a range of local commits should be built",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			policies, err := policyCfg.Build()
			if err != nil {
				return err
			}

			source, err := gitinfra.Open(repoPath)
			if err != nil {
				return err
			}

			update, err := localUpdate(repoPath, repository, branch, before, after)
			if err != nil {
				return err
			}

			resolved := policies.Lookup(update.FullName(), update.Branch)
			strategy, err := usecase.DefaultStrategyRegistry(nil).New(resolved.Strategy, source, resolved.Authors)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Debug("Evaluating local branch update",
				slog.String("repository", update.FullName()),
				slog.String("branch", update.Branch),
				slog.String("strategy", resolved.Strategy),
			)

			decision := strategy.Decide(ctx, update)
			printDecision(c.Root().Writer, update, decision)

			if exitCode && !decision.Build {
				return cli.Exit("", exitCodeSkipped)
			}
			return nil
		},
	}
}

func localUpdate(repoPath, repository, branch, before, after string) (*model.BranchUpdate, error) {
	if repository == "" {
		abs, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve repository path", goerr.V("path", repoPath))
		}
		repository = "local/" + filepath.Base(abs)
	}

	owner, name, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || name == "" {
		return nil, goerr.New("repository must be owner/name", goerr.V("repository", repository))
	}

	return &model.BranchUpdate{
		Owner:  owner,
		Repo:   name,
		Branch: branch,
		Before: before,
		After:  after,
	}, nil
}

func printDecision(w io.Writer, update *model.BranchUpdate, decision *model.Decision) {
	verdict := color.New(color.FgGreen, color.Bold).Sprint("BUILD")
	if !decision.Build {
		verdict = color.New(color.FgYellow, color.Bold).Sprint("SKIP")
	}

	fmt.Fprintf(w, "%s %s %s..%s (%s)\n", verdict, update.FullName(), update.Before, update.After, decision.Reason)
	if decision.Commit != nil {
		fmt.Fprintf(w, "  commit %s by %s\n", decision.Commit.ID, decision.Commit.Author)
	}
	if decision.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("error:"), decision.Error)
	}
	fmt.Fprintf(w, "  decision %s, %d commit(s) scanned\n", decision.ID, decision.Scanned)
}
