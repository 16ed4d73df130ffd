package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/buildgate/pkg/cli/config"
	"github.com/m-mizutani/buildgate/pkg/domain/types"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	if err := run(ctx, args, os.Stdout); err != nil {
		var exitErr cli.ExitCoder
		if !errors.As(err, &exitErr) {
			slog.Default().Error("CLI execution failed", slog.Any("error", err))
		}
		return err
	}

	return nil
}

// run loads the env files named on the command line, then runs the command tree.
// Flag env sources are resolved while parsing, so the files are read first.
func run(ctx context.Context, args []string, w io.Writer) error {
	var envCfg config.EnvFile
	if err := envCfg.LoadFromArgs(args); err != nil {
		return err
	}

	return newApp(w).Run(ctx, args)
}

func newApp(w io.Writer) *cli.Command {
	var (
		loggerCfg config.Logger
		sentryCfg config.Sentry
		envCfg    config.EnvFile
		flush     = func() {}
	)

	flags := append(loggerCfg.Flags(), sentryCfg.Flags()...)
	flags = append(flags, envCfg.Flags()...)

	return &cli.Command{
		Name:    "buildgate",
		Usage:   "Decide whether a branch update should trigger a build",
		Version: types.Version,
		Flags:   flags,
		Writer:  w,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			if flush, err = sentryCfg.Configure(); err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if flush != nil {
				flush()
			}
			return nil
		},
		// Exit codes are handled by the caller.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			cmdServe(),
			cmdDecide(),
		},
	}
}
