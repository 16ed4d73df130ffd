package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/buildgate/pkg/cli/config"
	controller "github.com/m-mizutani/buildgate/pkg/controller/http"
	"github.com/m-mizutani/buildgate/pkg/domain/interfaces"
	"github.com/m-mizutani/buildgate/pkg/infra/metrics"
	"github.com/m-mizutani/buildgate/pkg/usecase"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		slackCfg  config.Slack
		policyCfg config.Policy
	)

	flags := append(serverCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server receiving GitHub push webhooks",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting buildgate server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("github", githubCfg),
			)

			webhookUC, recorder, err := buildWebhookUseCase(ctx, &githubCfg, &slackCfg, &policyCfg)
			if err != nil {
				return err
			}

			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithMetricsHandler(recorder.Handler()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

// buildWebhookUseCase wires policies, strategies and adapters for the server
func buildWebhookUseCase(ctx context.Context, githubCfg *config.GitHub, slackCfg *config.Slack, policyCfg *config.Policy) (interfaces.WebhookUseCase, *metrics.PrometheusRecorder, error) {
	logger := ctxlog.From(ctx)

	policies, err := policyCfg.Build()
	if err != nil {
		return nil, nil, err
	}

	recorder := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	registry := usecase.DefaultStrategyRegistry(recorder)
	if err := registry.Validate(policies.Strategies()...); err != nil {
		return nil, nil, err
	}

	opts := []usecase.WebhookOption{
		usecase.WithPolicySet(policies),
		usecase.WithStrategyRegistry(registry),
	}

	githubClient, err := githubCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	if githubClient != nil {
		opts = append(opts,
			usecase.WithChangesetSource(githubClient),
			usecase.WithBuildTrigger(githubClient),
		)
	} else {
		logger.Warn("No GitHub credentials, using push payload commits and not dispatching builds")
	}

	notifier, err := slackCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}

	return usecase.NewWebhook(opts...), recorder, nil
}
