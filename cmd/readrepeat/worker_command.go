package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"readrepeat/internal/align"
	"readrepeat/internal/config"
	"readrepeat/internal/jobs"
	"readrepeat/internal/lesson"
	"readrepeat/internal/logging"
	"readrepeat/internal/notifications"
	"readrepeat/internal/observe"
	"readrepeat/internal/preflight"
	"readrepeat/internal/queue"
	"readrepeat/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var source string
	var once bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Poll for lesson jobs and process them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.Worker.Source
			}
			source = strings.ToLower(strings.TrimSpace(source))
			if source != "api" && source != "queue" {
				return fmt.Errorf("--source must be api or queue, got %q", source)
			}
			return runWorker(cmd.Context(), cfg, source, once)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Job source: api or queue (defaults to worker.source)")
	cmd.Flags().BoolVar(&once, "once", false, "Process at most one job and exit")
	return cmd
}

func runWorker(parent context.Context, cfg *config.Config, source string, once bool) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	provider, err := observe.InitProvider()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = provider.Shutdown(shutdownCtx)
	}()

	jobSource, closeSource, err := openSource(cfg, source, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	aligner := align.New(
		align.WithLogger(logging.NewComponentLogger(logger, "align")),
		align.WithObserver(provider.Metrics.AlignmentObserver()),
	)
	processor, err := lesson.New(cfg, lesson.WithLogger(logger), lesson.WithAligner(aligner))
	if err != nil {
		return err
	}

	runCfg := *cfg
	runCfg.Worker.Source = source
	w, err := worker.New(&runCfg, jobSource, jobs.DefaultRegistry(processor, logger),
		worker.WithLogger(logger),
		worker.WithMetrics(provider.Metrics),
		worker.WithNotifier(notifications.NewService(&runCfg)),
		worker.WithPreflight(func(ctx context.Context) []preflight.Result {
			return preflight.RunAll(ctx, &runCfg)
		}),
	)
	if err != nil {
		return err
	}

	if once {
		handled, err := w.RunOnce(signalCtx)
		if err != nil {
			return err
		}
		if !handled {
			logger.Info("no job available")
		}
		return nil
	}

	server := observe.NewServer(cfg.Worker.MetricsAddr, provider.Handler(), func(ctx context.Context) any {
		return w.Status(ctx)
	}, logging.NewComponentLogger(logger, "observe"))
	if err := server.Start(signalCtx); err != nil {
		return err
	}
	defer server.Stop()

	logger.Info("worker starting",
		logging.String("source", source),
		logging.String("metrics_addr", server.Addr()),
	)
	return w.Run(signalCtx)
}

func openSource(cfg *config.Config, source string, logger *slog.Logger) (jobs.Source, func(), error) {
	if source == "queue" {
		store, err := queue.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return jobs.NewQueueSource(store, logging.NewComponentLogger(logger, "queue")), func() { _ = store.Close() }, nil
	}
	client := jobs.NewAPIClient(cfg.API.BaseURL, cfg.RequestTimeout(), nil, logging.NewComponentLogger(logger, "api"))
	return client, func() {}, nil
}
