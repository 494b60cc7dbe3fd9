// Command radar runs one compliance news pass and writes the briefing.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/okian/compliance-radar/internal/adapters/archive"
	"github.com/okian/compliance-radar/internal/adapters/feed"
	"github.com/okian/compliance-radar/internal/adapters/publish"
	"github.com/okian/compliance-radar/internal/adapters/report"
	app "github.com/okian/compliance-radar/internal/app"
	"github.com/okian/compliance-radar/internal/config"
	"github.com/okian/compliance-radar/pkg/logger"
	"github.com/okian/compliance-radar/pkg/metrics"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without process globals so it can be tested.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := logger.InitWithWriter(stderr); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging: "+err.Error())
		return exitError
	}
	log := logger.Get()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn(ctx, "could not load .env", logger.Error(err))
	}

	cmd, overrides, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "error: "+err.Error())
		return exitUsage
	}

	exec := execute
	if cmd == cmdServe {
		exec = serve
	}
	if err := exec(ctx, overrides, stdout); err != nil {
		fmt.Fprintln(stderr, "error: "+err.Error())
		return exitError
	}
	return exitOK
}

func execute(ctx context.Context, overrides map[string]any, stdout io.Writer) error {
	log := logger.Get()

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := configureMetrics(cfg); err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(ctx, cfg.ConfigDir)
	if err != nil {
		return err
	}

	var publishers []publish.Publisher
	if cfg.PublishersFile != "" {
		pcfgs, err := publish.LoadConfigs(cfg.PublishersFile)
		if err != nil {
			return err
		}
		publishers = publish.DefaultRegistry().BuildAll(ctx, publish.Enabled(pcfgs), logger.Named("publish"))
		defer func() {
			if err := publish.CloseAll(publishers); err != nil {
				log.Warn(ctx, "closing publishers", logger.Error(err))
			}
		}()
	}

	reader := feed.NewReader(
		feed.WithUserAgent(cfg.UserAgent),
		feed.WithRetryCount(cfg.RetryCount),
		feed.WithLogger(logger.Named("feed")),
	)
	svc := app.New(
		app.WithLogger(logger.Named("pipeline")),
		app.WithReader(reader),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithFixtureDir(cfg.SampleDataDir),
	)

	res, err := svc.Run(ctx, app.RunConfig{
		Sources:           catalog.Sources,
		Topics:            catalog.Topics,
		Offline:           cfg.Offline,
		Limit:             cfg.Limit,
		Timeout:           cfg.Timeout(),
		MaxItemsPerSource: cfg.MaxItemsPerSource,
	})
	if err != nil {
		return err
	}

	markdown := report.Markdown(res.Items, res.Topics, res.GeneratedAt)
	payload, err := report.NewPayload(res.Items, res.Topics, res.GeneratedAt, res.RunID).JSON()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if err := writeArtifact(cfg.OutputMarkdown, []byte(markdown)); err != nil {
		return err
	}
	if err := writeArtifact(cfg.OutputJSON, payload); err != nil {
		return err
	}
	if cfg.Print {
		if _, err := io.WriteString(stdout, markdown); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	}

	if cfg.ArchivePath != "" {
		archiveRun(ctx, cfg.ArchivePath, res, payload)
	}

	if len(publishers) > 0 {
		msg := publish.Message{RunID: res.RunID, GeneratedAt: res.GeneratedAt.Format(time.RFC3339), Body: payload}
		if err := publish.Dispatch(ctx, publishers, msg, logger.Named("publish")); err != nil {
			log.Warn(ctx, "some publishers failed", logger.Error(err))
		}
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn(ctx, "failed to write metrics", logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}
	return nil
}

// configureMetrics applies the metrics settings to the global manager.
func configureMetrics(cfg *config.Config) error {
	err := metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return nil
}

// writeArtifact writes data to path, creating parent directories. Disabled
// paths are skipped.
func writeArtifact(path string, data []byte) error {
	if !config.Enabled(path) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // artifacts are meant to be world readable
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	logger.Get().Info(context.Background(), "artifact written", logger.String("path", path))
	return nil
}

// archiveRun stores the payload. Failures are logged, never fatal.
func archiveRun(ctx context.Context, path string, res app.Result, payload []byte) {
	log := logger.Named("archive")
	a, err := archive.Open(path, log)
	if err != nil {
		log.Warn(ctx, "failed to open archive", logger.String("path", path), logger.Error(err))
		metrics.RecordArchiveFailure()
		return
	}
	defer func() { _ = a.Close() }()

	if _, err := a.Save(ctx, res.RunID, res.GeneratedAt, payload); err != nil {
		log.Warn(ctx, "failed to archive run", logger.Error(err))
		metrics.RecordArchiveFailure()
	}
}
