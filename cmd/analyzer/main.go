// Package main is the entry point for the forestwatch analyzer CLI.
//
// It runs one vegetation change analysis end to end: resolve the analysis
// region, build baseline and current composites from Sentinel-2 imagery,
// classify the index change, vectorize the classified masks, and write the
// ranked alert document. The operator report is printed to stdout; structured
// logs go to stderr so the two streams can be separated.
//
// Usage:
//
//	analyzer [boundary.geojson]
//
// The optional positional argument overrides the BOUNDARY_FILE setting for
// this run. Exit code 0 means the run finished, including runs that stopped
// because a composite window had no qualifying imagery. Exit code 1 means a
// configuration or upstream failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"forestwatch/internal/analysis"
	"forestwatch/internal/config"
	"forestwatch/internal/export"
	"forestwatch/internal/external"
	"forestwatch/internal/region"
	"forestwatch/internal/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// run encapsulates the full run lifecycle so that main() can cleanly exit on
// error.
func run(args []string) error {
	fs := flag.NewFlagSet("analyzer", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: analyzer [boundary.geojson]")
		fmt.Fprintln(os.Stderr, "\nAll tuning is via environment variables (see internal/config).")
		fmt.Fprintln(os.Stderr, "The optional positional argument overrides BOUNDARY_FILE.")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	boundaryOverride := fs.Arg(0)

	// The SSM provider is lazy and never contacted when APP_ENV=local or no
	// _SSM_PARAM variables are set, so it is safe to pass unconditionally.
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("forestwatch analyzer starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
	)

	area, err := region.Resolve(cfg.Region, boundaryOverride)
	if err != nil {
		if !types.IsCode(err, types.ErrCodePartialBoundary) {
			return err
		}
		logger.Warn("boundary file unusable, continuing with bounding box", "error", err)
	}
	logger.Info("analysis region resolved", "source", area.Source)

	clock := clockwork.NewRealClock()
	params, err := analysis.ParamsFromConfig(cfg.Analysis, clock)
	if err != nil {
		return err
	}

	clients := external.NewClientRegistry(cfg, logger)
	runner := analysis.NewRunner(clients.Imagery, clients.Vectorizer,
		analysis.WithClock(clock),
		analysis.WithLogger(logger),
	)

	// Ctrl-C cancels in-flight upstream calls instead of leaving them to
	// time out on their own.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, params, area)
	if err != nil {
		return err
	}

	// A run aborted for lack of imagery produces a report but no artifact;
	// the previous alert document stays in place untouched.
	if result.Outcome == analysis.OutcomeCompleted {
		doc := export.NewDocument(result.Alerts, clock.Now())
		data, err := doc.Render()
		if err != nil {
			return err
		}
		if err := export.WriteFile(cfg.Output.Path, data); err != nil {
			return err
		}
		logger.Info("alert document written", "path", cfg.Output.Path, "alerts", len(result.Alerts))

		if cfg.Output.S3Bucket != "" {
			if err := publish(ctx, cfg, data, result, logger); err != nil {
				return err
			}
		}
	}

	export.WriteReport(os.Stdout, result, cfg.Output.ReportTopCount)
	return nil
}

// publish uploads the rendered alert document to the configured S3 bucket in
// addition to the local file.
func publish(ctx context.Context, cfg *config.Config, data []byte, result *analysis.Result, logger *slog.Logger) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			o.UsePathStyle = true
		}
	})

	publisher := export.NewPublisher(client, cfg.Output.S3Bucket, cfg.Output.S3Prefix, logger)
	key, err := publisher.Publish(ctx, data, result.CurrentWindow.EndDate())
	if err != nil {
		return err
	}
	logger.Info("alert document published", "bucket", cfg.Output.S3Bucket, "key", key)
	return nil
}

// exitCode maps a run error to the process exit status. AppError codes carry
// their own mapping; anything else is a setup failure.
func exitCode(err error) int {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	// Text to stderr: stdout is reserved for the operator report.
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
