// Package main is the entrypoint for the Analysis Worker Lambda function.
//
// The worker runs on an EventBridge schedule and performs the same pipeline
// as the analyzer CLI: composite the baseline and current windows, classify
// the index change, vectorize, and publish the ranked alert document to S3.
// Run telemetry goes to CloudWatch when METRICS_ENABLED is set.
//
// This file handles dependency wiring (cold start) and delegates the pipeline
// to internal/analysis. The event payload may carry a reference_date override
// so an operator can re-run a historical window without redeploying.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"forestwatch/internal/analysis"
	"forestwatch/internal/config"
	"forestwatch/internal/export"
	"forestwatch/internal/external"
	"forestwatch/internal/region"
	"forestwatch/internal/types"
)

// WorkerInput is the EventBridge payload for one invocation. The zero value
// runs a normal scheduled analysis ending today.
type WorkerInput struct {
	// ReferenceDate overrides the analysis end date (YYYY-MM-DD) for
	// backfills and re-runs of historical windows.
	ReferenceDate string `json:"reference_date"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("analysis worker initializing (cold start)")

	// Secrets live in SSM Parameter Store in deployed environments and are
	// referenced via _SSM_PARAM suffix variables; LoadConfig resolves them
	// before populating the struct.
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	area, err := region.Resolve(cfg.Region, "")
	if err != nil {
		if !types.IsCode(err, types.ErrCodePartialBoundary) {
			logger.Error("failed to resolve analysis region", "error", err)
			os.Exit(1)
		}
		logger.Warn("boundary file unusable, continuing with bounding box", "error", err)
	}

	var metrics analysis.RunMetrics = analysis.NoopRunMetrics{}
	if cfg.AWS.MetricsEnabled {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = analysis.NewCloudWatchRunMetrics(cwClient, cfg.AWS.MetricNamespace, logger)
	}

	clock := clockwork.NewRealClock()
	clients := external.NewClientRegistry(cfg, logger)
	runner := analysis.NewRunner(clients.Imagery, clients.Vectorizer,
		analysis.WithClock(clock),
		analysis.WithMetrics(metrics),
		analysis.WithLogger(logger),
	)

	var publisher *export.Publisher
	if cfg.Output.S3Bucket != "" {
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
				o.UsePathStyle = true
			}
		})
		publisher = export.NewPublisher(s3Client, cfg.Output.S3Bucket, cfg.Output.S3Prefix, logger)
	}

	logger.Info("analysis worker initialized",
		"environment", cfg.Environment,
		"index", cfg.Analysis.Index,
		"output_bucket", cfg.Output.S3Bucket,
		"metrics_enabled", cfg.AWS.MetricsEnabled,
	)

	lambda.Start(newHandler(cfg, area, runner, publisher, clock, logger))
}

// newHandler creates the Lambda handler for WorkerInput events. Parameters
// are rebuilt per invocation so the schedule picks up "today" from the clock
// and the payload can override the reference date.
func newHandler(cfg *config.Config, area types.Region, runner *analysis.Runner, publisher *export.Publisher, clock clockwork.Clock, logger *slog.Logger) func(ctx context.Context, input WorkerInput) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, input WorkerInput) (string, error) {
		logger.InfoContext(ctx, "analysis worker invoked",
			"reference_date", input.ReferenceDate,
		)

		analysisCfg := cfg.Analysis
		if input.ReferenceDate != "" {
			analysisCfg.ReferenceDate = input.ReferenceDate
		}

		params, err := analysis.ParamsFromConfig(analysisCfg, clock)
		if err != nil {
			logger.ErrorContext(ctx, "invalid analysis parameters", "error", err)
			return "", err
		}

		result, err := runner.Run(ctx, params, area)
		if err != nil {
			logger.ErrorContext(ctx, "analysis run failed", "error", err, "run_id", types.RunID(ctx))
			return "", fmt.Errorf("analysis run failed: %w", err)
		}

		if result.Outcome == analysis.OutcomeNoImagery {
			summary := fmt.Sprintf("analysis aborted: no qualifying imagery (baseline=%d current=%d scenes)",
				result.BaselineScenes, result.CurrentScenes)
			logger.InfoContext(ctx, summary, "run_id", result.RunID)
			return summary, nil
		}

		doc := export.NewDocument(result.Alerts, clock.Now())
		data, err := doc.Render()
		if err != nil {
			return "", fmt.Errorf("rendering alert document: %w", err)
		}

		if publisher != nil {
			key, err := publisher.Publish(ctx, data, result.CurrentWindow.EndDate())
			if err != nil {
				return "", fmt.Errorf("publishing alert document: %w", err)
			}
			logger.InfoContext(ctx, "alert document published", "key", key, "alerts", len(result.Alerts))
		} else if err := export.WriteFile(cfg.Output.Path, data); err != nil {
			return "", fmt.Errorf("writing alert document: %w", err)
		}

		summary := fmt.Sprintf("analysis complete: %d alerts for %s", len(result.Alerts), result.CurrentWindow.EndDate())
		logger.InfoContext(ctx, summary, "run_id", result.RunID)
		return summary, nil
	}
}
