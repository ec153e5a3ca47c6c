package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"forestwatch/internal/types"
)

// Metric and dimension names emitted per run.
const (
	MetricScenesFound = "ScenesFound"
	MetricAlertCount  = "AlertCount"
	MetricRunDuration = "RunDuration"
	MetricRunOutcome  = "RunOutcome"

	DimWindow   = "Window"
	DimSeverity = "Severity"
	DimOutcome  = "Outcome"
)

// RunMetrics receives run telemetry. Implementations must never fail the
// pipeline; a lost metric is logged and forgotten.
type RunMetrics interface {
	RecordScenes(ctx context.Context, window string, count int)
	RecordAlerts(ctx context.Context, severity types.Severity, count int)
	RecordOutcome(ctx context.Context, outcome Outcome, duration time.Duration)
}

// NoopRunMetrics drops all telemetry. Used by the CLI and in tests.
type NoopRunMetrics struct{}

var _ RunMetrics = NoopRunMetrics{}

func (NoopRunMetrics) RecordScenes(context.Context, string, int)              {}
func (NoopRunMetrics) RecordAlerts(context.Context, types.Severity, int)      {}
func (NoopRunMetrics) RecordOutcome(context.Context, Outcome, time.Duration)  {}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchRunMetrics implements RunMetrics.
var _ RunMetrics = (*CloudWatchRunMetrics)(nil)

// CloudWatchRunMetrics publishes run telemetry to a CloudWatch namespace.
// Emission failures are logged and swallowed so a metrics outage can never
// break an analysis run.
type CloudWatchRunMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

func NewCloudWatchRunMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRunMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRunMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordScenes emits the qualifying scene count for one composite window.
func (m *CloudWatchRunMetrics) RecordScenes(ctx context.Context, window string, count int) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricScenesFound),
		Value:      aws.Float64(float64(count)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimWindow), Value: aws.String(window)},
		},
	})
}

// RecordAlerts emits the alert count for one severity.
func (m *CloudWatchRunMetrics) RecordAlerts(ctx context.Context, severity types.Severity, count int) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricAlertCount),
		Value:      aws.Float64(float64(count)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimSeverity), Value: aws.String(string(severity))},
		},
	})
}

// RecordOutcome emits the run outcome as a count plus the wall-clock
// duration in milliseconds.
func (m *CloudWatchRunMetrics) RecordOutcome(ctx context.Context, outcome Outcome, duration time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricRunOutcome),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimOutcome), Value: aws.String(string(outcome))},
		},
	}, cwtypes.MetricDatum{
		MetricName: aws.String(MetricRunDuration),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimOutcome), Value: aws.String(string(outcome))},
		},
	})
}

func (m *CloudWatchRunMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to publish run metrics", "error", err)
	}
}
