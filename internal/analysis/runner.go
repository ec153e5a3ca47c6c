package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

// ImageryGateway supplies median composites for a region and window. The
// gateway owns transport, retries, and any internal fan-out; the runner
// only ever sees a finished composite or an error.
type ImageryGateway interface {
	FetchComposite(ctx context.Context, region types.Region, window types.DateWindow,
		cloudCeilingPct float64) (*raster.Composite, error)
}

// Outcome is the terminal state of a run.
type Outcome string

const (
	// OutcomeCompleted means the pipeline ran to the end and produced an
	// alert list (possibly empty).
	OutcomeCompleted Outcome = "completed"
	// OutcomeNoImagery means a composite window had zero qualifying
	// scenes. The run ends cleanly with no alerts and no artifact.
	OutcomeNoImagery Outcome = "no_imagery"
)

// Result is everything a caller needs to report on a finished run.
type Result struct {
	RunID          string
	Outcome        Outcome
	Alerts         []types.Alert
	BaselineWindow types.DateWindow
	CurrentWindow  types.DateWindow
	BaselineScenes int
	CurrentScenes  int
}

// Runner drives one full analysis pass. The pipeline is strictly
// sequential at this level: each stage consumes its inputs entirely before
// the next begins. Collaborators may parallelize internally.
type Runner struct {
	gateway   ImageryGateway
	extractor *Extractor
	metrics   RunMetrics
	clock     clockwork.Clock
	logger    *slog.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithClock injects a clock, letting tests pin "now".
func WithClock(clock clockwork.Clock) RunnerOption {
	return func(r *Runner) { r.clock = clock }
}

// WithMetrics injects a telemetry sink.
func WithMetrics(metrics RunMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = metrics }
}

// WithLogger injects the base logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

func NewRunner(gateway ImageryGateway, vectorizer Vectorizer, opts ...RunnerOption) *Runner {
	r := &Runner{
		gateway: gateway,
		metrics: NoopRunMetrics{},
		clock:   clockwork.NewRealClock(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.extractor = NewExtractor(vectorizer, r.logger)
	return r
}

// Run executes windows -> fetch -> index -> classify -> extract -> alerts.
// Parameters are validated before any external call. The baseline window
// is fetched first; if either window has no qualifying imagery the run
// ends with OutcomeNoImagery and a nil error, since a quiet sky is an
// answer, not a failure.
func (r *Runner) Run(ctx context.Context, params Params, region types.Region) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)
	logger := r.logger.With("run_id", runID)
	start := r.clock.Now()

	baselineWin, currentWin, err := SelectWindows(params.ReferenceDate, params.LookbackDays)
	if err != nil {
		return nil, err
	}
	result := &Result{
		RunID:          runID,
		BaselineWindow: baselineWin,
		CurrentWindow:  currentWin,
	}

	logger.Info("starting change analysis",
		"region_source", region.Source,
		"index", params.Index,
		"baseline_window", baselineWin.String(),
		"current_window", currentWin.String(),
	)

	baseline, err := r.gateway.FetchComposite(ctx, region, baselineWin, params.CloudCeilingPct)
	if err != nil {
		if types.IsCode(err, types.ErrCodeDataUnavailable) {
			return r.finishNoImagery(ctx, logger, result, "baseline", start), nil
		}
		return nil, err
	}
	result.BaselineScenes = baseline.SceneCount
	r.metrics.RecordScenes(ctx, "baseline", baseline.SceneCount)
	logger.Info("baseline composite ready", "scenes", baseline.SceneCount)

	current, err := r.gateway.FetchComposite(ctx, region, currentWin, params.CloudCeilingPct)
	if err != nil {
		if types.IsCode(err, types.ErrCodeDataUnavailable) {
			return r.finishNoImagery(ctx, logger, result, "current", start), nil
		}
		return nil, err
	}
	result.CurrentScenes = current.SceneCount
	r.metrics.RecordScenes(ctx, "current", current.SceneCount)
	logger.Info("current composite ready", "scenes", current.SceneCount)

	bandA, bandB, err := params.Index.Bands()
	if err != nil {
		return nil, err
	}
	baselineIndex, err := raster.NormalizedDifference(baseline, bandA, bandB)
	if err != nil {
		return nil, err
	}
	currentIndex, err := raster.NormalizedDifference(current, bandA, bandB)
	if err != nil {
		return nil, err
	}

	damageMask, recoveryMask, err := raster.Classify(baselineIndex, currentIndex,
		params.DecreaseThreshold, params.IncreaseThreshold)
	if err != nil {
		return nil, err
	}
	logger.Debug("classified index change",
		"damage_pixels", damageMask.Count(), "recovery_pixels", recoveryMask.Count())

	damage, err := r.extractor.Extract(ctx, damageMask, region, types.FeatureKindDamage, params)
	if err != nil {
		return nil, err
	}
	recovery, err := r.extractor.Extract(ctx, recoveryMask, region, types.FeatureKindRecovery, params)
	if err != nil {
		return nil, err
	}

	result.Alerts = BuildAlerts(damage, recovery, currentWin.End)
	result.Outcome = OutcomeCompleted

	counts := map[types.Severity]int{}
	for _, a := range result.Alerts {
		counts[a.Severity]++
	}
	for _, severity := range []types.Severity{types.SeverityHigh, types.SeverityMedium, types.SeverityPositive} {
		r.metrics.RecordAlerts(ctx, severity, counts[severity])
	}
	r.metrics.RecordOutcome(ctx, OutcomeCompleted, r.clock.Now().Sub(start))

	logger.Info("analysis run completed",
		"alerts", len(result.Alerts),
		"high", counts[types.SeverityHigh],
		"medium", counts[types.SeverityMedium],
		"positive", counts[types.SeverityPositive],
	)
	return result, nil
}

func (r *Runner) finishNoImagery(ctx context.Context, logger *slog.Logger, result *Result, window string, start time.Time) *Result {
	result.Outcome = OutcomeNoImagery
	r.metrics.RecordOutcome(ctx, OutcomeNoImagery, r.clock.Now().Sub(start))
	logger.Warn("insufficient imagery available", "window", window)
	return result
}
