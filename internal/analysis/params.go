package analysis

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"forestwatch/internal/config"
	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

// IndexKind selects which normalized-difference index drives the run.
type IndexKind string

const (
	// IndexNDVI compares near-infrared against red, the general
	// vegetation-health index.
	IndexNDVI IndexKind = "ndvi"
	// IndexNBR compares near-infrared against shortwave-infrared, more
	// sensitive to burn scars.
	IndexNBR IndexKind = "nbr"
)

// Bands returns the (A, B) band pair for NormalizedDifference.
func (k IndexKind) Bands() (bandA, bandB string, err error) {
	switch k {
	case IndexNDVI:
		return raster.BandNIR, raster.BandRed, nil
	case IndexNBR:
		return raster.BandNIR, raster.BandSWIR, nil
	default:
		return "", "", types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown analysis index %q", k), nil)
	}
}

// Params is the run-scoped, immutable parameter set for one analysis pass.
// There are no package-level tunables; every run carries its own values.
type Params struct {
	ReferenceDate     time.Time
	LookbackDays      int
	DecreaseThreshold float64
	IncreaseThreshold float64
	CloudCeilingPct   float64
	MinAreaAcres      float64
	Index             IndexKind
	ScaleMeters       float64
	MaxPixels         float64
}

// ParamsFromConfig resolves config into run parameters. An explicit
// REFERENCE_DATE is parsed as YYYY-MM-DD; otherwise the injected clock
// supplies "today". The result is validated before being returned so bad
// settings fail here, before any external service is contacted.
func ParamsFromConfig(cfg config.AnalysisConfig, clock clockwork.Clock) (Params, error) {
	var reference time.Time
	if cfg.ReferenceDate != "" {
		parsed, err := types.ParseDate(cfg.ReferenceDate)
		if err != nil {
			return Params{}, err
		}
		reference = parsed
	} else {
		reference = midnightUTC(clock.Now())
	}

	p := Params{
		ReferenceDate:     reference,
		LookbackDays:      cfg.LookbackDays,
		DecreaseThreshold: cfg.DecreaseThreshold,
		IncreaseThreshold: cfg.IncreaseThreshold,
		CloudCeilingPct:   cfg.CloudCeilingPct,
		MinAreaAcres:      cfg.MinAreaAcres,
		Index:             IndexKind(cfg.Index),
		ScaleMeters:       cfg.ScaleMeters,
		MaxPixels:         cfg.MaxPixels,
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate enforces the parameter invariants. Runner calls this again
// before doing any work, so hand-built Params get the same checks as
// config-derived ones.
func (p Params) Validate() error {
	if p.LookbackDays < compositeWindowDays {
		return types.NewAppError(types.ErrCodeConfigLookbackTooShort,
			fmt.Sprintf("lookback of %d days is shorter than the %d-day composite window", p.LookbackDays, compositeWindowDays), nil)
	}
	if p.DecreaseThreshold >= 0 || p.IncreaseThreshold <= 0 {
		return types.NewAppError(types.ErrCodeConfigThresholdSign,
			fmt.Sprintf("thresholds must straddle zero, got decrease=%g increase=%g",
				p.DecreaseThreshold, p.IncreaseThreshold), nil)
	}
	if p.CloudCeilingPct < 0 || p.CloudCeilingPct > 100 {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("cloud ceiling must be a percentage, got %g", p.CloudCeilingPct), nil)
	}
	if p.MinAreaAcres <= 0 {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("minimum area must be positive, got %g", p.MinAreaAcres), nil)
	}
	if _, _, err := p.Index.Bands(); err != nil {
		return err
	}
	if p.ScaleMeters <= 0 {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("ground resolution must be positive, got %g", p.ScaleMeters), nil)
	}
	if p.MaxPixels <= 0 {
		return types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("max pixels must be positive, got %g", p.MaxPixels), nil)
	}
	if p.ReferenceDate.IsZero() {
		return types.NewAppError(types.ErrCodeConfigInvalidDate, "reference date is not set", nil)
	}
	return nil
}
