package external

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"forestwatch/internal/analysis"
	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

// ---------------------------------------------------------------------------
// Stub Implementations
//
// Stub implementations let the pipeline run in local mode without real
// Copernicus credentials or a reachable vectorizer. They log all actions
// and return predictable, safe default values.
// ---------------------------------------------------------------------------

// stubGridDim is the side length of the synthetic composite the stub
// gateway returns. Small enough that a local run finishes instantly.
const stubGridDim = 16

// StubImageryGateway implements analysis.ImageryGateway by returning a
// uniform healthy-canopy composite for every window. Identical baseline
// and current composites mean a local run completes with zero alerts.
// Used when IMAGERY_PROVIDER=stub or APP_ENV=local.
type StubImageryGateway struct {
	logger *slog.Logger
}

// NewStubImageryGateway creates a new StubImageryGateway.
func NewStubImageryGateway(logger *slog.Logger) *StubImageryGateway {
	return &StubImageryGateway{logger: logger}
}

func (s *StubImageryGateway) FetchComposite(ctx context.Context, region types.Region, window types.DateWindow, maxCloudPct float64) (*raster.Composite, error) {
	s.logger.InfoContext(ctx, "stub: FetchComposite called",
		"window", window.String(),
		"max_cloud_pct", maxCloudPct,
	)

	bound := region.Bound()
	transform := raster.GeoTransform{
		OriginX:     bound.Min.Lon(),
		OriginY:     bound.Max.Lat(),
		PixelWidth:  (bound.Max.Lon() - bound.Min.Lon()) / stubGridDim,
		PixelHeight: -(bound.Max.Lat() - bound.Min.Lat()) / stubGridDim,
	}

	fill := func(v float64) *raster.Grid {
		g := raster.NewGrid(stubGridDim, stubGridDim, transform)
		g.Fill(v)
		return g
	}

	return &raster.Composite{
		Bands: map[string]*raster.Grid{
			raster.BandRed:  fill(0.1),
			raster.BandNIR:  fill(0.5),
			raster.BandSWIR: fill(0.1),
		},
		SceneCount: 3,
		Window:     window,
	}, nil
}

// StubVectorizer implements analysis.Vectorizer by logging calls and
// returning one fixed polygon when the mask has any set pixel. Used when
// VECTORIZER_PROVIDER=stub or APP_ENV=local.
type StubVectorizer struct {
	logger *slog.Logger
}

// NewStubVectorizer creates a new StubVectorizer.
func NewStubVectorizer(logger *slog.Logger) *StubVectorizer {
	return &StubVectorizer{logger: logger}
}

func (s *StubVectorizer) Polygonize(ctx context.Context, req analysis.VectorizeRequest) ([]orb.Polygon, error) {
	setPixels := req.Mask.Count()
	s.logger.InfoContext(ctx, "stub: Polygonize called",
		"width", req.Mask.Width,
		"height", req.Mask.Height,
		"set_pixels", setPixels,
	)

	if setPixels == 0 {
		return []orb.Polygon{}, nil
	}

	// One hundredth of a degree per side, anchored at the mask origin.
	o := req.Mask.Transform
	return []orb.Polygon{{orb.Ring{
		{o.OriginX, o.OriginY},
		{o.OriginX + 0.01, o.OriginY},
		{o.OriginX + 0.01, o.OriginY - 0.01},
		{o.OriginX, o.OriginY - 0.01},
		{o.OriginX, o.OriginY},
	}}}, nil
}

// ---------------------------------------------------------------------------
// Interface Compliance
// ---------------------------------------------------------------------------

var _ analysis.ImageryGateway = (*StubImageryGateway)(nil)
var _ analysis.Vectorizer = (*StubVectorizer)(nil)
