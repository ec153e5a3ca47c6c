package analysis

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

// acresPerSquareMeter converts geodesic areas to the acres the alert
// contract is expressed in.
const acresPerSquareMeter = 0.000247105

// highSeverityAcres is the damage size above which an alert is high
// severity rather than medium. Strictly above: exactly this size stays
// medium.
const highSeverityAcres = 20.0

// GeometryTypePolygon is the only geometry type the pipeline requests from
// the vectorizer.
const GeometryTypePolygon = "polygon"

// VectorizeRequest asks a vectorizer to trace the set pixels of a mask
// into polygons, georeferenced via the mask's transform and clipped to the
// region.
type VectorizeRequest struct {
	Mask                   *raster.Mask
	Region                 types.Region
	GroundResolutionMeters float64
	MaxPixels              float64
	GeometryType           string
}

// Vectorizer turns a raster mask into polygon geometries. Implementations
// own their transport, timeouts, and retries.
type Vectorizer interface {
	Polygonize(ctx context.Context, req VectorizeRequest) ([]orb.Polygon, error)
}

// Extractor converts classified masks into sized, located change features.
type Extractor struct {
	vectorizer Vectorizer
	logger     *slog.Logger
}

func NewExtractor(vectorizer Vectorizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{vectorizer: vectorizer, logger: logger}
}

// Extract polygonizes a mask and measures each polygon. Features smaller
// than the minimum area are dropped (the boundary size itself survives).
// Survivors come back in canonical order: area descending, ties broken by
// centroid latitude then longitude, so downstream ids are reproducible
// regardless of the order the vectorizer emits polygons in.
func (e *Extractor) Extract(ctx context.Context, mask *raster.Mask, region types.Region, kind types.FeatureKind, p Params) ([]types.ChangeFeature, error) {
	polygons, err := e.vectorizer.Polygonize(ctx, VectorizeRequest{
		Mask:                   mask,
		Region:                 region,
		GroundResolutionMeters: p.ScaleMeters,
		MaxPixels:              p.MaxPixels,
		GeometryType:           GeometryTypePolygon,
	})
	if err != nil {
		return nil, err
	}

	features := make([]types.ChangeFeature, 0, len(polygons))
	dropped := 0
	for _, polygon := range polygons {
		acres := math.Abs(geo.Area(polygon)) * acresPerSquareMeter
		if acres < p.MinAreaAcres {
			dropped++
			continue
		}

		centroid, _ := planar.CentroidArea(polygon)
		features = append(features, types.ChangeFeature{
			Geometry:  polygon,
			Centroid:  centroid,
			AreaAcres: acres,
			Kind:      kind,
			Severity:  severityFor(kind, acres),
		})
	}

	sort.SliceStable(features, func(i, j int) bool {
		return lessCanonical(features[i], features[j])
	})

	e.logger.Debug("extracted change features",
		"kind", kind, "kept", len(features), "dropped_below_min_area", dropped)
	return features, nil
}

// lessCanonical orders features by area descending, breaking ties by
// centroid latitude then longitude.
func lessCanonical(a, b types.ChangeFeature) bool {
	if a.AreaAcres != b.AreaAcres {
		return a.AreaAcres > b.AreaAcres
	}
	if a.Centroid[1] != b.Centroid[1] {
		return a.Centroid[1] < b.Centroid[1]
	}
	return a.Centroid[0] < b.Centroid[0]
}

func severityFor(kind types.FeatureKind, acres float64) types.Severity {
	if kind == types.FeatureKindRecovery {
		return types.SeverityPositive
	}
	if acres > highSeverityAcres {
		return types.SeverityHigh
	}
	return types.SeverityMedium
}
