// Package region resolves the analysis area for a run: a GeoJSON boundary
// file when one is configured and readable, otherwise a configured
// bounding box. A boundary file that cannot be used degrades to the box
// with a warning instead of failing the run.
package region

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"forestwatch/internal/config"
	"forestwatch/internal/types"
)

// Resolve returns the region for this run. The returned region is always
// usable. A non-nil error is a partial_boundary AppError meaning the
// requested boundary file could not serve and the bounding box was
// substituted; callers should log it as a warning and continue.
func Resolve(cfg config.RegionConfig, boundaryFile string) (types.Region, error) {
	if boundaryFile == "" {
		boundaryFile = cfg.BoundaryFile
	}

	box, err := boundingBox(cfg)
	if err != nil {
		return types.Region{}, err
	}
	fallback := types.Region{Geometry: box, Source: types.RegionSourceBoundingBox}

	if boundaryFile == "" {
		return fallback, nil
	}

	geom, err := loadBoundary(boundaryFile)
	if err != nil {
		return fallback, types.NewAppErrorWithDetails(types.ErrCodePartialBoundary,
			fmt.Sprintf("boundary file %q unusable, falling back to bounding box", boundaryFile),
			err, map[string]any{"boundary_file": boundaryFile})
	}

	return types.Region{Geometry: geom, Source: types.RegionSourceBoundaryFile}, nil
}

func boundingBox(cfg config.RegionConfig) (orb.Bound, error) {
	if cfg.BBoxWest >= cfg.BBoxEast || cfg.BBoxSouth >= cfg.BBoxNorth {
		return orb.Bound{}, types.NewAppError(types.ErrCodeConfigInvalid,
			fmt.Sprintf("bounding box is degenerate: west=%g south=%g east=%g north=%g",
				cfg.BBoxWest, cfg.BBoxSouth, cfg.BBoxEast, cfg.BBoxNorth), nil)
	}
	return orb.Bound{
		Min: orb.Point{cfg.BBoxWest, cfg.BBoxSouth},
		Max: orb.Point{cfg.BBoxEast, cfg.BBoxNorth},
	}, nil
}

// loadBoundary reads a GeoJSON file and extracts its areal geometry.
// FeatureCollections contribute their first feature, matching how the
// boundary exports from tribal GIS tooling are shaped.
func loadBoundary(path string) (orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}

	var geom orb.Geometry
	switch envelope.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parsing FeatureCollection: %w", err)
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("FeatureCollection has no features")
		}
		geom = fc.Features[0].Geometry
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("parsing Feature: %w", err)
		}
		geom = f.Geometry
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("parsing geometry: %w", err)
		}
		geom = g.Geometry()
	}

	switch geom.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return geom, nil
	default:
		return nil, fmt.Errorf("boundary geometry is %s, want Polygon or MultiPolygon", geom.GeoJSONType())
	}
}
