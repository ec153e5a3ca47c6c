package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"forestwatch/internal/raster"
	"forestwatch/internal/types"
)

// discardLogger silences log output in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// mockVectorizer returns canned polygons per call and records requests.
type mockVectorizer struct {
	responses [][]orb.Polygon
	err       error
	requests  []VectorizeRequest
}

func (m *mockVectorizer) Polygonize(_ context.Context, req VectorizeRequest) ([]orb.Polygon, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	call := len(m.requests) - 1
	if call >= len(m.responses) {
		return nil, nil
	}
	return m.responses[call], nil
}

// boxPolygon builds a closed square ring with the given side in degrees.
func boxPolygon(west, south, side float64) orb.Polygon {
	east, north := west+side, south+side
	return orb.Polygon{orb.Ring{
		{west, south}, {east, south}, {east, north}, {west, north}, {west, south},
	}}
}

func polygonAcres(p orb.Polygon) float64 {
	return math.Abs(geo.Area(p)) * acresPerSquareMeter
}

func testParams() Params {
	return Params{
		ReferenceDate:     date(2024, 6, 15),
		LookbackDays:      30,
		DecreaseThreshold: -0.15,
		IncreaseThreshold: 0.10,
		CloudCeilingPct:   20,
		MinAreaAcres:      2,
		Index:             IndexNDVI,
		ScaleMeters:       30,
		MaxPixels:         1e8,
	}
}

func testMask() *raster.Mask {
	return raster.NewMask(4, 4, raster.GeoTransform{OriginX: -95.5, OriginY: 48.3, PixelWidth: 0.001, PixelHeight: -0.001})
}

func testRegion() types.Region {
	return types.Region{
		Geometry: orb.Bound{Min: orb.Point{-95.5, 47.1}, Max: orb.Point{-94.0, 48.3}},
		Source:   types.RegionSourceBoundingBox,
	}
}

// TestExtractRequestContract verifies the vectorization request carries the
// fixed contract values alongside the mask and region.
func TestExtractRequestContract(t *testing.T) {
	vec := &mockVectorizer{}
	ex := NewExtractor(vec, discardLogger())
	mask := testMask()

	_, err := ex.Extract(context.Background(), mask, testRegion(), types.FeatureKindDamage, testParams())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(vec.requests) != 1 {
		t.Fatalf("vectorizer called %d times, want 1", len(vec.requests))
	}
	req := vec.requests[0]
	if req.Mask != mask {
		t.Error("request should carry the mask unchanged")
	}
	if req.GroundResolutionMeters != 30 {
		t.Errorf("GroundResolutionMeters = %v, want 30", req.GroundResolutionMeters)
	}
	if req.MaxPixels != 1e8 {
		t.Errorf("MaxPixels = %v, want 1e8", req.MaxPixels)
	}
	if req.GeometryType != GeometryTypePolygon {
		t.Errorf("GeometryType = %q, want %q", req.GeometryType, GeometryTypePolygon)
	}
}

// TestExtractMinAreaBoundary verifies the size filter is inclusive: a
// feature exactly at the minimum survives, anything below is dropped.
func TestExtractMinAreaBoundary(t *testing.T) {
	poly := boxPolygon(-95.0, 47.5, 0.002)
	acres := polygonAcres(poly)

	keep := testParams()
	keep.MinAreaAcres = acres
	vec := &mockVectorizer{responses: [][]orb.Polygon{{poly}}}
	features, err := NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindDamage, keep)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("feature exactly at the minimum was dropped (%.6f acres)", acres)
	}

	drop := testParams()
	drop.MinAreaAcres = acres * 1.000001
	vec = &mockVectorizer{responses: [][]orb.Polygon{{poly}}}
	features, err = NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindDamage, drop)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(features) != 0 {
		t.Fatalf("feature below the minimum was kept (%.6f < %.6f acres)", acres, drop.MinAreaAcres)
	}
}

// TestExtractSeverityAssignment verifies damage severity splits on size
// while recovery is always positive.
func TestExtractSeverityAssignment(t *testing.T) {
	large := boxPolygon(-95.0, 47.5, 0.01)  // hundreds of acres
	small := boxPolygon(-94.8, 47.5, 0.002) // single-digit acres
	if polygonAcres(large) <= highSeverityAcres || polygonAcres(small) >= highSeverityAcres {
		t.Fatalf("test polygons sized wrong: large=%.1f small=%.1f acres",
			polygonAcres(large), polygonAcres(small))
	}

	vec := &mockVectorizer{responses: [][]orb.Polygon{{large, small}}}
	features, err := NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindDamage, testParams())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("got %d features, want 2", len(features))
	}
	if features[0].Severity != types.SeverityHigh {
		t.Errorf("large damage severity = %q, want %q", features[0].Severity, types.SeverityHigh)
	}
	if features[1].Severity != types.SeverityMedium {
		t.Errorf("small damage severity = %q, want %q", features[1].Severity, types.SeverityMedium)
	}

	vec = &mockVectorizer{responses: [][]orb.Polygon{{large}}}
	features, err = NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindRecovery, testParams())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if features[0].Severity != types.SeverityPositive {
		t.Errorf("recovery severity = %q, want %q", features[0].Severity, types.SeverityPositive)
	}
}

// TestSeverityBoundaryExactlyTwenty verifies the high/medium split is
// strictly above the threshold.
func TestSeverityBoundaryExactlyTwenty(t *testing.T) {
	if got := severityFor(types.FeatureKindDamage, 20.0); got != types.SeverityMedium {
		t.Errorf("severityFor(damage, 20.0) = %q, want medium", got)
	}
	if got := severityFor(types.FeatureKindDamage, 20.01); got != types.SeverityHigh {
		t.Errorf("severityFor(damage, 20.01) = %q, want high", got)
	}
	if got := severityFor(types.FeatureKindRecovery, 500); got != types.SeverityPositive {
		t.Errorf("severityFor(recovery, 500) = %q, want positive", got)
	}
}

// TestExtractCanonicalOrdering verifies survivors come back sorted by area
// descending, independent of the order the vectorizer returned them in.
func TestExtractCanonicalOrdering(t *testing.T) {
	big := boxPolygon(-95.0, 47.5, 0.01)
	mid := boxPolygon(-94.7, 47.5, 0.006)
	small := boxPolygon(-94.9, 47.5, 0.004)

	vec := &mockVectorizer{responses: [][]orb.Polygon{{small, big, mid}}}
	features, err := NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindDamage, testParams())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(features) != 3 {
		t.Fatalf("got %d features, want 3", len(features))
	}
	if features[0].AreaAcres < features[1].AreaAcres || features[1].AreaAcres < features[2].AreaAcres {
		t.Errorf("features not ordered by area desc: %v, %v, %v",
			features[0].AreaAcres, features[1].AreaAcres, features[2].AreaAcres)
	}
}

// TestLessCanonicalTieBreaks verifies the ordering used before id
// assignment: area descending, then centroid latitude, then longitude.
func TestLessCanonicalTieBreaks(t *testing.T) {
	feature := func(acres, lng, lat float64) types.ChangeFeature {
		return types.ChangeFeature{AreaAcres: acres, Centroid: orb.Point{lng, lat}}
	}

	if !lessCanonical(feature(10, 0, 0), feature(5, 0, 0)) {
		t.Error("larger area should sort first")
	}
	if lessCanonical(feature(5, 0, 0), feature(10, 0, 0)) {
		t.Error("smaller area should sort last")
	}
	if !lessCanonical(feature(5, 0, 47.1), feature(5, 0, 47.2)) {
		t.Error("on equal area, lower latitude should sort first")
	}
	if !lessCanonical(feature(5, -95.5, 47.1), feature(5, -95.4, 47.1)) {
		t.Error("on equal area and latitude, lower longitude should sort first")
	}
}

// TestExtractEmptyMask verifies zero polygons mean zero features, not an
// error.
func TestExtractEmptyMask(t *testing.T) {
	vec := &mockVectorizer{}
	features, err := NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindDamage, testParams())
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(features) != 0 {
		t.Errorf("got %d features from an empty vectorization, want 0", len(features))
	}
}

// TestExtractPropagatesVectorizerError verifies collaborator failures
// surface unchanged.
func TestExtractPropagatesVectorizerError(t *testing.T) {
	vecErr := types.NewAppError(types.ErrCodeUpstreamVectorizer, "polygonize failed", errors.New("boom"))
	vec := &mockVectorizer{err: vecErr}

	_, err := NewExtractor(vec, discardLogger()).
		Extract(context.Background(), testMask(), testRegion(), types.FeatureKindDamage, testParams())
	if !errors.Is(err, vecErr) {
		t.Errorf("expected the vectorizer error to propagate, got %v", err)
	}
}
