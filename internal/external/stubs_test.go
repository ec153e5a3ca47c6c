package external

import (
	"context"
	"testing"

	"forestwatch/internal/raster"
)

func TestStubImageryGateway_ReturnsUniformComposite(t *testing.T) {
	gw := NewStubImageryGateway(discardLogger())

	comp, err := gw.FetchComposite(context.Background(), testRegion(), testWindow(), 20)
	if err != nil {
		t.Fatalf("stub fetch failed: %v", err)
	}

	if comp.SceneCount != 3 {
		t.Errorf("expected scene count 3, got %d", comp.SceneCount)
	}
	for _, name := range []string{raster.BandRed, raster.BandNIR, raster.BandSWIR} {
		g, err := comp.Band(name)
		if err != nil {
			t.Fatalf("missing band %s: %v", name, err)
		}
		if g.Width != stubGridDim || g.Height != stubGridDim {
			t.Errorf("band %s is %dx%d, want %dx%d", name, g.Width, g.Height, stubGridDim, stubGridDim)
		}
		if g.IsNoData(0, 0) {
			t.Errorf("stub band %s should carry data everywhere", name)
		}
	}

	// Two fetches must be identical so a local run produces zero deltas.
	again, err := gw.FetchComposite(context.Background(), testRegion(), testWindow(), 20)
	if err != nil {
		t.Fatalf("second stub fetch failed: %v", err)
	}
	for _, name := range []string{raster.BandRed, raster.BandNIR, raster.BandSWIR} {
		a, _ := comp.Band(name)
		b, _ := again.Band(name)
		if a.At(5, 5) != b.At(5, 5) {
			t.Errorf("band %s differs between fetches", name)
		}
	}
}

func TestStubVectorizer_EmptyMaskYieldsNoPolygons(t *testing.T) {
	v := NewStubVectorizer(discardLogger())

	req := testVectorizeRequest()
	req.Mask = raster.NewMask(4, 4, raster.GeoTransform{})

	polygons, err := v.Polygonize(context.Background(), req)
	if err != nil {
		t.Fatalf("stub polygonize failed: %v", err)
	}
	if len(polygons) != 0 {
		t.Errorf("expected no polygons for an empty mask, got %d", len(polygons))
	}
}

func TestStubVectorizer_SetPixelsYieldOnePolygon(t *testing.T) {
	v := NewStubVectorizer(discardLogger())

	polygons, err := v.Polygonize(context.Background(), testVectorizeRequest())
	if err != nil {
		t.Fatalf("stub polygonize failed: %v", err)
	}
	if len(polygons) != 1 {
		t.Fatalf("expected one polygon for a non-empty mask, got %d", len(polygons))
	}
	if len(polygons[0]) == 0 || len(polygons[0][0]) < 4 {
		t.Errorf("stub polygon should be a closed ring, got %v", polygons[0])
	}
}
