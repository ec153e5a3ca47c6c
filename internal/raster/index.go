package raster

import (
	"math"

	"forestwatch/internal/types"
)

// NormalizedDifference computes (A - B) / (A + B) per pixel over two bands
// of a composite. With (B08, B04) this is NDVI; with (B08, B12) it is NBR.
// Pixels where A + B == 0 become no-data rather than a division crash, and
// no-data in either input propagates to the result.
func NormalizedDifference(c *Composite, bandA, bandB string) (*Grid, error) {
	a, err := c.Band(bandA)
	if err != nil {
		return nil, err
	}
	b, err := c.Band(bandB)
	if err != nil {
		return nil, err
	}
	if !a.SameShape(b) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeDataExtentMismatch,
			"band shapes differ within one composite", nil, map[string]any{
				"band_a": bandA, "band_b": bandB,
			})
	}

	out := NewGrid(a.Width, a.Height, a.Transform)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			sum := a.At(x, y) + b.At(x, y)
			if sum == 0 {
				continue
			}
			// NaN inputs fall through the division and stay NaN.
			out.Set(x, y, (a.At(x, y)-b.At(x, y))/sum)
		}
	}
	return out, nil
}
