package raster

import (
	"fmt"
	"math"

	"forestwatch/internal/types"
)

// Classify diffs two index grids pixel-wise and thresholds the change into
// a damage mask (change below decrease) and a recovery mask (change above
// increase). Thresholds must straddle zero, which keeps the masks disjoint.
// No-data pixels in either input appear in neither mask.
func Classify(baseline, current *Grid, decrease, increase float64) (damage, recovery *Mask, err error) {
	if decrease >= 0 || increase <= 0 {
		return nil, nil, types.NewAppError(types.ErrCodeConfigThresholdSign,
			fmt.Sprintf("thresholds must straddle zero, got decrease=%g increase=%g", decrease, increase), nil)
	}
	if !baseline.SameShape(current) {
		return nil, nil, types.NewAppErrorWithDetails(types.ErrCodeDataExtentMismatch,
			"baseline and current grids have different shapes", nil, map[string]any{
				"baseline": fmt.Sprintf("%dx%d", baseline.Width, baseline.Height),
				"current":  fmt.Sprintf("%dx%d", current.Width, current.Height),
			})
	}

	damage = NewMask(current.Width, current.Height, current.Transform)
	recovery = NewMask(current.Width, current.Height, current.Transform)
	for y := 0; y < current.Height; y++ {
		for x := 0; x < current.Width; x++ {
			delta := current.At(x, y) - baseline.At(x, y)
			if math.IsNaN(delta) {
				continue
			}
			switch {
			case delta < decrease:
				damage.Set(x, y, true)
			case delta > increase:
				recovery.Set(x, y, true)
			}
		}
	}
	return damage, recovery, nil
}
