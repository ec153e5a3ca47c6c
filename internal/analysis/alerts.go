package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"forestwatch/internal/types"
)

// BuildAlerts renders features into the alert contract: damage first, then
// recovery, with ids numbered sequentially within each kind. Acreage is
// rounded to one decimal at this point and nowhere earlier, so size
// filtering and severity always see the measured value.
func BuildAlerts(damage, recovery []types.ChangeFeature, analysisDate time.Time) []types.Alert {
	alerts := make([]types.Alert, 0, len(damage)+len(recovery))
	date := types.FormatDate(analysisDate)

	for i, f := range damage {
		acres := roundAcres(f.AreaAcres)
		alerts = append(alerts, types.Alert{
			ID:          fmt.Sprintf("damage_%d", i+1),
			Type:        types.AlertTypeVegetationChange,
			Severity:    f.Severity,
			Lat:         f.Centroid[1],
			Lng:         f.Centroid[0],
			AreaAcres:   acres,
			Date:        date,
			Description: fmt.Sprintf("Significant vegetation loss detected (%.1f acres)", acres),
		})
	}
	for i, f := range recovery {
		acres := roundAcres(f.AreaAcres)
		alerts = append(alerts, types.Alert{
			ID:          fmt.Sprintf("recovery_%d", i+1),
			Type:        types.AlertTypeRecovery,
			Severity:    types.SeverityPositive,
			Lat:         f.Centroid[1],
			Lng:         f.Centroid[0],
			AreaAcres:   acres,
			Date:        date,
			Description: fmt.Sprintf("Vegetation recovery observed (%.1f acres)", acres),
		})
	}
	return alerts
}

// TopByArea returns the n largest alerts by area for the console report.
// The sort is stable (ties keep their order) and works on a copy, leaving
// the persisted ordering untouched.
func TopByArea(alerts []types.Alert, n int) []types.Alert {
	ranked := make([]types.Alert, len(alerts))
	copy(ranked, alerts)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AreaAcres > ranked[j].AreaAcres
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

func roundAcres(acres float64) float64 {
	return math.Round(acres*10) / 10
}
