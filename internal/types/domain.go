// Package types defines the shared domain model for the forestwatch pipeline:
// analysis regions, date windows, change features, alerts, and the error
// taxonomy used across packages.
package types

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// RegionSource records where an analysis region came from.
type RegionSource string

const (
	// RegionSourceBoundaryFile means the region was loaded from a GeoJSON boundary file.
	RegionSourceBoundaryFile RegionSource = "boundary_file"
	// RegionSourceBoundingBox means the region is the configured rectangular fallback.
	RegionSourceBoundingBox RegionSource = "bounding_box"
)

// Region is the immutable analysis area of interest in geographic coordinates
// (longitude/latitude, WGS84). It is resolved once per run and never mutated.
type Region struct {
	Geometry orb.Geometry
	Source   RegionSource
}

// Bound returns the region's axis-aligned bounding box.
func (r Region) Bound() orb.Bound {
	return r.Geometry.Bound()
}

// DateWindow is an inclusive calendar-date interval used as an imagery search
// range. Start is strictly before End.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// dateLayout is the calendar-date format used across configuration, the
// imagery catalog, and the output artifact.
const dateLayout = "2006-01-02"

// Validate reports whether the window is well-formed.
func (w DateWindow) Validate() error {
	if !w.Start.Before(w.End) {
		return NewAppError(ErrCodeConfigInvalid,
			fmt.Sprintf("date window start %s is not before end %s",
				w.Start.Format(dateLayout), w.End.Format(dateLayout)), nil)
	}
	return nil
}

// Overlaps reports whether two windows share any day.
func (w DateWindow) Overlaps(other DateWindow) bool {
	return !w.End.Before(other.Start) && !other.End.Before(w.Start)
}

// StartDate returns the window start formatted as a calendar date.
func (w DateWindow) StartDate() string { return w.Start.Format(dateLayout) }

// EndDate returns the window end formatted as a calendar date.
func (w DateWindow) EndDate() string { return w.End.Format(dateLayout) }

// String renders the window for logs and operator messages.
func (w DateWindow) String() string {
	return fmt.Sprintf("%s to %s", w.StartDate(), w.EndDate())
}

// FormatDate formats a time using the shared calendar-date layout.
func FormatDate(t time.Time) string { return t.Format(dateLayout) }

// ParseDate parses a calendar-date string in the shared layout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, NewAppError(ErrCodeConfigInvalidDate,
			fmt.Sprintf("invalid calendar date %q (want YYYY-MM-DD)", s), err)
	}
	return t, nil
}

// FeatureKind distinguishes the two change populations a run extracts.
type FeatureKind string

const (
	FeatureKindDamage   FeatureKind = "damage"
	FeatureKindRecovery FeatureKind = "recovery"
)

// Severity classifies an alert for triage. Damage alerts are high or medium
// depending on area; recovery alerts are always positive.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityPositive Severity = "positive"
)

// AlertType is the externally visible alert category.
type AlertType string

const (
	AlertTypeVegetationChange AlertType = "vegetation_change"
	AlertTypeRecovery         AlertType = "recovery"
)

// ChangeFeature is one connected region extracted from a damage or recovery
// mask. AreaAcres is unrounded; rounding happens only when the feature becomes
// an Alert, so severity and minimum-area decisions see the exact value.
type ChangeFeature struct {
	Geometry  orb.Polygon
	Centroid  orb.Point // (lon, lat)
	AreaAcres float64
	Kind      FeatureKind
	Severity  Severity
}

// Alert is the externally visible unit of output. Field names and value
// domains are a compatibility contract with downstream consumers and must not
// change. Alerts are immutable after creation.
type Alert struct {
	ID          string    `json:"id"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	AreaAcres   float64   `json:"area_acres"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
}
