// Package analysis implements the change-detection pipeline: window
// selection, feature extraction from classified masks, alert construction,
// and the sequential runner that drives a full pass.
package analysis

import (
	"fmt"
	"time"

	"forestwatch/internal/types"
)

// compositeWindowDays is the length of each median-composite window. Both
// the baseline and the current composite are built from this many days of
// imagery.
const compositeWindowDays = 15

// SelectWindows derives the two composite windows from a reference date.
// The current window is the compositeWindowDays ending at the reference
// date; the baseline window is the same length ending lookbackDays before
// it. A lookback shorter than the window would make the two overlap, so it
// is rejected.
func SelectWindows(reference time.Time, lookbackDays int) (baseline, current types.DateWindow, err error) {
	if lookbackDays < compositeWindowDays {
		return types.DateWindow{}, types.DateWindow{}, types.NewAppError(
			types.ErrCodeConfigLookbackTooShort,
			fmt.Sprintf("lookback of %d days is shorter than the %d-day composite window", lookbackDays, compositeWindowDays),
			nil)
	}

	ref := midnightUTC(reference)

	current = types.DateWindow{
		Start: ref.AddDate(0, 0, -compositeWindowDays),
		End:   ref,
	}
	baseline = types.DateWindow{
		Start: ref.AddDate(0, 0, -(lookbackDays + compositeWindowDays)),
		End:   ref.AddDate(0, 0, -lookbackDays),
	}
	return baseline, current, nil
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
