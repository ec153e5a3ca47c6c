package export

import (
	"fmt"
	"io"
	"strings"

	"forestwatch/internal/analysis"
	"forestwatch/internal/types"
)

const reportRule = 50

// WriteReport renders the operator-facing summary of a finished run:
// severity counts and the largest alerts with their coordinates. A run
// that ended for lack of imagery reports which window came up empty
// instead.
func WriteReport(w io.Writer, result *analysis.Result, topN int) {
	rule := strings.Repeat("=", reportRule)

	if result.Outcome == analysis.OutcomeNoImagery {
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "ANALYSIS ABORTED - INSUFFICIENT IMAGERY")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "  Baseline window: %s (%d scenes)\n", result.BaselineWindow, result.BaselineScenes)
		fmt.Fprintf(w, "  Current window:  %s (%d scenes)\n", result.CurrentWindow, result.CurrentScenes)
		fmt.Fprintln(w, "\nNo alerts written. Re-run after the next satellite pass.")
		return
	}

	counts := map[types.Severity]int{}
	for _, a := range result.Alerts {
		counts[a.Severity]++
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "ANALYSIS COMPLETE")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  Baseline window: %s (%d scenes)\n", result.BaselineWindow, result.BaselineScenes)
	fmt.Fprintf(w, "  Current window:  %s (%d scenes)\n", result.CurrentWindow, result.CurrentScenes)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  High priority:   %d\n", counts[types.SeverityHigh])
	fmt.Fprintf(w, "  Medium priority: %d\n", counts[types.SeverityMedium])
	fmt.Fprintf(w, "  Recovery areas:  %d\n", counts[types.SeverityPositive])

	if len(result.Alerts) == 0 {
		return
	}

	fmt.Fprintln(w, "\nTop alerts:")
	for _, a := range analysis.TopByArea(result.Alerts, topN) {
		fmt.Fprintf(w, "  - %s: %.1f acres at (%.4f, %.4f)\n", a.Type, a.AreaAcres, a.Lat, a.Lng)
	}
}
