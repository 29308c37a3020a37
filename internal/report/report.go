// Package report renders the human-facing summary line a fuzz campaign
// prints when it finishes (§6).
package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/fewrick/jpamb/internal/fuzz"
)

// Summarize formats r the way the CLI prints it on exit: iteration and
// coverage counts with thousands separators, a coverage percentage, the
// stop reason, and how long the campaign ran.
func Summarize(r fuzz.Result, elapsed time.Duration) string {
	pct := 0.0
	if r.TotalOffsets > 0 {
		pct = 100 * float64(len(r.Covered)) / float64(r.TotalOffsets)
	}

	reason := "iteration cap reached"
	switch {
	case r.FullCoverage:
		reason = "full coverage reached"
	case r.StalledOut:
		reason = "stalled (no new coverage)"
	}

	return fmt.Sprintf(
		"%s: %s iterations, %s/%s offsets covered (%s%%), %s, finished in %s",
		r.Method.String(),
		humanize.Comma(int64(r.Iterations)),
		humanize.Comma(int64(len(r.Covered))),
		humanize.Comma(int64(r.TotalOffsets)),
		humanize.Commaf(pct),
		reason,
		elapsed.Round(time.Millisecond),
	)
}

// OutcomeBreakdown renders the per-outcome iteration counts, sorted by
// count descending, for a verbose campaign report.
func OutcomeBreakdown(r fuzz.Result) string {
	type row struct {
		outcome string
		count   int
	}
	rows := make([]row, 0, len(r.Outcomes))
	for o, n := range r.Outcomes {
		rows = append(rows, row{string(o), n})
	}
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].count > rows[j-1].count; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
	s := ""
	for i, rw := range rows {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", rw.outcome, humanize.Comma(int64(rw.count)))
	}
	return s
}
