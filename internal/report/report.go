package report

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/MrWong99/touchline/internal/engine"
	"github.com/MrWong99/touchline/internal/transcript"
	"github.com/MrWong99/touchline/pkg/types"
)

// Score bands used to group corrections in the report.
const (
	HighConfidence   = 80.0
	MediumConfidence = 70.0
)

const (
	matchNameWidth    = 48
	examplesPerMatch  = 5
	maxRejectionLines = 15
	maxDuplicateLines = 10
)

// Generate renders the run summary for results.
func Generate(results []*engine.Result) string {
	var b strings.Builder
	rule := func(ch string, n int) { b.WriteString(strings.Repeat(ch, n) + "\n") }

	rule("=", 70)
	b.WriteString("  SOCCER COMMENTARY CLEANING REPORT\n")
	rule("=", 70)
	b.WriteString("\n")

	var original, kept, rejected, merged, spans, fixed int
	for _, r := range results {
		original += r.Original()
		kept += len(r.Segments)
		rejected += len(r.Rejections)
		merged += len(r.Duplicates)
		spans += r.SpansDetected
		fixed += len(r.Corrections)
	}

	b.WriteString("OVERALL SUMMARY\n")
	rule("-", 40)
	fmt.Fprintf(&b, "  Matches processed:      %d\n", len(results))
	fmt.Fprintf(&b, "  Total segments (raw):   %d\n", original)
	fmt.Fprintf(&b, "  Hallucinations removed: %d\n", rejected)
	fmt.Fprintf(&b, "  Duplicates removed:     %d\n", merged)
	fmt.Fprintf(&b, "  Segments retained:      %d\n", kept)
	fmt.Fprintf(&b, "  Entities detected:      %d\n", spans)
	fmt.Fprintf(&b, "  Entities corrected:     %d\n", fixed)
	if original > 0 {
		fmt.Fprintf(&b, "  Retention rate:         %.1f%%\n", float64(kept)/float64(original)*100)
	}
	b.WriteString("\n")

	b.WriteString("PER-MATCH BREAKDOWN\n")
	rule("-", 90)
	fmt.Fprintf(&b, "  %-50s %5s %5s %5s %5s %5s\n", "Match", "Raw", "Kept", "Hallu", "Dupe", "Fixed")
	b.WriteString("  " + strings.Repeat("-", 80) + "\n")
	for _, r := range results {
		fmt.Fprintf(&b, "  %-50s %5d %5d %5d %5d %5d\n",
			types.Truncate(matchName(r), matchNameWidth),
			r.Original(), len(r.Segments), len(r.Rejections), len(r.Duplicates), len(r.Corrections))
	}
	b.WriteString("\n")

	writeCorrections(&b, results)
	writeRejections(&b, results)
	writeDuplicates(&b, results)

	rule("=", 70)
	b.WriteString("  END OF REPORT\n")
	rule("=", 70)
	return b.String()
}

func writeCorrections(b *strings.Builder, results []*engine.Result) {
	var high, medium, low []transcript.Correction
	for _, r := range results {
		for _, c := range r.Corrections {
			switch {
			case c.Score >= HighConfidence:
				high = append(high, c)
			case c.Score >= MediumConfidence:
				medium = append(medium, c)
			default:
				low = append(low, c)
			}
		}
	}
	if len(high)+len(medium)+len(low) == 0 {
		return
	}

	b.WriteString("ENTITY CORRECTIONS\n")
	b.WriteString(strings.Repeat("-", 90) + "\n")
	group := func(title string, cs []transcript.Correction, suffix string) {
		if len(cs) == 0 {
			return
		}
		slices.SortStableFunc(cs, func(x, y transcript.Correction) int { return cmp.Compare(y.Score, x.Score) })
		fmt.Fprintf(b, "\n  %s: %d corrections\n", title, len(cs))
		for _, c := range cs {
			fmt.Fprintf(b, "    [%5.1f] %q -> %q  (%s)%s\n", c.Score, c.Original, c.Corrected, c.Method, suffix)
		}
	}
	group("HIGH CONFIDENCE (score >= 80)", high, "")
	group("MEDIUM CONFIDENCE (70 <= score < 80)", medium, "")
	group("LOW CONFIDENCE (score < 70), REVIEW THESE", low, "  <- REVIEW")
	b.WriteString("\n")
}

func writeRejections(b *strings.Builder, results []*engine.Result) {
	b.WriteString("HALLUCINATION EXAMPLES (removed segments)\n")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	n := 0
	for _, r := range results {
		for _, rej := range r.Rejections[:min(examplesPerMatch, len(r.Rejections))] {
			fmt.Fprintf(b, "  [%s] %q\n", rej.Reason, rej.Text)
			n++
		}
		if n >= maxRejectionLines {
			b.WriteString("  ... (truncated, see full output files)\n")
			break
		}
	}
	b.WriteString("\n")
}

func writeDuplicates(b *strings.Builder, results []*engine.Result) {
	b.WriteString("DUPLICATE EXAMPLES (removed segments)\n")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	n := 0
	for _, r := range results {
		for _, d := range r.Duplicates[:min(examplesPerMatch, len(r.Duplicates))] {
			fmt.Fprintf(b, "  Seg #%s (dup of #%s, sim=%.1f): %q\n", d.SegmentID, d.DuplicateOf, d.Similarity, d.Text)
			n++
		}
		if n >= maxDuplicateLines {
			b.WriteString("  ... (truncated)\n")
			break
		}
	}
	b.WriteString("\n")
}

// Write renders the report for results to w.
func Write(w io.Writer, results []*engine.Result) error {
	if _, err := io.WriteString(w, Generate(results)); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// Save writes the report for results to path.
func Save(path string, results []*engine.Result) error {
	if err := os.WriteFile(path, []byte(Generate(results)), 0o644); err != nil {
		return fmt.Errorf("report: save %q: %w", path, err)
	}
	return nil
}

func matchName(r *engine.Result) string {
	if r.Match == nil {
		return ""
	}
	return r.Match.Name
}
