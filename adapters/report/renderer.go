package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"biasclean/domain/fairness"
	"biasclean/ports"
)

// Renderer writes reports as Markdown and converts them to HTML pages
type Renderer struct {
	// CSS is an optional stylesheet URL for HTML pages
	CSS string
}

var _ ports.ReportRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Markdown renders the full report
func (r *Renderer) Markdown(rep *fairness.Report) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("nil report")
	}
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Bias Mitigation Report\n\n")
	fmt.Fprintf(&b, "- **Run:** `%s`\n", rep.RunID)
	fmt.Fprintf(&b, "- **Domain:** %s\n", rep.Domain)
	fmt.Fprintf(&b, "- **Outcome column:** `%s`\n", rep.OutcomeColumn)
	fmt.Fprintf(&b, "- **Objective:** %s (seed %d)\n", rep.Objective, rep.Seed)
	fmt.Fprintf(&b, "- **State:** %s (%s)\n", rep.State, rep.Reason)
	if !rep.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "- **Completed:** %s (%s)\n", rep.CompletedAt.Format(time.RFC3339), rep.CompletedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n")

	writeSummary(&b, rep)
	writeWarnings(&b, rep)
	writeWeights(&b, rep)
	writeScores(&b, rep)
	writeAlignment(&b, rep)
	writeTrace(&b, rep)
	writeFront(&b, rep)
	return b.Bytes(), nil
}

// HTML renders the Markdown report as a complete HTML page
func (r *Renderer) HTML(rep *fairness.Report) ([]byte, error) {
	md, err := r.Markdown(rep)
	if err != nil {
		return nil, err
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.HrefTargetBlank,
		Title: fmt.Sprintf("Bias mitigation report %s", rep.RunID),
		CSS:   r.CSS,
	})
	return markdown.ToHTML(md, p, renderer), nil
}

func writeSummary(b *bytes.Buffer, rep *fairness.Report) {
	rd := rep.Readiness
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Before | After |\n|---|---|---|\n")
	fmt.Fprintf(b, "| Composite disparity | %.4f | %.4f |\n", rep.CompositeBefore, rep.CompositeAfter)
	fmt.Fprintf(b, "| Records | %d | %d |\n\n", rep.RecordsBefore, rep.RecordsAfter)
	fmt.Fprintf(b, "- Disparity reduction: %.1f%%\n", rd.ReductionPercent)
	if len(rep.Alignment) > 0 {
		fmt.Fprintf(b, "- Distribution alignment gain: %.1f%% (%s)\n", rd.AlignmentGainPercent, yesNo(rd.MeaningfulGain, "meaningful", "not meaningful"))
	}
	if rd.MitigationEfficiency != 0 {
		fmt.Fprintf(b, "- Mitigation efficiency: %.4f per unit of record-count change\n", rd.MitigationEfficiency)
	}
	fmt.Fprintf(b, "- Retention: %.1f%% (%s)\n", rd.RetentionRate*100, yesNo(rd.MeetsRetention, "meets floor", "below floor"))
	fmt.Fprintf(b, "- Production ready: %s\n", yesNo(rd.ProductionReady, "yes", "no"))
	if rep.UnavoidableRegression {
		b.WriteString("- **Unavoidable regression:** a high-priority attribute got worse in at least one committed iteration\n")
	}
	if m := rep.Manifest; !m.Fingerprint.IsEmpty() {
		fmt.Fprintf(b, "- Replay fingerprint: `%s` (seed %d, code %s)\n", m.Fingerprint.Short(), m.Seed, m.CodeVersion)
	}
	b.WriteString("\n")
}

func writeWarnings(b *bytes.Buffer, rep *fairness.Report) {
	if len(rep.Warnings) == 0 {
		return
	}
	b.WriteString("## Warnings\n\n")
	for _, w := range rep.Warnings {
		fmt.Fprintf(b, "- %s\n", w)
	}
	b.WriteString("\n")
}

func writeWeights(b *bytes.Buffer, rep *fairness.Report) {
	b.WriteString("## Attribute Weights\n\n")
	if !rep.WeightsAuthoritative {
		b.WriteString("_Weights are a uniform fallback and are not authoritative._\n\n")
	}
	if len(rep.Weights) == 0 {
		b.WriteString("No protected attributes were weighted.\n\n")
		return
	}
	weights := append([]fairness.AttributeWeight(nil), rep.Weights...)
	sort.SliceStable(weights, func(i, j int) bool { return weights[i].Weight > weights[j].Weight })
	b.WriteString("| Attribute | Weight |\n|---|---|\n")
	for _, w := range weights {
		fmt.Fprintf(b, "| %s | %.2f |\n", w.Attribute, w.Weight)
	}
	b.WriteString("\n")
}

func writeScores(b *bytes.Buffer, rep *fairness.Report) {
	if len(rep.ScoresBefore) == 0 {
		return
	}
	b.WriteString("## Disparity by Attribute\n\n")
	b.WriteString("| Attribute | Weight | Test | p-value | Before | After | Status |\n|---|---|---|---|---|---|---|\n")
	for _, before := range rep.ScoresBefore {
		after, ok := fairness.ScoreFor(rep.ScoresAfter, before.Attribute)
		afterCell := "n/a"
		if ok && !after.Skipped {
			afterCell = fmt.Sprintf("%.4f", after.DisparityRatio)
		}
		fmt.Fprintf(b, "| %s | %.2f | %s | %.4g | %.4f | %s | %s |\n",
			before.Attribute, before.Weight, before.Test, before.PValue, before.DisparityRatio, afterCell, status(before))
	}
	b.WriteString("\n")
}

func writeAlignment(b *bytes.Buffer, rep *fairness.Report) {
	if len(rep.Alignment) == 0 {
		return
	}
	b.WriteString("## Distribution Alignment\n\n")
	b.WriteString("Wasserstein distance of category shares from uniform representation.\n\n")
	b.WriteString("| Attribute | Before | After | Improvement | Over-represented before |\n|---|---|---|---|---|\n")
	for _, a := range rep.Alignment {
		var groups []string
		if s, ok := fairness.ScoreFor(rep.ScoresBefore, a.Attribute); ok {
			for _, g := range s.OverRepresented {
				groups = append(groups, fmt.Sprintf("%s (+%.0f%%)", g.Category, g.ExcessRatio*100))
			}
		}
		fmt.Fprintf(b, "| %s | %.4f | %.4f | %.1f%% | %s |\n",
			a.Attribute, a.DistanceBefore, a.DistanceAfter, a.ImprovementPercent, strings.Join(groups, ", "))
	}
	b.WriteString("\n")
}

func status(s fairness.DisparityScore) string {
	switch {
	case s.Skipped:
		return "skipped"
	case s.Indeterminate:
		return "indeterminate"
	case s.Weight == 0:
		return "unweighted"
	case s.RequiresMitigation:
		return "significant"
	default:
		return "ok"
	}
}

func writeTrace(b *bytes.Buffer, rep *fairness.Report) {
	b.WriteString("## Iterations\n\n")
	if len(rep.Trace) == 0 {
		b.WriteString("No iterations ran.\n\n")
		return
	}
	b.WriteString("| # | Chosen | Composite | Records | Committed | Regressions |\n|---|---|---|---|---|---|\n")
	for _, it := range rep.Trace {
		flags := strings.Join(it.RegressionFlags, ", ")
		if it.UnavoidableRegression {
			flags += " (unavoidable)"
		}
		fmt.Fprintf(b, "| %d | %s | %.4f → %.4f | %d → %d | %s | %s |\n",
			it.Index, it.Strategy, it.CompositeBefore, it.CompositeAfter, it.RecordsBefore, it.RecordsAfter,
			yesNo(it.Committed, "yes", "no"), flags)
	}
	b.WriteString("\n")
}

func writeFront(b *bytes.Buffer, rep *fairness.Report) {
	if len(rep.FinalFront) == 0 {
		return
	}
	b.WriteString("## Final Candidates\n\n")
	b.WriteString("| Strategy | Composite | Improvement | Added | Removed | Pareto | Violations |\n|---|---|---|---|---|---|---|\n")
	for _, c := range rep.FinalFront {
		fmt.Fprintf(b, "| %s | %.4f | %.4f | %d | %d | %s | %s |\n",
			c.Strategy, c.Composite, c.Improvement, c.Added, c.Removed, yesNo(c.OnFront, "yes", "no"), strings.Join(c.Violations, "; "))
	}
	b.WriteString("\n")
}

func yesNo(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
