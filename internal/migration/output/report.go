package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/qiniu/rulemigrator/internal/migration/service"
)

var banner = strings.Repeat("=", 60)

func renderReport(report *service.Report) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\nMigration Report\n%s\n\n", banner, banner)
	fmt.Fprintf(&b, "run: %s\nanalyzer: %s\nprefix: %q\n\n", report.ID, report.Analyzer, report.Prefix)
	writeCounts(&b, report)

	section(&b, "Auto-converted rules", filter(report.Results, model.TriageAuto), func(r *model.MigrationResult) {
		fmt.Fprintf(&b, "  - %s: %s (%s)\n", r.AlertName, r.AggMode, r.AggReason)
	})
	section(&b, "Complex expressions, aggregation guessed, review recommended", filter(report.Results, model.TriageReview), func(r *model.MigrationResult) {
		fmt.Fprintf(&b, "  - %s: %s (%s)\n", r.AlertName, r.AggMode, r.AggReason)
		for _, h := range r.DimensionHints {
			fmt.Fprintf(&b, "    dimension labels on %s: %s\n", h.Metric, labelPairs(h.Labels))
		}
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "    note: %s\n", n)
		}
	})
	section(&b, "Covered by golden rules", filter(report.Results, model.TriageUseGolden), func(r *model.MigrationResult) {
		fmt.Fprintf(&b, "  - %s: use %s from rule pack %s\n", r.AlertName, r.DictMatch.GoldenRule, r.DictMatch.RulePack)
		if r.DictMatch.Note != "" {
			fmt.Fprintf(&b, "    %s\n", r.DictMatch.Note)
		}
	})
	section(&b, "Not converted, hand the prompts below to a reviewer", filter(report.Results, model.TriageSkip), func(r *model.MigrationResult) {
		fmt.Fprintf(&b, "\n### %s ###\n%s\n", r.AlertName, r.FallbackPrompt)
	})
	return b.Bytes(), nil
}

// PrintSummary writes the dry-run preview of report to w.
func PrintSummary(w io.Writer, report *service.Report) {
	fmt.Fprintf(w, "\n%s\nDry run, no files written\n%s\n\n", banner, banner)
	writeCounts(w, report)
	for _, r := range report.Results {
		switch r.TriageAction {
		case model.TriageSkip:
			fmt.Fprintf(w, "  [skip] %s: needs manual conversion\n", r.AlertName)
			continue
		case model.TriageUseGolden:
			fmt.Fprintf(w, "  [golden] %s: %s\n", r.AlertName, r.DictMatch.GoldenRule)
			continue
		}
		fmt.Fprintf(w, "  [%s] %s: %s (%s)\n", r.TriageAction, r.AlertName, r.AggMode, r.AggReason)
		if r.TenantConfig != nil {
			fmt.Fprintf(w, "     %s: %q\n", r.TenantConfig.Key, r.TenantConfig.Value)
		}
		for _, h := range r.DimensionHints {
			fmt.Fprintf(w, "     dimensions: %s{%s}\n", h.Metric, labelPairs(h.Labels))
		}
	}
	fmt.Fprintln(w)
}

func writeCounts(w io.Writer, report *service.Report) {
	s := report.Summary
	fmt.Fprintf(w, "total rules: %d\n", s.Total)
	fmt.Fprintf(w, "  auto: %d\n", s.Auto)
	fmt.Fprintf(w, "  needs review: %d\n", s.NeedsReview)
	fmt.Fprintf(w, "  unsupported: %d\n", s.Unsupported)
	fmt.Fprintf(w, "  golden matches: %d\n", s.Golden)
	fmt.Fprintf(w, "  convertible: %d\n", s.Convertible)
	fmt.Fprintf(w, "  suppression pairs: %d\n\n", report.Pairs)
}

func filter(results []*model.MigrationResult, triage string) []*model.MigrationResult {
	var out []*model.MigrationResult
	for _, r := range results {
		if r.TriageAction == triage {
			out = append(out, r)
		}
	}
	return out
}

func section(b *bytes.Buffer, title string, results []*model.MigrationResult, line func(*model.MigrationResult)) {
	if len(results) == 0 {
		return
	}
	dash := strings.Repeat("-", 40)
	fmt.Fprintf(b, "%s\n%s\n%s\n", dash, title, dash)
	for _, r := range results {
		line(r)
	}
	b.WriteString("\n")
}
