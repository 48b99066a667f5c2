// Package analyzer inspects legacy PromQL alert expressions: it splits the threshold
// comparison, extracts referenced metrics, detects functions that cannot be migrated per
// tenant and picks an aggregation mode for the generated recording rule.
package analyzer

import (
	"github.com/prometheus/prometheus/promql/parser"
	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/rs/zerolog/log"
)

const (
	KindAST   = "ast"
	KindRegex = "regex"
)

// Analyzer is the expression backend used by every migration step. Implementations must be
// safe for concurrent use and must never panic on malformed input.
type Analyzer interface {
	// Kind reports which backend is in use.
	Kind() string
	// Validate returns nil when expr is structurally valid PromQL for this backend.
	Validate(expr string) error
	// MetricNames returns the metric identifiers used as vector or matrix selectors, in
	// first-occurrence order without duplicates. Empty on structural failure.
	MetricNames(expr string) []string
	// HasSemanticBreak reports whether expr calls a semantic-break function at any depth.
	HasSemanticBreak(expr string) bool
	// LabelMatchers returns dimension hints for equality matchers on business labels.
	LabelMatchers(expr string) []model.DimensionHint
}

// probeExpr exercises selectors, functions and aggregation in a single parse.
const probeExpr = `sum by (job) (rate(up{job="probe"}[5m])) > 0`

// New returns the analyzer for kind. An AST request falls back to the regex analyzer, with a
// single warning, when the parser cannot handle the probe expression.
func New(kind string) Analyzer {
	switch kind {
	case KindRegex:
		log.Debug().Msg("using regex expression analyzer")
		return NewRegex()
	case KindAST, "":
		if _, err := parser.ParseExpr(probeExpr); err != nil {
			log.Warn().Err(err).Msg("PromQL AST backend unavailable, degrading to regex analyzer")
			return NewRegex()
		}
		log.Debug().Msg("using PromQL AST expression analyzer")
		return NewAST()
	default:
		log.Warn().Str("kind", kind).Msg("unknown analyzer kind, degrading to regex analyzer")
		return NewRegex()
	}
}

// semanticBreakFuncs assert presence/absence, synthesize vectors or rewrite label identity.
// None of them tolerate a blind sum/max by(tenant) wrap.
var semanticBreakFuncs = map[string]struct{}{
	"absent":           {},
	"absent_over_time": {},
	"vector":           {},
	"scalar":           {},
	"predict_linear":   {},
	"holt_winters":     {},
	"label_replace":    {},
	"label_join":       {},
}

// IsSemanticBreakFunc reports whether name is one of the functions that block migration.
func IsSemanticBreakFunc(name string) bool {
	_, ok := semanticBreakFuncs[name]
	return ok
}

// infraLabels are target-identity labels that never become tenant dimensions.
var infraLabels = map[string]struct{}{
	"job":       {},
	"instance":  {},
	"__name__":  {},
	"namespace": {},
	"pod":       {},
	"container": {},
}

func isInfraLabel(name string) bool {
	_, ok := infraLabels[name]
	return ok
}

// appendUnique appends name unless already present.
func appendUnique(names []string, seen map[string]struct{}, name string) []string {
	if name == "" {
		return names
	}
	if _, ok := seen[name]; ok {
		return names
	}
	seen[name] = struct{}{}
	return append(names, name)
}
