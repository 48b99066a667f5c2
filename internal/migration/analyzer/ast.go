package analyzer

import (
	"fmt"

	"github.com/prometheus/prometheus/model/labels"
	"github.com/prometheus/prometheus/promql/parser"
	"github.com/qiniu/rulemigrator/internal/migration/model"
)

// astAnalyzer is backed by the Prometheus PromQL parser.
type astAnalyzer struct {
	// fallback covers expressions the parser rejects, e.g. functions removed upstream.
	fallback *regexAnalyzer
}

// NewAST returns the parser-backed analyzer.
func NewAST() Analyzer { return &astAnalyzer{fallback: NewRegex().(*regexAnalyzer)} }

func (a *astAnalyzer) Kind() string { return KindAST }

func (a *astAnalyzer) Validate(expr string) error {
	if _, err := parser.ParseExpr(expr); err != nil {
		return fmt.Errorf("parse %q: %w", expr, err)
	}
	return nil
}

func (a *astAnalyzer) MetricNames(expr string) []string {
	root, err := parser.ParseExpr(expr)
	if err != nil {
		return nil
	}
	var names []string
	seen := map[string]struct{}{}
	for _, vs := range vectorSelectors(root) {
		names = appendUnique(names, seen, selectorName(vs))
	}
	return names
}

func (a *astAnalyzer) HasSemanticBreak(expr string) bool {
	root, err := parser.ParseExpr(expr)
	if err != nil {
		return a.fallback.HasSemanticBreak(expr)
	}
	found := false
	walk(root, func(n parser.Node) {
		if c, ok := n.(*parser.Call); ok && c.Func != nil && IsSemanticBreakFunc(c.Func.Name) {
			found = true
		}
	})
	return found
}

func (a *astAnalyzer) LabelMatchers(expr string) []model.DimensionHint {
	root, err := parser.ParseExpr(expr)
	if err != nil {
		return a.fallback.LabelMatchers(expr)
	}
	var hints []model.DimensionHint
	for _, vs := range vectorSelectors(root) {
		dims := map[string]string{}
		for _, m := range vs.LabelMatchers {
			if m.Type != labels.MatchEqual || isInfraLabel(m.Name) {
				continue
			}
			dims[m.Name] = m.Value
		}
		if len(dims) > 0 {
			hints = append(hints, model.DimensionHint{Metric: selectorName(vs), Labels: dims})
		}
	}
	return hints
}

// vectorSelectors lists every selector leaf in traversal order.
func vectorSelectors(root parser.Node) []*parser.VectorSelector {
	var out []*parser.VectorSelector
	walk(root, func(n parser.Node) {
		if vs, ok := n.(*parser.VectorSelector); ok {
			out = append(out, vs)
		}
	})
	return out
}

// selectorName returns the metric name of vs, including the {__name__="x"} form.
func selectorName(vs *parser.VectorSelector) string {
	if vs.Name != "" {
		return vs.Name
	}
	for _, m := range vs.LabelMatchers {
		if m.Name == labels.MetricName && m.Type == labels.MatchEqual {
			return m.Value
		}
	}
	return ""
}

// walk visits n and its children depth-first, left to right. Every expression node kind is
// handled explicitly; leaves have no children.
func walk(n parser.Node, visit func(parser.Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch e := n.(type) {
	case *parser.BinaryExpr:
		walk(e.LHS, visit)
		walk(e.RHS, visit)
	case *parser.ParenExpr:
		walk(e.Expr, visit)
	case *parser.UnaryExpr:
		walk(e.Expr, visit)
	case *parser.AggregateExpr:
		if e.Param != nil {
			walk(e.Param, visit)
		}
		walk(e.Expr, visit)
	case *parser.Call:
		for _, arg := range e.Args {
			walk(arg, visit)
		}
	case *parser.MatrixSelector:
		walk(e.VectorSelector, visit)
	case *parser.SubqueryExpr:
		walk(e.Expr, visit)
	case *parser.StepInvariantExpr:
		walk(e.Expr, visit)
	case *parser.VectorSelector, *parser.NumberLiteral, *parser.StringLiteral:
	}
}
