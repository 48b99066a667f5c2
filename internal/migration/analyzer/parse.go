package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
)

var (
	thresholdRe     = regexp.MustCompile(`^\s*(.*?)\s*(==|!=|>=|<=|>|<)\s*([0-9.]+(?:[eE][+-]?[0-9]+)?)\s*$`)
	outermostCallRe = regexp.MustCompile(`^\s*([a-zA-Z_]+)\s*\(`)
	complexCharsRe  = regexp.MustCompile(`[()\[\]/+\-*]`)
)

// ParseThreshold splits expr into "<lhs> <op> <number>". It returns model.ErrParseFailure when
// expr does not have that shape and model.ErrSemanticBreak when the outermost call of lhs is a
// semantic-break function.
func ParseThreshold(a Analyzer, expr string) (*model.ParsedThreshold, error) {
	m := thresholdRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, model.ErrParseFailure
	}
	lhs, op, val := strings.TrimSpace(m[1]), m[2], m[3]
	if lhs == "" {
		return nil, model.ErrParseFailure
	}
	if _, err := strconv.ParseFloat(val, 64); err != nil {
		return nil, fmt.Errorf("%w: threshold %q: %v", model.ErrParseFailure, val, err)
	}
	if call := outermostCallRe.FindStringSubmatch(lhs); call != nil && IsSemanticBreakFunc(call[1]) {
		return nil, fmt.Errorf("%w: %s", model.ErrSemanticBreak, call[1])
	}

	metrics := ExtractMetrics(a, lhs)
	primary := model.UnknownMetric
	if len(metrics) > 0 {
		primary = metrics[0]
	}
	return &model.ParsedThreshold{
		LHS:           lhs,
		Op:            op,
		Value:         val,
		IsComplex:     complexCharsRe.MatchString(lhs),
		PrimaryMetric: primary,
		Metrics:       metrics,
	}, nil
}

var conservative = &regexAnalyzer{}

// ExtractMetrics asks a for the metric names of expr and falls back to the lexical scan when
// the backend returns nothing.
func ExtractMetrics(a Analyzer, expr string) []string {
	if names := a.MetricNames(expr); len(names) > 0 {
		return names
	}
	return conservative.MetricNames(expr)
}
