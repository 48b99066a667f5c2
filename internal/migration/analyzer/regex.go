package analyzer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
)

// regexAnalyzer approximates the AST analyzer with a lexical scan. It is used when the
// parser is unavailable and as the conservative fallback for primary metric detection.
type regexAnalyzer struct{}

// NewRegex returns the lexical analyzer.
func NewRegex() Analyzer { return &regexAnalyzer{} }

func (r *regexAnalyzer) Kind() string { return KindRegex }

var (
	semanticBreakRe = regexp.MustCompile(`\b(absent|absent_over_time|vector|scalar|predict_linear|holt_winters|label_replace|label_join)\s*\(`)
	selectorBlockRe = regexp.MustCompile(`([a-zA-Z_:][a-zA-Z0-9_:]*)\{([^}]*)\}`)
	labelPairRe     = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*(=~|!=|!~|=)\s*"([^"]*)"`)
)

// Validate checks that brackets are balanced and string literals are closed.
func (r *regexAnalyzer) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return errors.New("empty expression")
	}
	var stack []byte
	closing := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch ch {
		case '"', '\'', '`':
			end := skipString(expr, i)
			if end < 0 {
				return fmt.Errorf("unterminated string at offset %d", i)
			}
			i = end
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != closing[ch] {
				return fmt.Errorf("unbalanced %q at offset %d", ch, i)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q", stack[len(stack)-1])
	}
	return nil
}

// MetricNames scans identifiers, skipping function names, keywords, grouping label lists,
// label blocks, range/subquery brackets, string literals and numbers.
func (r *regexAnalyzer) MetricNames(expr string) []string {
	if r.Validate(expr) != nil {
		return nil
	}
	var names []string
	seen := map[string]struct{}{}
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == '"' || ch == '\'' || ch == '`':
			i = skipString(expr, i) + 1
		case ch == '{':
			i = skipTo(expr, i, '}') + 1
		case ch == '[':
			i = skipTo(expr, i, ']') + 1
		case isDigit(ch) || (ch == '.' && i+1 < len(expr) && isDigit(expr[i+1])):
			for i < len(expr) && (isIdentChar(expr[i]) || expr[i] == '.') {
				i++
			}
		case isIdentStart(ch):
			start := i
			for i < len(expr) && isIdentChar(expr[i]) {
				i++
			}
			word := expr[start:i]
			next := nextNonSpace(expr, i)
			switch {
			case isGroupingKeyword(word):
				if next < len(expr) && expr[next] == '(' {
					i = skipTo(expr, next, ')') + 1
				}
			case isPromQLWord(word), next < len(expr) && expr[next] == '(':
			default:
				names = appendUnique(names, seen, word)
			}
		default:
			i++
		}
	}
	return names
}

func (r *regexAnalyzer) HasSemanticBreak(expr string) bool {
	return semanticBreakRe.MatchString(expr)
}

func (r *regexAnalyzer) LabelMatchers(expr string) []model.DimensionHint {
	var hints []model.DimensionHint
	for _, m := range selectorBlockRe.FindAllStringSubmatch(expr, -1) {
		dims := map[string]string{}
		for _, pair := range labelPairRe.FindAllStringSubmatch(m[2], -1) {
			if pair[2] != "=" || isInfraLabel(pair[1]) {
				continue
			}
			dims[pair[1]] = pair[3]
		}
		if len(dims) > 0 {
			hints = append(hints, model.DimensionHint{Metric: m[1], Labels: dims})
		}
	}
	return hints
}

// skipString returns the index of the closing quote of the literal starting at i, or -1.
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] == '\\' && quote != '`' {
			j++
			continue
		}
		if s[j] == quote {
			return j
		}
	}
	return -1
}

// skipTo returns the index of the bracket closing the one at i, honoring nesting and strings.
func skipTo(s string, i int, closer byte) int {
	opener := s[i]
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '"', '\'', '`':
			if end := skipString(s, j); end >= 0 {
				j = end
			}
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(s) - 1
}

func nextNonSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == ':' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

func isGroupingKeyword(w string) bool {
	switch strings.ToLower(w) {
	case "by", "without", "on", "ignoring", "group_left", "group_right":
		return true
	}
	return false
}

// promqlWords are function names, operators and modifiers that are never metric names.
var promqlWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		abs absent absent_over_time acos acosh asin asinh atan atanh avg avg_over_time
		bottomk ceil changes clamp clamp_max clamp_min cos cosh count count_over_time
		count_values day_of_month day_of_week day_of_year days_in_month deg delta deriv
		double_exponential_smoothing exp floor group histogram_avg histogram_count
		histogram_fraction histogram_quantile histogram_stddev histogram_stdvar histogram_sum
		holt_winters hour idelta increase info irate label_join label_replace last_over_time
		limitk limit_ratio ln log10 log2 mad_over_time max max_over_time min min_over_time
		minute month pi predict_linear present_over_time quantile quantile_over_time rad rate
		resets round scalar sgn sin sinh sort sort_by_label sort_by_label_desc sort_desc sqrt
		stddev stddev_over_time stdvar stdvar_over_time sum sum_over_time tan tanh time
		timestamp topk vector year
		by without on ignoring group_left group_right bool and or unless offset atan2
		start end inf nan`) {
		promqlWords[w] = struct{}{}
	}
}

func isPromQLWord(w string) bool {
	_, ok := promqlWords[strings.ToLower(w)]
	return ok
}
