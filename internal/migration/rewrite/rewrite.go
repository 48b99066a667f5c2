// Package rewrite performs validated textual surgery on PromQL expressions. Every transform
// is followed by a reparse; a transform whose output does not reparse is discarded.
package rewrite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/rs/zerolog/log"
)

// Validator reparses an expression. analyzer.Analyzer satisfies it.
type Validator interface {
	Validate(expr string) error
}

// Outcome is the result of one transform.
type Outcome struct {
	Expr     string
	Changed  bool
	Reverted bool
	Err      error // validation error when Reverted
}

// Rewriter applies the prefix and tenant-label transforms.
type Rewriter struct {
	v Validator
}

func New(v Validator) *Rewriter { return &Rewriter{v: v} }

// Prefix renames every whole-identifier occurrence of each key of names to its value.
// Identifiers that merely contain a key, such as mysql_connections_total for
// mysql_connections, are left alone.
func (r *Rewriter) Prefix(expr string, names map[string]string) Outcome {
	olds := make([]string, 0, len(names))
	for old := range names {
		olds = append(olds, old)
	}
	// longest first so a short name never shadows a longer one in the same pass
	sort.Slice(olds, func(i, j int) bool {
		if len(olds[i]) != len(olds[j]) {
			return len(olds[i]) > len(olds[j])
		}
		return olds[i] < olds[j]
	})

	out := expr
	for _, old := range olds {
		if old == "" || old == names[old] {
			continue
		}
		out = replaceIdent(out, old, names[old])
	}
	return r.validate("prefix", expr, out)
}

// TenantLabel injects tenant=~".+" into the selectors of each metric. When a metric already
// has a matcher block anywhere in expr, the matcher is inserted as the first entry of every
// such block and bare occurrences of that metric are left as they are. Otherwise
// {tenant=~".+"} is appended to each bare occurrence.
func (r *Rewriter) TenantLabel(expr string, metrics []string) Outcome {
	out := expr
	for _, m := range metrics {
		if m == "" {
			continue
		}
		if hasBracedOccurrence(out, m) {
			out = rewriteIdents(out, m, func(b *strings.Builder, rest string) int {
				b.WriteString(m)
				if strings.HasPrefix(rest, "{") {
					b.WriteString("{" + model.TenantMatcher + ",")
					return 1
				}
				return 0
			})
			continue
		}
		out = rewriteIdents(out, m, func(b *strings.Builder, rest string) int {
			b.WriteString(m + "{" + model.TenantMatcher + "}")
			return 0
		})
	}
	return r.validate("tenant_label", expr, out)
}

func (r *Rewriter) validate(transform, before, after string) Outcome {
	if after == before {
		return Outcome{Expr: before}
	}
	if err := r.v.Validate(after); err != nil {
		log.Debug().Err(err).Str("transform", transform).Str("expr", before).Msg("rewrite failed validation, reverted")
		return Outcome{Expr: before, Reverted: true, Err: fmt.Errorf("%w: %s: %v", model.ErrRewriteInvalid, transform, err)}
	}
	return Outcome{Expr: after, Changed: true}
}

// rewriteIdents copies s, handing every whole-identifier occurrence of name found outside
// string literals to emit. emit writes the replacement, may look at the text that follows,
// and returns how many bytes of it it consumed.
func rewriteIdents(s, name string, emit func(b *strings.Builder, rest string) int) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		ch := s[i]
		if ch == '"' || ch == '\'' || ch == '`' {
			end := closingQuote(s, i)
			b.WriteString(s[i : end+1])
			i = end + 1
			continue
		}
		if identAt(s, i, name) {
			end := i + len(name)
			i = end + emit(&b, s[end:])
			continue
		}
		b.WriteByte(ch)
		i++
	}
	return b.String()
}

func hasBracedOccurrence(s, name string) bool {
	found := false
	rewriteIdents(s, name, func(b *strings.Builder, rest string) int {
		if strings.HasPrefix(rest, "{") {
			found = true
		}
		return 0
	})
	return found
}

func replaceIdent(s, old, repl string) string {
	return rewriteIdents(s, old, func(b *strings.Builder, rest string) int {
		b.WriteString(repl)
		return 0
	})
}

// identAt reports whether s[i:i+len(name)] is name delimited by non-identifier characters.
func identAt(s string, i int, name string) bool {
	if !strings.HasPrefix(s[i:], name) {
		return false
	}
	if i > 0 && isIdentChar(s[i-1]) {
		return false
	}
	end := i + len(name)
	return end >= len(s) || !isIdentChar(s[end])
}

// closingQuote returns the index of the quote closing the literal at i, or len(s)-1.
func closingQuote(s string, i int) int {
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
	return len(s) - 1
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch == ':' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
