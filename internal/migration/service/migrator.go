// Package service turns legacy alert rules into the multi-tenant rule bundle: a tenant
// threshold entry, an aggregation and a threshold recording rule, and a tenant-joined alert.
package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	promModel "github.com/prometheus/common/model"
	"github.com/qiniu/rulemigrator/internal/migration/analyzer"
	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/qiniu/rulemigrator/internal/migration/rewrite"
	"github.com/rs/zerolog/log"
)

// Options controls rule synthesis.
type Options struct {
	// Prefix namespaces generated metric keys, e.g. "custom_". Empty disables shadow mode.
	Prefix string
	// Dictionary redirects known metrics to golden-standard rules.
	Dictionary model.Dictionary
	// RenameSourceMetrics also applies Prefix to the metric names inside the recording rule
	// expression, for sources already relabeled into the prefixed namespace.
	RenameSourceMetrics bool
}

// Migrator processes legacy rules one at a time. It holds no per-rule state.
type Migrator struct {
	analyzer analyzer.Analyzer
	rewriter *rewrite.Rewriter
	opts     Options
	metrics  *Metrics
}

func NewMigrator(a analyzer.Analyzer, opts Options) *Migrator {
	return &Migrator{analyzer: a, rewriter: rewrite.New(a), opts: opts}
}

// WithMetrics attaches batch counters.
func (m *Migrator) WithMetrics(metrics *Metrics) *Migrator {
	m.metrics = metrics
	return m
}

// Analyzer exposes the backend in use.
func (m *Migrator) Analyzer() analyzer.Analyzer { return m.analyzer }

// Process migrates one rule. Rules without an alert name (recording rules) yield nil.
func (m *Migrator) Process(rule model.LegacyRule) *model.MigrationResult {
	if rule.Alert == "" {
		return nil
	}
	res := &model.MigrationResult{
		AlertName:    rule.Alert,
		Severity:     rule.Severity(),
		OriginalExpr: rule.Expr,
	}

	parsed, err := analyzer.ParseThreshold(m.analyzer, rule.Expr)
	if err == nil && m.analyzer.HasSemanticBreak(rule.Expr) {
		err = model.ErrSemanticBreak
	}
	if err != nil {
		return m.unsupported(res, rule, err)
	}

	res.PrimaryMetric = parsed.PrimaryMetric
	res.Op = parsed.Op
	res.AggMode, res.AggReason = analyzer.GuessAggregation(parsed.PrimaryMetric, parsed.LHS)
	res.DimensionHints = m.analyzer.LabelMatchers(rule.Expr)
	if parsed.IsComplex {
		res.Status, res.TriageAction = model.StatusNeedsReview, model.TriageReview
	} else {
		res.Status, res.TriageAction = model.StatusAuto, model.TriageAuto
	}

	if entry := LookupDictionary(parsed.PrimaryMetric, m.opts.Dictionary); entry != nil {
		res.DictMatch = entry
		if entry.GoldenRule != "" {
			res.TriageAction = model.TriageUseGolden
			res.Notes = append(res.Notes, fmt.Sprintf("use golden rule %s from rule pack %s", entry.GoldenRule, entry.RulePack))
			m.metrics.observeResult(res.Status, res.TriageAction)
			return res
		}
	}

	lhs := m.rewriteLHS(parsed, res)
	m.synthesize(res, rule, parsed, lhs)
	m.metrics.observeResult(res.Status, res.TriageAction)
	return res
}

func (m *Migrator) unsupported(res *model.MigrationResult, rule model.LegacyRule, reason error) *model.MigrationResult {
	res.Status = model.StatusUnsupported
	res.TriageAction = model.TriageSkip
	res.FallbackPrompt = FallbackPrompt(rule, reason)
	res.Notes = append(res.Notes, reason.Error())
	log.Debug().Str("alert", rule.Alert).Err(reason).Msg("rule routed to manual conversion")
	m.metrics.observeResult(res.Status, res.TriageAction)
	return res
}

// rewriteLHS applies the optional source rename and then tenant-label injection. A rewrite
// that fails validation is dropped and noted.
func (m *Migrator) rewriteLHS(parsed *model.ParsedThreshold, res *model.MigrationResult) string {
	lhs := parsed.LHS
	targets := parsed.Metrics

	if m.opts.Prefix != "" && m.opts.RenameSourceMetrics && len(parsed.Metrics) > 0 {
		names := make(map[string]string, len(parsed.Metrics))
		renamed := make([]string, 0, len(parsed.Metrics))
		for _, name := range parsed.Metrics {
			names[name] = m.opts.Prefix + name
			renamed = append(renamed, m.opts.Prefix+name)
		}
		out := m.rewriter.Prefix(lhs, names)
		if out.Reverted {
			res.Notes = append(res.Notes, "prefix rewrite reverted: "+out.Err.Error())
			m.metrics.observeRevert("prefix")
		} else if out.Changed {
			lhs, targets = out.Expr, renamed
		}
	}

	out := m.rewriter.TenantLabel(lhs, targets)
	if out.Reverted {
		res.Notes = append(res.Notes, "tenant label rewrite reverted: "+out.Err.Error())
		m.metrics.observeRevert("tenant_label")
	}
	return out.Expr
}

func (m *Migrator) synthesize(res *model.MigrationResult, rule model.LegacyRule, parsed *model.ParsedThreshold, lhs string) {
	metric := m.opts.Prefix + parsed.PrimaryMetric
	suffix := ""
	if res.Severity == model.SeverityCritical {
		suffix = model.CriticalSuffix
	}

	res.TenantConfig = &model.ConfigEntry{Key: metric + suffix, Value: parsed.Value}

	aggRecord := AggregationRecord(metric, res.AggMode)
	thresholdRecord := ThresholdRecord(metric, suffix)
	res.RecordingRules = []model.RecordingRule{
		{
			Record: aggRecord,
			Expr:   fmt.Sprintf("%s by(tenant) (%s)", res.AggMode, lhs),
		},
		{
			Record: thresholdRecord,
			Expr:   fmt.Sprintf(`max by(tenant) (user_threshold{metric="%s", severity="%s"})`, metric, res.Severity),
		},
	}

	alert := model.AlertRule{
		Alert: rule.Alert,
		Expr: fmt.Sprintf("(\n  %s\n  %s on(tenant) group_left\n  %s\n)\n%s",
			aggRecord, parsed.Op, thresholdRecord, maintenanceClause),
		Annotations: copyMap(rule.Annotations),
	}
	if rule.For != "" {
		if _, err := promModel.ParseDuration(rule.For); err != nil {
			res.Notes = append(res.Notes, fmt.Sprintf("dropped invalid for duration %q: %v", rule.For, err))
		} else {
			alert.For = rule.For
		}
	}
	labels := copyMap(rule.Labels)
	if m.opts.Prefix != "" {
		if labels == nil {
			labels = map[string]string{}
		}
		labels["source"] = "legacy"
		labels["migration_status"] = "shadow"
		alert.Alert = alertPrefix(m.opts.Prefix) + rule.Alert
	}
	alert.Labels = labels
	res.AlertRules = []model.AlertRule{alert}
}

const maintenanceClause = `unless on(tenant) (user_state_filter{filter="maintenance"} == 1)`

// AggregationRecord names the per-tenant aggregation recording rule.
func AggregationRecord(metric, mode string) string {
	return fmt.Sprintf("tenant:%s:%s", metric, mode)
}

// ThresholdRecord names the per-tenant threshold recording rule.
func ThresholdRecord(metric, suffix string) string {
	return fmt.Sprintf("tenant:alert_threshold:%s%s", metric, suffix)
}

// alertPrefix turns a metric prefix such as "custom_" into an alert name prefix "Custom".
func alertPrefix(prefix string) string {
	var b strings.Builder
	upper := true
	for _, r := range prefix {
		if r == '_' || r == '-' || r == ':' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// safeProcess converts a panic in one rule into an unsupported result so the batch continues.
func (m *Migrator) safeProcess(rule model.LegacyRule) (res *model.MigrationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("alert", rule.Alert).Interface("panic", r).Msg("rule processing panicked")
			res = m.unsupported(&model.MigrationResult{
				AlertName:    rule.Alert,
				Severity:     rule.Severity(),
				OriginalExpr: rule.Expr,
			}, rule, errors.New(fmt.Sprint("internal error: ", r)))
		}
	}()
	return m.Process(rule)
}
