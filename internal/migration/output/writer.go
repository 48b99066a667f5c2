// Package output renders a migration report into the files handed to platform operators.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/qiniu/rulemigrator/internal/migration/service"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	TenantConfigFile     = "tenant-config.yaml"
	RecordingRulesFile   = "platform-recording-rules.yaml"
	AlertRulesFile       = "platform-alert-rules.yaml"
	ReportFile           = "migration-report.txt"
	TriageFile           = "triage-report.csv"
	PrefixMappingFile    = "prefix-mapping.yaml"
	recordingGroupName   = "platform-migrated-recording"
	alertGroupName       = "platform-migrated-alerts"
	tenantConfigHeadline = "Tenant threshold config. Copy the keys below into the tenant block of conf.d/<tenant>.yaml."
)

// PrefixMapping ties a prefixed metric key back to the legacy source.
type PrefixMapping struct {
	OriginalMetric string `yaml:"original_metric" json:"original_metric"`
	AlertName      string `yaml:"alert_name" json:"alert_name"`
}

// Artifact is one rendered output file.
type Artifact struct {
	Name string
	Data []byte
}

// Render builds every output file for report in a fixed order. The prefix mapping is only
// produced when a prefix was in effect and at least one rule was converted.
func Render(report *service.Report) ([]Artifact, error) {
	type renderer struct {
		name string
		fn   func(*service.Report) ([]byte, error)
	}
	renderers := []renderer{
		{TenantConfigFile, renderTenantConfig},
		{RecordingRulesFile, renderRecordingRules},
		{AlertRulesFile, renderAlertRules},
		{ReportFile, renderReport},
		{TriageFile, renderTriage},
	}
	if report.Prefix != "" && hasConverted(report.Results) {
		renderers = append(renderers, renderer{PrefixMappingFile, renderPrefixMapping})
	}

	out := make([]Artifact, 0, len(renderers))
	for _, r := range renderers {
		data, err := r.fn(report)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", r.name, err)
		}
		out = append(out, Artifact{Name: r.name, Data: data})
	}
	return out, nil
}

// Write renders report into dir, creating it when needed, and returns the written paths.
func Write(dir string, report *service.Report) ([]string, error) {
	artifacts, err := Render(report)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.WriteFile(path, a.Data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	log.Info().
		Str("dir", dir).
		Str("run_id", report.ID).
		Int("files", len(paths)).
		Msg("migration output written")
	return paths, nil
}

func converted(r *model.MigrationResult) bool {
	return r.Status != model.StatusUnsupported && r.TriageAction != model.TriageUseGolden && r.TenantConfig != nil
}

func hasConverted(results []*model.MigrationResult) bool {
	for _, r := range results {
		if converted(r) {
			return true
		}
	}
	return false
}

func renderTenantConfig(report *service.Report) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, HeadComment: tenantConfigHeadline}
	seen := map[string]string{}
	var skipped []string

	for _, r := range report.Results {
		if !converted(r) {
			continue
		}
		key, value := r.TenantConfig.Key, r.TenantConfig.Value
		if owner, dup := seen[key]; dup {
			skipped = append(skipped, fmt.Sprintf("%s from %s skipped, already set by %s", key, r.AlertName, owner))
			continue
		}
		seen[key] = r.AlertName

		k := scalar(key)
		k.HeadComment = fmt.Sprintf("From: %s (severity: %s)", r.AlertName, r.Severity)
		for _, hint := range r.DimensionHints {
			k.HeadComment += fmt.Sprintf("\ndimension form: \"%s{%s}\": \"%s\"", service.BaseKey(key), labelPairs(hint.Labels), value)
		}
		v := scalar(value)
		v.Style = yaml.DoubleQuotedStyle
		root.Content = append(root.Content, k, v)
	}
	if len(skipped) > 0 {
		root.FootComment = "duplicate keys:\n" + strings.Join(skipped, "\n")
	}
	if len(root.Content) == 0 {
		return []byte("# " + tenantConfigHeadline + "\n{}\n"), nil
	}
	return encode(root)
}

func renderRecordingRules(report *service.Report) ([]byte, error) {
	rules := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range report.Results {
		if !converted(r) {
			continue
		}
		for i, rr := range r.RecordingRules {
			item := &yaml.Node{}
			if err := item.Encode(rr); err != nil {
				return nil, err
			}
			if i == 0 {
				item.HeadComment = fmt.Sprintf("%s: %s (%s)", r.AlertName, r.AggMode, r.AggReason)
			}
			rules.Content = append(rules.Content, item)
		}
	}
	return encode(groupsDoc(recordingGroupName, rules))
}

func renderAlertRules(report *service.Report) ([]byte, error) {
	rules := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range report.Results {
		if !converted(r) {
			continue
		}
		for _, ar := range r.AlertRules {
			item := &yaml.Node{}
			if err := item.Encode(ar); err != nil {
				return nil, err
			}
			item.HeadComment = fmt.Sprintf("%s (%s)", r.AlertName, r.Status)
			rules.Content = append(rules.Content, item)
		}
	}
	return encode(groupsDoc(alertGroupName, rules))
}

func renderPrefixMapping(report *service.Report) ([]byte, error) {
	mapping := map[string]PrefixMapping{}
	for _, r := range report.Results {
		if !converted(r) {
			continue
		}
		key := report.Prefix + r.PrimaryMetric
		if _, ok := mapping[key]; ok {
			continue
		}
		mapping[key] = PrefixMapping{OriginalMetric: r.PrimaryMetric, AlertName: r.AlertName}
	}
	return yaml.Marshal(mapping)
}

func renderTriage(report *service.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"alert_name", "severity", "status", "triage_action", "primary_metric", "agg_mode", "tenant_config_key", "golden_rule", "notes"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range report.Results {
		key, golden := "", ""
		if r.TenantConfig != nil {
			key = r.TenantConfig.Key
		}
		if r.DictMatch != nil {
			golden = r.DictMatch.GoldenRule
		}
		row := []string{r.AlertName, r.Severity, r.Status, r.TriageAction, r.PrimaryMetric, r.AggMode, key, golden, strings.Join(r.Notes, "; ")}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func groupsDoc(name string, rules *yaml.Node) *yaml.Node {
	group := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		scalar("name"), scalar(name),
		scalar("rules"), rules,
	}}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		scalar("groups"), {Kind: yaml.SequenceNode, Content: []*yaml.Node{group}},
	}}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func encode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func labelPairs(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, k, labels[k]))
	}
	return strings.Join(pairs, ", ")
}
