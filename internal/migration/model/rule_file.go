package model

// LegacyRule is a single rule entry of a legacy Prometheus rule file.
type LegacyRule struct {
	Alert       string            `yaml:"alert" json:"alert"`
	Expr        string            `yaml:"expr" json:"expr"`
	For         string            `yaml:"for,omitempty" json:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// Severity returns labels.severity, defaulting to warning.
func (r LegacyRule) Severity() string {
	if s := r.Labels["severity"]; s != "" {
		return s
	}
	return SeverityWarning
}

// LegacyRuleGroup is a named group of legacy rules.
type LegacyRuleGroup struct {
	Name  string       `yaml:"name" json:"name"`
	Rules []LegacyRule `yaml:"rules" json:"rules"`
}

// LegacyRuleFile is the input document: groups: [{name, rules: [...]}].
type LegacyRuleFile struct {
	Groups []LegacyRuleGroup `yaml:"groups" json:"groups"`
}

// RecordingRule is a generated platform recording rule.
type RecordingRule struct {
	Record string `yaml:"record" json:"record"`
	Expr   string `yaml:"expr" json:"expr"`
}

// AlertRule is a generated platform alert rule.
type AlertRule struct {
	Alert       string            `yaml:"alert" json:"alert"`
	Expr        string            `yaml:"expr" json:"expr"`
	For         string            `yaml:"for,omitempty" json:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// RecordingRuleGroup and AlertRuleGroup mirror the Prometheus rule file layout for output.
type RecordingRuleGroup struct {
	Name  string          `yaml:"name"`
	Rules []RecordingRule `yaml:"rules"`
}

type AlertRuleGroup struct {
	Name  string      `yaml:"name"`
	Rules []AlertRule `yaml:"rules"`
}

type RecordingRuleFile struct {
	Groups []RecordingRuleGroup `yaml:"groups"`
}

type AlertRuleFile struct {
	Groups []AlertRuleGroup `yaml:"groups"`
}
