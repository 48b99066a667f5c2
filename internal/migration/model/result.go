package model

// ParsedThreshold is a legacy expression split into its left-hand side and numeric threshold.
// PrimaryMetric is always a member of Metrics when Metrics is non-empty.
type ParsedThreshold struct {
	LHS           string
	Op            string
	Value         string
	IsComplex     bool
	PrimaryMetric string
	Metrics       []string
}

// ConfigEntry is one key/value line of a tenant threshold config.
type ConfigEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// DictionaryEntry maps a legacy metric to its platform-standard counterpart.
type DictionaryEntry struct {
	MapsTo     string `yaml:"maps_to" json:"maps_to"`
	GoldenRule string `yaml:"golden_rule" json:"golden_rule"`
	RulePack   string `yaml:"rule_pack" json:"rule_pack"`
	Note       string `yaml:"note" json:"note"`
}

// Dictionary is keyed by legacy metric name.
type Dictionary map[string]DictionaryEntry

// DimensionHint lists the equality label matchers found on one selector.
type DimensionHint struct {
	Metric string            `json:"metric"`
	Labels map[string]string `json:"labels"`
}

// MigrationResult is the outcome of migrating one legacy rule.
//
// Status unsupported holds exactly when FallbackPrompt is set, and then RecordingRules and
// AlertRules are empty. TriageAction use_golden implies no TenantConfig and no generated rules.
type MigrationResult struct {
	AlertName      string           `json:"alert_name"`
	Status         string           `json:"status"`
	TriageAction   string           `json:"triage_action"`
	Severity       string           `json:"severity"`
	OriginalExpr   string           `json:"original_expr"`
	PrimaryMetric  string           `json:"primary_metric,omitempty"`
	Op             string           `json:"op,omitempty"`
	AggMode        string           `json:"agg_mode,omitempty"`
	AggReason      string           `json:"agg_reason,omitempty"`
	TenantConfig   *ConfigEntry     `json:"tenant_config,omitempty"`
	RecordingRules []RecordingRule  `json:"recording_rules,omitempty"`
	AlertRules     []AlertRule      `json:"alert_rules,omitempty"`
	DictMatch      *DictionaryEntry `json:"dict_match,omitempty"`
	DimensionHints []DimensionHint  `json:"dimension_hints,omitempty"`
	FallbackPrompt string           `json:"fallback_prompt,omitempty"`
	Notes          []string         `json:"notes,omitempty"`
}

// Clone returns a copy whose slices can be modified without touching r.
func (r *MigrationResult) Clone() *MigrationResult {
	c := *r
	c.RecordingRules = append([]RecordingRule(nil), r.RecordingRules...)
	c.AlertRules = append([]AlertRule(nil), r.AlertRules...)
	c.DimensionHints = append([]DimensionHint(nil), r.DimensionHints...)
	c.Notes = append([]string(nil), r.Notes...)
	return &c
}

// Summary counts results per outcome.
type Summary struct {
	Total       int `json:"total"`
	Auto        int `json:"auto"`
	NeedsReview int `json:"needs_review"`
	Unsupported int `json:"unsupported"`
	Golden      int `json:"golden"`
	Convertible int `json:"convertible"`
}

// Summarize computes counts. Golden matches are only subtracted from the convertible count
// when the rule itself parsed.
func Summarize(results []*MigrationResult) Summary {
	var s Summary
	goldenParsed := 0
	for _, r := range results {
		s.Total++
		switch r.Status {
		case StatusAuto:
			s.Auto++
		case StatusNeedsReview:
			s.NeedsReview++
		case StatusUnsupported:
			s.Unsupported++
		}
		if r.TriageAction == TriageUseGolden {
			s.Golden++
			if r.Status != StatusUnsupported {
				goldenParsed++
			}
		}
	}
	s.Convertible = s.Auto + s.NeedsReview - goldenParsed
	return s
}
