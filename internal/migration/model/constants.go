package model

// Result status
const (
	StatusAuto        = "auto"
	StatusNeedsReview = "needs_review"
	StatusUnsupported = "unsupported"
)

// Triage actions
const (
	TriageAuto      = "auto"
	TriageReview    = "review"
	TriageSkip      = "skip"
	TriageUseGolden = "use_golden"
)

// Aggregation modes
const (
	AggSum = "sum"
	AggMax = "max"
)

const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// CriticalSuffix is appended to tenant config keys and threshold recordings of critical rules.
const CriticalSuffix = "_critical"

// TenantMatcher is the label matcher injected into migrated selectors.
const TenantMatcher = `tenant=~".+"`

// UnknownMetric is the primary metric when no identifier could be extracted.
const UnknownMetric = "unknown_metric"
