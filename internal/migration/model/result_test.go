package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityDefault(t *testing.T) {
	assert.Equal(t, SeverityWarning, LegacyRule{}.Severity())
	assert.Equal(t, SeverityCritical, LegacyRule{Labels: map[string]string{"severity": "critical"}}.Severity())
}

func TestSummarizeGoldenOnlyCountsParsed(t *testing.T) {
	results := []*MigrationResult{
		{AlertName: "Perfect1", Status: StatusAuto, TriageAction: TriageAuto},
		{AlertName: "PerfectGolden", Status: StatusAuto, TriageAction: TriageUseGolden},
		{AlertName: "UnsupportedGolden", Status: StatusUnsupported, TriageAction: TriageUseGolden},
	}
	s := Summarize(results)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Auto)
	assert.Equal(t, 1, s.Unsupported)
	assert.Equal(t, 2, s.Golden)
	assert.Equal(t, 1, s.Convertible)
}

func TestCloneIsIndependent(t *testing.T) {
	r := &MigrationResult{AlertRules: []AlertRule{{Alert: "A", Expr: "x"}}}
	c := r.Clone()
	c.AlertRules[0].Expr = "y"
	assert.Equal(t, "x", r.AlertRules[0].Expr)
}
