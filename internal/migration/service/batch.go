package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/rs/zerolog/log"
)

// Report is the outcome of one batch run.
type Report struct {
	ID        string                   `json:"id"`
	StartedAt time.Time                `json:"started_at"`
	Analyzer  string                   `json:"analyzer"`
	Prefix    string                   `json:"prefix"`
	Results   []*model.MigrationResult `json:"results"`
	Pairs     int                      `json:"suppression_pairs"`
	Summary   model.Summary            `json:"summary"`
}

// Run migrates every alert rule of file and then runs the suppression pass once over the
// complete result set. A rule that fails never prevents the rest from being processed.
func (m *Migrator) Run(file *model.LegacyRuleFile) *Report {
	report := &Report{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Analyzer:  m.analyzer.Kind(),
		Prefix:    m.opts.Prefix,
	}
	if file == nil {
		return report
	}

	var results []*model.MigrationResult
	for _, group := range file.Groups {
		for _, rule := range group.Rules {
			if res := m.safeProcess(rule); res != nil {
				results = append(results, res)
			}
		}
	}

	report.Results, report.Pairs = PairSuppression(results)
	report.Summary = model.Summarize(report.Results)
	m.metrics.observePairs(report.Pairs)

	log.Info().
		Str("run_id", report.ID).
		Str("analyzer", report.Analyzer).
		Int("total", report.Summary.Total).
		Int("auto", report.Summary.Auto).
		Int("needs_review", report.Summary.NeedsReview).
		Int("unsupported", report.Summary.Unsupported).
		Int("golden", report.Summary.Golden).
		Int("pairs", report.Pairs).
		Msg("migration batch finished")
	return report
}
