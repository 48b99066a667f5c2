package service

import (
	"fmt"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
)

// PairSuppression links warning and critical results that share a base key (the tenant config
// key without the _critical suffix) and appends a clause to the warning alert that silences
// it while the critical threshold is also breached.
//
// The input is not modified; the returned slice holds copies of the mutated warnings. The
// pass is not idempotent: running it over its own output appends the clause a second time.
func PairSuppression(results []*model.MigrationResult) ([]*model.MigrationResult, int) {
	type pair struct{ warning, critical int }
	pairs := map[string]*pair{}
	var order []string

	for i, r := range results {
		if !pairable(r) {
			continue
		}
		base := BaseKey(r.TenantConfig.Key)
		p, ok := pairs[base]
		if !ok {
			p = &pair{warning: -1, critical: -1}
			pairs[base] = p
			order = append(order, base)
		}
		switch r.Severity {
		case model.SeverityWarning:
			if p.warning < 0 {
				p.warning = i
			}
		case model.SeverityCritical:
			if p.critical < 0 {
				p.critical = i
			}
		}
	}

	out := append([]*model.MigrationResult(nil), results...)
	count := 0
	for _, base := range order {
		p := pairs[base]
		if p.warning < 0 || p.critical < 0 {
			continue
		}
		warning, critical := results[p.warning], results[p.critical]
		updated := warning.Clone()
		updated.AlertRules[0].Expr += fmt.Sprintf("\nunless on(tenant) (%s %s on(tenant) group_left %s)",
			warning.RecordingRules[0].Record, warning.Op, critical.RecordingRules[1].Record)
		updated.Notes = append(updated.Notes, "suppressed while "+critical.AlertName+" is firing")
		out[p.warning] = updated
		count++
	}
	return out, count
}

// BaseKey strips the critical suffix from a tenant config key.
func BaseKey(key string) string {
	return strings.TrimSuffix(key, model.CriticalSuffix)
}

func pairable(r *model.MigrationResult) bool {
	if r == nil || r.Status == model.StatusUnsupported || r.TriageAction == model.TriageUseGolden {
		return false
	}
	return r.TenantConfig != nil && len(r.RecordingRules) == 2 && len(r.AlertRules) == 1
}
