package service

import (
	"fmt"
	"strings"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"gopkg.in/yaml.v3"
)

// FallbackPrompt builds the manual/assisted conversion request for a rule that cannot be
// migrated automatically. The original rule is embedded verbatim as YAML.
func FallbackPrompt(rule model.LegacyRule, reason error) string {
	var b strings.Builder
	b.WriteString("Convert the following legacy Prometheus alert into the dynamic multi-tenant form:\n")
	b.WriteString("Requirements:\n")
	b.WriteString("1. Extract the threshold and provide a tenant threshold config example.\n")
	b.WriteString("2. Provide a recording rule aggregating with sum/max by(tenant).\n")
	b.WriteString("3. Provide an alert rule joining the threshold with on(tenant) group_left and suppressed by unless maintenance.\n")
	b.WriteString("4. If dimension labels are present (e.g. queue, db, index), show them as \"metric{label=\\\"value\\\"}\" keys.\n")
	if reason != nil {
		fmt.Fprintf(&b, "\nAutomatic conversion skipped: %v\n", reason)
	}
	b.WriteString("\nOriginal rule:\n")
	data, err := yaml.Marshal([]model.LegacyRule{rule})
	if err != nil {
		fmt.Fprintf(&b, "- alert: %s\n  expr: %s\n", rule.Alert, rule.Expr)
		return b.String()
	}
	b.Write(data)
	return b.String()
}
