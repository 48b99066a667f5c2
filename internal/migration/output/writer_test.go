package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qiniu/rulemigrator/internal/migration/analyzer"
	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/qiniu/rulemigrator/internal/migration/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport(t *testing.T, prefix string) *service.Report {
	t.Helper()
	dict := model.Dictionary{"mysql_up": {GoldenRule: "MariaDBDown", RulePack: "mariadb"}}
	m := service.NewMigrator(analyzer.NewAST(), service.Options{Prefix: prefix, Dictionary: dict})
	sev := func(s string) map[string]string { return map[string]string{"severity": s} }
	return m.Run(&model.LegacyRuleFile{Groups: []model.LegacyRuleGroup{{
		Name: "legacy",
		Rules: []model.LegacyRule{
			{Alert: "ConnWarn", Expr: "mysql_connections > 100", For: "5m", Labels: sev("warning")},
			{Alert: "ConnCrit", Expr: "mysql_connections > 200", Labels: sev("critical")},
			{Alert: "QueueDeep", Expr: `rate(redis_queue_length{queue="tasks"}[5m]) > 10`, Labels: sev("warning")},
			{Alert: "Down", Expr: "mysql_up == 0", Labels: sev("critical")},
			{Alert: "Gone", Expr: `absent(mysql_up{job="mysql"}) == 1`, Labels: sev("critical")},
		},
	}}})
}

func artifact(t *testing.T, artifacts []Artifact, name string) []byte {
	t.Helper()
	for _, a := range artifacts {
		if a.Name == name {
			return a.Data
		}
	}
	t.Fatalf("artifact %s not rendered", name)
	return nil
}

func TestRenderRuleFiles(t *testing.T) {
	artifacts, err := Render(sampleReport(t, "custom_"))
	require.NoError(t, err)

	var recording model.RecordingRuleFile
	require.NoError(t, yaml.Unmarshal(artifact(t, artifacts, RecordingRulesFile), &recording))
	require.Len(t, recording.Groups, 1)
	assert.Equal(t, recordingGroupName, recording.Groups[0].Name)
	assert.Len(t, recording.Groups[0].Rules, 6)

	var alerts model.AlertRuleFile
	require.NoError(t, yaml.Unmarshal(artifact(t, artifacts, AlertRulesFile), &alerts))
	require.Len(t, alerts.Groups, 1)
	require.Len(t, alerts.Groups[0].Rules, 3)
	assert.Equal(t, "CustomConnWarn", alerts.Groups[0].Rules[0].Alert)
	assert.Equal(t, "5m", alerts.Groups[0].Rules[0].For)
	assert.Equal(t, 2, strings.Count(alerts.Groups[0].Rules[0].Expr, "unless"))

	a := analyzer.NewAST()
	for _, r := range recording.Groups[0].Rules {
		assert.NoError(t, a.Validate(r.Expr), r.Record)
	}
	for _, r := range alerts.Groups[0].Rules {
		assert.NoError(t, a.Validate(r.Expr), r.Alert)
	}
}

func TestRenderTenantConfig(t *testing.T) {
	artifacts, err := Render(sampleReport(t, "custom_"))
	require.NoError(t, err)
	data := artifact(t, artifacts, TenantConfigFile)

	values := map[string]string{}
	require.NoError(t, yaml.Unmarshal(data, &values))
	assert.Equal(t, map[string]string{
		"custom_mysql_connections":          "100",
		"custom_mysql_connections_critical": "200",
		"custom_redis_queue_length":         "10",
	}, values)

	text := string(data)
	assert.Contains(t, text, "From: ConnWarn (severity: warning)")
	assert.Contains(t, text, `custom_redis_queue_length{queue="tasks"}`)
}

func TestRenderTriageAndMapping(t *testing.T) {
	artifacts, err := Render(sampleReport(t, "custom_"))
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(artifact(t, artifacts, TriageFile))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "alert_name", rows[0][0])
	assert.Equal(t, []string{"Down", "critical", model.StatusAuto, model.TriageUseGolden}, rows[4][:4])
	assert.Equal(t, "MariaDBDown", rows[4][7])
	assert.Equal(t, model.TriageSkip, rows[5][3])

	mapping := map[string]PrefixMapping{}
	require.NoError(t, yaml.Unmarshal(artifact(t, artifacts, PrefixMappingFile), &mapping))
	assert.Equal(t, PrefixMapping{OriginalMetric: "mysql_connections", AlertName: "ConnWarn"}, mapping["custom_mysql_connections"])
	assert.NotContains(t, mapping, "custom_mysql_up")
}

func TestRenderWithoutPrefixSkipsMapping(t *testing.T) {
	artifacts, err := Render(sampleReport(t, ""))
	require.NoError(t, err)
	for _, a := range artifacts {
		assert.NotEqual(t, PrefixMappingFile, a.Name)
	}
}

func TestRenderReport(t *testing.T) {
	artifacts, err := Render(sampleReport(t, "custom_"))
	require.NoError(t, err)
	text := string(artifact(t, artifacts, ReportFile))
	assert.Contains(t, text, "total rules: 5")
	assert.Contains(t, text, "convertible: 3")
	assert.Contains(t, text, "suppression pairs: 1")
	assert.Contains(t, text, "### Gone ###")
	assert.Contains(t, text, "use MariaDBDown from rule pack mariadb")
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migration_output")
	paths, err := Write(dir, sampleReport(t, "custom_"))
	require.NoError(t, err)
	assert.Len(t, paths, 6)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, sampleReport(t, "custom_"))
	out := buf.String()
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, `custom_mysql_connections: "100"`)
	assert.Contains(t, out, "[skip] Gone")
	assert.Contains(t, out, "[golden] Down: MariaDBDown")
}

func TestRenderEmptyReport(t *testing.T) {
	artifacts, err := Render(&service.Report{})
	require.NoError(t, err)
	assert.Len(t, artifacts, 5)
	values := map[string]string{}
	require.NoError(t, yaml.Unmarshal(artifact(t, artifacts, TenantConfigFile), &values))
	assert.Empty(t, values)
}
