package migration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/qiniu/rulemigrator/internal/migration/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyRules = `
groups:
  - name: redis
    rules:
      - alert: RedisClients
        expr: redis_connected_clients > 500
        labels:
          severity: warning
      - alert: RedisMemory
        expr: redis_memory_used_bytes / redis_memory_max_bytes * 100 > 90
        labels:
          severity: critical
`

const dictionary = `
redis_connected_clients:
  maps_to: redis_clients
  golden_rule: RedisTooManyClients
  rule_pack: redis
`

func testConfig(t *testing.T, dryRun bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "legacy.yml")
	dict := filepath.Join(dir, "metric-dictionary.yaml")
	require.NoError(t, os.WriteFile(input, []byte(legacyRules), 0o644))
	require.NoError(t, os.WriteFile(dict, []byte(dictionary), 0o644))
	return &config.Config{
		Input:  input,
		DryRun: dryRun,
		Migration: config.MigrationConfig{
			Prefix:         "custom_",
			Analyzer:       "ast",
			DictionaryFile: dict,
			OutputDir:      filepath.Join(dir, "out"),
		},
	}
}

func TestRunOnceWritesOutput(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, false)
	srv, err := NewMigrationServer(ctx, cfg)
	require.NoError(t, err)
	defer srv.Close(ctx)

	report, err := srv.RunOnce(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Golden)
	assert.Equal(t, 1, report.Summary.Convertible)

	for _, name := range []string{output.TenantConfigFile, output.RecordingRulesFile, output.AlertRulesFile, output.ReportFile, output.TriageFile, output.PrefixMappingFile} {
		assert.FileExists(t, filepath.Join(cfg.Migration.OutputDir, name))
	}
}

func TestRunOnceDryRun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, true)
	srv, err := NewMigrationServer(ctx, cfg)
	require.NoError(t, err)
	defer srv.Close(ctx)

	var buf bytes.Buffer
	_, err = srv.RunOnce(ctx, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[golden] RedisClients: RedisTooManyClients")
	assert.NoDirExists(t, cfg.Migration.OutputDir)
}

func TestRunOnceMissingInput(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, false)
	cfg.Input = filepath.Join(t.TempDir(), "missing.yml")
	srv, err := NewMigrationServer(ctx, cfg)
	require.NoError(t, err)
	_, err = srv.RunOnce(ctx, nil)
	assert.Error(t, err)
}
