package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupDictionary(t *testing.T) {
	dict := model.Dictionary{"mysql_up": {MapsTo: "mysql_up", GoldenRule: "MariaDBDown"}}

	entry := LookupDictionary("mysql_up", dict)
	require.NotNil(t, entry)
	assert.Equal(t, "MariaDBDown", entry.GoldenRule)

	assert.Nil(t, LookupDictionary("other", dict))
	assert.Nil(t, LookupDictionary("mysql_up", nil))
}

func TestLoadDictionary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metric-dictionary.yaml")
	content := `
mysql_global_status_threads_connected:
  maps_to: mysql_connections
  golden_rule: MariaDBHighConnections
  rule_pack: mariadb
  note: covered by the mariadb pack
redis_connected_clients:
  maps_to: redis_clients
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	dict, err := LoadDictionary(path)
	require.NoError(t, err)
	assert.Len(t, dict, 2)
	assert.Equal(t, "mariadb", dict["mysql_global_status_threads_connected"].RulePack)
	assert.Empty(t, dict["redis_connected_clients"].GoldenRule)
}

func TestLoadDictionaryMissingFile(t *testing.T) {
	dict, err := LoadDictionary(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, dict)

	dict, err = LoadDictionary("")
	require.NoError(t, err)
	assert.Empty(t, dict)
}

func TestLoadDictionaryMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0o644))
	_, err := LoadDictionary(path)
	assert.Error(t, err)
}
