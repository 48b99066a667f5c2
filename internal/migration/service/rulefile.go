package service

import (
	"fmt"
	"os"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"gopkg.in/yaml.v3"
)

// ParseRuleFile decodes a legacy Prometheus rule file.
func ParseRuleFile(data []byte) (*model.LegacyRuleFile, error) {
	var file model.LegacyRuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if len(file.Groups) == 0 {
		return nil, fmt.Errorf("rule file has no groups")
	}
	return &file, nil
}

// LoadRuleFile reads and decodes the rule file at path.
func LoadRuleFile(path string) (*model.LegacyRuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return ParseRuleFile(data)
}
