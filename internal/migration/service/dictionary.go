package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/qiniu/rulemigrator/internal/migration/model"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LookupDictionary returns the entry for metric, or nil. A nil dictionary never matches.
func LookupDictionary(metric string, dict model.Dictionary) *model.DictionaryEntry {
	if dict == nil {
		return nil
	}
	entry, ok := dict[metric]
	if !ok {
		return nil
	}
	return &entry
}

// LoadDictionary reads a metric dictionary YAML file. A missing file yields an empty dictionary.
func LoadDictionary(path string) (model.Dictionary, error) {
	if path == "" {
		return model.Dictionary{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("file", path).Msg("metric dictionary not found, continuing without golden matches")
		return model.Dictionary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	dict := model.Dictionary{}
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("entries", len(dict)).Msg("metric dictionary loaded")
	return dict, nil
}
