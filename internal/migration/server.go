package migration

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fox-gonic/fox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/qiniu/rulemigrator/internal/migration/analyzer"
	"github.com/qiniu/rulemigrator/internal/migration/api"
	"github.com/qiniu/rulemigrator/internal/migration/audit"
	"github.com/qiniu/rulemigrator/internal/migration/output"
	"github.com/qiniu/rulemigrator/internal/migration/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MigrationServer wires the analyzer, the run archive and the HTTP API.
type MigrationServer struct {
	config   *config.Config
	analyzer analyzer.Analyzer
	options  service.Options
	metrics  *service.Metrics
	registry *prometheus.Registry
	archive  *audit.Archive
	pg       *audit.PgStore
	rdb      *redis.Client
	api      *api.Api
}

// NewMigrationServer builds the server. The database and redis are optional: when they are
// not configured runs are kept in memory and the report cache is disabled.
func NewMigrationServer(ctx context.Context, cfg *config.Config) (*MigrationServer, error) {
	dict, err := service.LoadDictionary(cfg.Migration.DictionaryFile)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	s := &MigrationServer{
		config:   cfg,
		analyzer: analyzer.New(cfg.Migration.Analyzer),
		options: service.Options{
			Prefix:              cfg.Migration.Prefix,
			Dictionary:          dict,
			RenameSourceMetrics: cfg.Migration.RenameSourceMetrics,
		},
		metrics:  service.NewMetrics(registry),
		registry: registry,
	}

	var store audit.Store = audit.NewMemStore()
	if cfg.Database.Enabled() {
		pg, err := audit.OpenPgStore(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		s.pg, store = pg, pg
	}

	var cache audit.Cache = audit.NoopCache{}
	if s.rdb = audit.NewRedisClientFromConfig(&cfg.Redis); s.rdb != nil {
		cache = audit.NewRedisCache(s.rdb, parseDuration(cfg.Redis.TTL, 24*time.Hour))
	}
	s.archive = audit.NewArchive(store, cache)

	log.Info().
		Str("analyzer", s.analyzer.Kind()).
		Str("prefix", cfg.Migration.Prefix).
		Int("dictionary_entries", len(dict)).
		Bool("database", cfg.Database.Enabled()).
		Bool("redis", s.rdb != nil).
		Msg("rule migrator initialized")
	return s, nil
}

// UseApi registers the HTTP routes.
func (s *MigrationServer) UseApi(router *fox.Engine) error {
	var err error
	s.api, err = api.NewApi(api.Deps{
		Analyzer: s.analyzer,
		Options:  s.options,
		Archive:  s.archive,
		Metrics:  s.metrics,
		Gatherer: s.registry,
	}, router)
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	return nil
}

// RunOnce migrates the configured input file. In dry-run mode the summary goes to w and
// nothing is written or persisted.
func (s *MigrationServer) RunOnce(ctx context.Context, w io.Writer) (*service.Report, error) {
	file, err := service.LoadRuleFile(s.config.Input)
	if err != nil {
		return nil, err
	}
	report := service.NewMigrator(s.analyzer, s.options).WithMetrics(s.metrics).Run(file)

	if s.config.DryRun {
		output.PrintSummary(w, report)
		return report, nil
	}
	if _, err := output.Write(s.config.Migration.OutputDir, report); err != nil {
		return nil, err
	}
	if s.pg != nil {
		if err := s.archive.Save(ctx, report); err != nil {
			log.Error().Err(err).Str("run_id", report.ID).Msg("failed to record migration run")
		}
	}
	return report, nil
}

// Close releases the database pool and redis client.
func (s *MigrationServer) Close(ctx context.Context) error {
	if s.pg != nil {
		s.pg.Close()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
			return err
		}
	}
	log.Info().Msg("rule migrator shut down")
	return nil
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		log.Warn().Str("value", s).Msg("invalid duration, using default")
		return d
	}
	return v
}
