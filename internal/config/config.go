package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Redis     RedisConfig     `json:"redis"`
	Migration MigrationConfig `json:"migration"`

	// command line only
	Input  string `json:"-"`
	DryRun bool   `json:"-"`
	Serve  bool   `json:"-"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr" validate:"required,hostname_port"`
	Bearer   string `json:"bearer"` // empty disables API authentication
}

// DatabaseConfig is optional. An empty Host keeps runs in memory only.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// ConnString renders the config as a postgres URL.
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level" validate:"oneof=debug info warn error"`
}

// RedisConfig is optional. An empty Addr disables the report cache.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db" validate:"min=0"`
	TTL      string `json:"ttl"` // e.g. "24h"
}

type MigrationConfig struct {
	Prefix              string `json:"prefix" validate:"omitempty,metricprefix"`
	Analyzer            string `json:"analyzer" validate:"oneof=ast regex"`
	DictionaryFile      string `json:"dictionaryFile"`
	OutputDir           string `json:"outputDir" validate:"required"`
	RenameSourceMetrics bool   `json:"renameSourceMetrics"`
}

var metricPrefixRe = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("metricprefix", func(fl validator.FieldLevel) bool {
		return metricPrefixRe.MatchString(fl.Field().String())
	})
	return v
}

// Load reads configuration from the process flags.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs builds the config from environment defaults, an optional -f JSON file, and
// command line flags, in that order of precedence.
func LoadArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("rulemigrator", flag.ContinueOnError)
	configFile := fs.String("f", "", "Path to configuration file")
	input := fs.String("i", "", "Legacy Prometheus rule file to migrate")
	outputDir := fs.String("o", "", "Output directory")
	prefix := fs.String("prefix", "", "Metric key prefix for shadow migration, e.g. custom_")
	analyzerKind := fs.String("analyzer", "", "Expression analyzer backend: ast or regex")
	dictFile := fs.String("dict", "", "Metric dictionary file")
	dryRun := fs.Bool("dry-run", false, "Print the migration summary without writing files")
	serve := fs.Bool("serve", false, "Run the HTTP API instead of a one-shot migration")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
			Bearer:   getEnv("SERVER_BEARER_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "rulemigrator"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      getEnv("REDIS_REPORT_TTL", "24h"),
		},
		Migration: MigrationConfig{
			Prefix:         getEnv("MIGRATION_PREFIX", ""),
			Analyzer:       getEnv("MIGRATION_ANALYZER", "ast"),
			DictionaryFile: getEnv("MIGRATION_DICTIONARY_FILE", "metric-dictionary.yaml"),
			OutputDir:      getEnv("MIGRATION_OUTPUT_DIR", "migration_output"),
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err).Msg("failed to load config file")
			return nil, err
		}
	}

	// flags override file and env
	cfg.Input = *input
	cfg.DryRun = *dryRun
	cfg.Serve = *serve
	if *outputDir != "" {
		cfg.Migration.OutputDir = *outputDir
	}
	if *prefix != "" {
		cfg.Migration.Prefix = *prefix
	}
	if *analyzerKind != "" {
		cfg.Migration.Analyzer = *analyzerKind
	}
	if *dictFile != "" {
		cfg.Migration.DictionaryFile = *dictFile
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Migration.Analyzer == "" {
		cfg.Migration.Analyzer = "ast"
	}
	if cfg.Migration.OutputDir == "" {
		cfg.Migration.OutputDir = "migration_output"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	if !cfg.Serve && cfg.Input == "" {
		return nil, fmt.Errorf("missing input rule file: pass -i <legacy_rules.yml> or -serve")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validator returns the validator used for config, with the custom rules registered.
func Validator() *validator.Validate { return validate }
