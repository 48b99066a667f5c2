package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fox-gonic/fox"
	"github.com/qiniu/rulemigrator/internal/config"
	"github.com/qiniu/rulemigrator/internal/middleware"
	"github.com/qiniu/rulemigrator/internal/migration"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := migration.NewMigrationServer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create rule migrator")
	}
	defer func() {
		_ = srv.Close(context.Background())
	}()

	if !cfg.Serve {
		report, err := srv.RunOnce(ctx, os.Stdout)
		if err != nil {
			_ = srv.Close(context.Background())
			log.Fatal().Err(err).Msg("migration failed")
		}
		if !cfg.DryRun {
			log.Info().
				Str("output_dir", cfg.Migration.OutputDir).
				Int("convertible", report.Summary.Convertible).
				Int("unsupported", report.Summary.Unsupported).
				Msg("migration finished")
		}
		return
	}

	router := fox.New()
	router.Use(middleware.Authentication(cfg.Server.Bearer, "/metrics"))
	if err := srv.UseApi(router); err != nil {
		log.Fatal().Err(err).Msg("failed to setup API routes")
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		_ = srv.Close(context.Background())
		os.Exit(0)
	}()

	log.Info().Msgf("Starting rule migrator API on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
