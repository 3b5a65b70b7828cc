package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/diewo77/go-crm/internal/logger"
	"github.com/diewo77/go-crm/internal/mail"
	"github.com/diewo77/go-crm/internal/services"
	"github.com/diewo77/go-crm/internal/storage"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Create the configured superuser and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{Level: cfg.App.LogLevel, Pretty: cfg.App.Dev})

	conn, err := db.Open(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg.Database, conn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations completed successfully")
		return
	}

	if cfg.App.Migrations {
		if err := migrate(cfg.Database, conn); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("migrations completed")
	}

	auth.Configure(auth.Options{
		SessionSecret: cfg.Auth.SessionSecret,
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      cfg.Auth.TokenTTL,
		SecureCookies: cfg.Auth.SecureCookies,
	})

	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure media storage")
	}
	svc := services.New(conn, mail.New(cfg.Mail, log), store, log)

	created, err := svc.Accounts.EnsureSuperuser(ctx, cfg.Seed)
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	if *seedOnlyFlag {
		log.Info().Bool("created", created).Msg("seeding completed successfully")
		return
	}

	routerCfg := NewRouterConfig(conn, svc, log)
	appHandler := NewApp(conn, cfg, routerCfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      appHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Str("db", cfg.Database.Driver()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped gracefully")
}

// migrate applies the schema with AutoMigrate, or with the embedded SQL
// migrations when SQL_MIGRATIONS is set.
func migrate(cfg config.DatabaseConfig, conn *gorm.DB) error {
	if cfg.SQLMigrations {
		return db.RunSQLMigrations(cfg.URL)
	}
	return db.Migrate(conn)
}
