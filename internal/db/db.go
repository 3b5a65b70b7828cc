// Package db opens the database and manages its schema.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectAttempts = 5

// Open connects to the configured database.
// Postgres connections are retried to give the server time to start.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	gcfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver() {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = sqlite.Open(cfg.DSN())
	}

	var (
		conn *gorm.DB
		err  error
	)
	for i := 1; i <= connectAttempts; i++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Str("driver", cfg.Driver()).Msg("database connection failed, retrying")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver(), err)
	}
	if err := Ping(context.Background(), conn); err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Driver()).Msg("database connected")
	return conn, nil
}

// Ping checks that the database answers.
func Ping(ctx context.Context, conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}
