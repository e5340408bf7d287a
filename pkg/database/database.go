package database

import (
	"fmt"
	"time"

	"github.com/clanhub/api/pkg/config"
	"github.com/clanhub/api/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

// Open builds a gorm handle for the configured driver with pooling defaults.
// It does not contact the server; reachability and schema are the
// Initializer's job, so a database that is down at boot does not fail here.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	logLevel := gormlogger.Silent
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newGormLogger(logLevel),
		TranslateError:       true,
		DisableAutomaticPing: true,
		NowFunc:              func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DatabaseDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db db() error: %w", err)
	}

	maxOpen := cfg.DBMaxOpenConns
	if cfg.DatabaseDriver == "sqlite" {
		// one writer; also keeps in-memory databases on a single connection
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(min(cfg.DBMaxIdleConns, maxOpen))
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	return db, nil
}

func newGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	l := zapgorm2.New(logger.L().Named("gorm"))
	l.IgnoreRecordNotFoundError = true
	l.SlowThreshold = 200 * time.Millisecond
	return l.LogMode(level)
}
