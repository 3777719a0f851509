package database

import (
	"fmt"
	"time"

	"go-clinic-queue/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresConnection(cfg config.DBConfig, appCfg config.AppConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, appCfg.Timezone,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(appCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	logrus.Info("Successfully connected to PostgreSQL database")

	return db, nil
}

// NewConnection opens the store selected by DB_DRIVER
func NewConnection(cfg config.DBConfig, appCfg config.AppConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLiteConnection(cfg.Path, appCfg)
	case config.DriverPostgres, "":
		return NewPostgresConnection(cfg, appCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig(appCfg config.AppConfig) *gorm.Config {
	level := logger.Warn
	if appCfg.Env == "development" {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}
