package database

import (
	"fmt"

	"go-clinic-queue/config"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewSQLiteConnection opens a file-backed SQLite store for local development.
// SQLite has a single writer, so the pool is pinned to one connection.
func NewSQLiteConnection(path string, appCfg config.AppConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(appCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	logrus.Infof("Successfully opened SQLite database at %s", path)

	return db, nil
}
