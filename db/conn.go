// Package db opens the database connection and runs migrations
package db

import (
	"fmt"

	"meshvault/model-api/internal/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New connects to the configured database. Postgres is what production runs
// on, the SQLite driver exists for local development and tests.
func New() (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch viper.GetString("db.driver") {
	case "postgres":
		db, err = gorm.Open(postgres.Open(viper.GetString("db.dsn")))
	case "sqlite":
		dsn := viper.GetString("db.dsn")
		if dsn == "" {
			dsn = "database.db"
		}
		db, err = gorm.Open(sqlite.Open(dsn))
	default:
		return nil, fmt.Errorf("unknown db driver %q", viper.GetString("db.driver"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database, %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.PendingRegistration{},
		&model.Model{},
		&model.ModelFile{},
	)
	if err != nil {
		return fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return nil
}
