package database

import (
	"errors"
	"sync"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	dbErr  error
	dbOnce sync.Once
)

var ErrPostgresNotConfigured = errors.New("postgres endpoint not configured")

// GetPostgres opens the shared record store connection once, from the DSN
// of the first non-empty call. That outcome, success or failure, is
// returned to every later caller.
func GetPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrPostgresNotConfigured
	}
	dbOnce.Do(func() {
		db, dbErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if dbErr != nil {
			logger.Log.WithError(dbErr).Error("Failed to connect to PostgreSQL")
			return
		}

		logger.Log.Info("Connected to PostgreSQL")
	})

	return db, dbErr
}

func ClosePostgres() error {
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
