package psql

import (
	"context"
	"fmt"

	"krishidev/krishidev/config"
	"krishidev/krishidev/sources/psql/models"
	"krishidev/krishidev/utils/logging"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(ctx context.Context, cfg config.Config) (*Database, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		// Logger: logger.Default.LogMode(logger.Info), // Enable SQL logging for debugging
	})
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.ChatRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	logging.AppLogger.Info("database ready")

	return &Database{DB: db}, nil
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
