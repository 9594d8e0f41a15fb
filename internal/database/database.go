package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Conceptual-Machines/scoreviz/internal/models"
)

const slowQueryThreshold = time.Second

// Connect opens a Postgres connection for the run history
func Connect(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	log.Println("✅ Database connected")
	return db, nil
}

// Migrate creates or updates the run history tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Run{}, &models.TemplateOutcome{}); err != nil {
		return fmt.Errorf("failed to migrate run history: %w", err)
	}
	log.Println("✅ Database migrations completed")
	return nil
}
