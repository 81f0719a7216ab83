package database

import (
	"fmt"
	"log"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Println("database connected")
	return db
}

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Curator{},
		&models.Expert{},
		&models.Team{},
		&models.Event{},
		&models.Stage{},
		&models.Trainee{},
		&models.Grade{},
		&models.GradeDescription{},
	}
}

func AutoMigrate(db *gorm.DB) {
	if err := db.AutoMigrate(Models()...); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}
	log.Println("database migrated")
}
