package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/models"
)

type Repositories struct {
	WaitlistRepository interfaces.WaitlistRepository
	ScamLogRepository  interfaces.ScamLogRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		WaitlistRepository: NewWaitlistRepository(db),
		ScamLogRepository:  NewScamLogRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = db.AutoMigrate(
		&models.WaitlistEntry{},
		&models.ScamLogEntry{},
	)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
