package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/waitlist/config"
)

func InitWaitlistDatabase(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(dbConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the waitlist database")
	}

	return db, nil
}
