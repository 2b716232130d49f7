package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	cron_config "github.com/customeros/waitlist/internal/cron/config"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	DatabaseConfig  *DatabaseConfig
	IntakeConfig    *IntakeConfig
	R2StorageConfig *R2StorageConfig
	SMTPConfig      *SMTPConfig
	RateLimitConfig *RateLimitConfig
	CronConfig      *cron_config.Config
}

func newConfig() *Config {
	return &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		DatabaseConfig:  &DatabaseConfig{},
		IntakeConfig:    &IntakeConfig{},
		R2StorageConfig: &R2StorageConfig{},
		SMTPConfig:      &SMTPConfig{},
		RateLimitConfig: &RateLimitConfig{},
		CronConfig:      &cron_config.Config{},
	}
}

func InitConfig() (*Config, error) {
	config := newConfig()

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse waitlist config")
	}

	return config, nil
}

// InitIntakeConfig parses only what the validator needs, for commands that run without a database.
func InitIntakeConfig() (*Config, error) {
	config := &Config{
		Logger:          &logger.Config{},
		IntakeConfig:    &IntakeConfig{},
		R2StorageConfig: &R2StorageConfig{},
	}

	_ = godotenv.Load()

	if err := env.Parse(config); err != nil {
		return nil, errors.Wrap(err, "failed to parse intake config")
	}
	return config, nil
}
