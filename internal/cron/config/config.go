package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Resend pending confirmations, every 10 minutes
	CronScheduleRetryConfirmations string `env:"CRON_SCHEDULE_RETRY_CONFIRMATIONS" envDefault:"0 */10 * * * *"`
	// Scam log retention, daily at 03:00
	CronScheduleScamLogRetention string `env:"CRON_SCHEDULE_SCAM_LOG_RETENTION" envDefault:"0 0 3 * * *"`

	RetryConfirmationsMinAge      string `env:"RETRY_CONFIRMATIONS_MIN_AGE" envDefault:"5m"`
	RetryConfirmationsMaxAttempts int    `env:"RETRY_CONFIRMATIONS_MAX_ATTEMPTS" envDefault:"5"`
}
