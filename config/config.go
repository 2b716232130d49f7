package config

import "time"

type AppConfig struct {
	APIPort      string `env:"PORT,required" envDefault:"12222"`
	APIKey       string `env:"WAITLIST_API_KEY"`
	RabbitMQURL  string `env:"RABBITMQ_URL"`
	PublicURL    string `env:"WAITLIST_PUBLIC_URL" envDefault:"https://customeros.ai"`
	ProductName  string `env:"WAITLIST_PRODUCT_NAME" envDefault:"CustomerOS"`
	LocalDev     bool   `env:"LOCAL_DEV" envDefault:"false"`
	PodName      string `env:"POD_NAME"`
	PodNamespace string `env:"POD_NAMESPACE" envDefault:"default"`
}

type DatabaseConfig struct {
	Host            string `env:"WAITLIST_POSTGRES_HOST,required"`
	Port            string `env:"WAITLIST_POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"WAITLIST_POSTGRES_USER,required"`
	DBName          string `env:"WAITLIST_POSTGRES_DB_NAME,required"`
	Password        string `env:"WAITLIST_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"WAITLIST_POSTGRES_DB_MAX_CONN" envDefault:"25"`
	MaxIdleConn     int    `env:"WAITLIST_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"WAITLIST_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"WAITLIST_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"WAITLIST_POSTGRES_SSL_MODE" envDefault:"require"`
}

type IntakeConfig struct {
	ScamRegistryPath      string        `env:"SCAM_REGISTRY_PATH"`
	ScamRegistryObjectKey string        `env:"SCAM_REGISTRY_OBJECT_KEY"`
	DNSNameserver         string        `env:"DNS_NAMESERVER"`
	DNSTimeout            time.Duration `env:"DNS_LOOKUP_TIMEOUT" envDefault:"5s"`
	ScamLogRetentionDays  int           `env:"SCAM_LOG_RETENTION_DAYS" envDefault:"180"`
}

type R2StorageConfig struct {
	AccountID       string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`
	AccessKeyID     string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET"`
	RegistryBucket  string `env:"BUCKET_NAME_SCAM_REGISTRY" envDefault:"waitlist-config"`
}

func (c *R2StorageConfig) Enabled() bool {
	return c != nil && c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != ""
}

type SMTPConfig struct {
	Host        string `env:"SMTP_HOST"`
	Port        int    `env:"SMTP_PORT" envDefault:"587"`
	Username    string `env:"SMTP_USERNAME"`
	Password    string `env:"SMTP_PASSWORD"`
	FromAddress string `env:"SMTP_FROM_ADDRESS" envDefault:"waitlist@customeros.ai"`
	FromName    string `env:"SMTP_FROM_NAME" envDefault:"CustomerOS"`
}

type RateLimitConfig struct {
	RedisURL string        `env:"REDIS_URL"`
	Requests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"10"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}
