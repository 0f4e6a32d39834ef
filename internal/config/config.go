package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Email    EmailConfig
	Stripe   StripeConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// PassSecret encrypts the QR entry passes issued with event
	// registrations.
	PassSecret string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	LeadEvents         string
	StudentEvents      string
	ApplicationEvents  string
	RegistrationEvents string
}

type AuthConfig struct {
	// JWTSecret is used for HMAC verification when no OIDC issuer is set.
	JWTSecret  string
	OIDCIssuer string
	// ScopeCacheTTL bounds how long a resolved region/branch attachment
	// stays in Redis before it is re-read from the user directory.
	ScopeCacheTTL time.Duration
}

type EmailConfig struct {
	SendgridAPIKey string
	FromName       string
	FromAddress    string
	Enabled        bool
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Enabled       bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			PassSecret:   getEnv("QR_PASS_SECRET", "edu-crm-pass-secret"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "crm_user"),
			Password:     getEnv("DB_PASSWORD", "crm_pass"),
			Database:     getEnv("DB_NAME", "edu_crm"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				LeadEvents:         getEnv("KAFKA_TOPIC_LEADS", "crm.lead.events"),
				StudentEvents:      getEnv("KAFKA_TOPIC_STUDENTS", "crm.student.events"),
				ApplicationEvents:  getEnv("KAFKA_TOPIC_APPLICATIONS", "crm.application.events"),
				RegistrationEvents: getEnv("KAFKA_TOPIC_REGISTRATIONS", "crm.registration.events"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			OIDCIssuer:    getEnv("OIDC_ISSUER", ""),
			ScopeCacheTTL: time.Duration(getEnvInt("SCOPE_CACHE_TTL_MINUTES", 10)) * time.Minute,
		},
		Email: EmailConfig{
			SendgridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromName:       getEnv("EMAIL_FROM_NAME", "EduCRM"),
			FromAddress:    getEnv("EMAIL_FROM_ADDRESS", "noreply@educrm.local"),
			Enabled:        getEnvBool("EMAIL_ENABLED", false),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Enabled:       getEnvBool("STRIPE_ENABLED", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
