package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds everything the binaries read from the environment.
type Config struct {
	HTTPAddr string

	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	AMQPURL string

	// WhatsApp gateway; empty URL selects the simulated sender.
	WhatsAppURL   string
	WhatsAppToken string

	BatchSize     int
	SendDelay     time.Duration
	BatchCooldown time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, relying on OS environment variables")
	}

	return &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPass:        getEnv("DB_PASSWORD", ""),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBName:        getEnv("DB_NAME", "rubia"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		WhatsAppURL:   os.Getenv("WHATSAPP_API_URL"),
		WhatsAppToken: os.Getenv("WHATSAPP_API_TOKEN"),
		BatchSize:     getEnvInt("CAMPAIGN_BATCH_SIZE", 50),
		SendDelay:     getEnvDuration("CAMPAIGN_SEND_DELAY", time.Second),
		BatchCooldown: getEnvDuration("CAMPAIGN_BATCH_COOLDOWN", time.Minute),
	}
}

// DSN assembles the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer env var, using default")
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration env var, using default")
		return fallback
	}
	return d
}
