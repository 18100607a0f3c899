package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	RedisAddr     string
	RedisPassword string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	KafkaAddress string

	SMTPAddr string
	SMTPFrom string

	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	CookieSecure bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		Port:     envDefault("PORT", "8080"),
		Env:      envDefault("ENV", "development"),
		LogLevel: envDefault("LOG_LEVEL", "info"),

		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     envDefault("DB_PORT", "5432"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		KafkaAddress: os.Getenv("KAFKA_ADDRESS"),

		SMTPAddr: os.Getenv("SMTP_ADDR"),
		SMTPFrom: envDefault("SMTP_FROM", "no-reply@learnhub.local"),

		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		RefreshSecret: []byte(os.Getenv("REFRESH_SECRET")),
		AccessTTL:     time.Duration(envIntDefault("ACCESS_TTL_MIN", 15)) * time.Minute,
		RefreshTTL:    time.Duration(envIntDefault("REFRESH_TTL_HOURS", 72)) * time.Hour,
	}
	cfg.CookieSecure = envBoolDefault("COOKIE_SECURE", cfg.Env == "production")

	return cfg, nil
}

// MustValidate aborts startup on missing secret material or store
// addresses. Broken signing secrets are a configuration error, never a
// per-request condition.
func (c *Config) MustValidate() {
	mustNonEmpty(c.DB_HOST, "DB_HOST")
	mustNonEmpty(c.DB_USER, "DB_USER")
	mustNonEmpty(c.DB_NAME, "DB_NAME")
	mustNonEmpty(c.RedisAddr, "REDIS_ADDR")
	mustNonEmptyBytes(c.JWTSecret, "JWT_SECRET")
	mustNonEmptyBytes(c.RefreshSecret, "REFRESH_SECRET")
}

func (c *Config) DatabaseDSN() string {
	return "host=" + c.DB_HOST +
		" port=" + c.DB_PORT +
		" user=" + c.DB_USER +
		" password=" + c.DB_PASSWORD +
		" dbname=" + c.DB_NAME +
		" sslmode=disable"
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func mustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func mustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
