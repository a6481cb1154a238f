package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config параметры портала, читаются из переменных окружения
type Config struct {
	DBDSN       string `mapstructure:"DB_DSN"`
	Environment string `mapstructure:"ENV"`
	HTTPAddr    string `mapstructure:"HTTP_ADDR"`

	ClubName   string `mapstructure:"CLUB_NAME"`
	ClubZone   string `mapstructure:"CLUB_ZONE"` // IANA зона для рендеринга дат
	CORSOrigin string `mapstructure:"CORS_ORIGIN"`
	RSVPPolicy string `mapstructure:"RSVP_POLICY"` // upsert или toggle

	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `mapstructure:"TELEGRAM_CHAT_ID"`

	DigestCron           string `mapstructure:"DIGEST_CRON"`
	ImportCron           string `mapstructure:"IMPORT_CRON"`
	ReminderSweepMinutes int    `mapstructure:"REMINDER_SWEEP_MINUTES"`

	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
	FeedsPath      string `mapstructure:"FEEDS_PATH"`
	PosterFont     string `mapstructure:"POSTER_FONT"`

	StandingsURL        string `mapstructure:"STANDINGS_URL"`
	StandingsTTLMinutes int    `mapstructure:"STANDINGS_TTL_MINUTES"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:       os.Getenv("DB_DSN"),
		Environment: getEnv("ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),

		ClubName:   getEnv("CLUB_NAME", "Club Portal"),
		ClubZone:   getEnv("CLUB_ZONE", "Europe/Berlin"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		RSVPPolicy: getEnv("RSVP_POLICY", "upsert"),

		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: getEnvInt64("TELEGRAM_CHAT_ID", 0),

		DigestCron:           getEnv("DIGEST_CRON", "0 8 * * MON"),
		ImportCron:           os.Getenv("IMPORT_CRON"),
		ReminderSweepMinutes: getEnvInt("REMINDER_SWEEP_MINUTES", 30),

		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		FeedsPath:      os.Getenv("FEEDS_PATH"),
		PosterFont:     os.Getenv("POSTER_FONT"),

		StandingsURL:        os.Getenv("STANDINGS_URL"),
		StandingsTTLMinutes: getEnvInt("STANDINGS_TTL_MINUTES", 60),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.RSVPPolicy != "upsert" && cfg.RSVPPolicy != "toggle" {
		return nil, fmt.Errorf("RSVP_POLICY must be upsert or toggle, got %q", cfg.RSVPPolicy)
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

// TelegramEnabled включены ли уведомления в Telegram
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
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
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
