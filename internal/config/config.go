package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL   string
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	BotToken      string
	BotUsername   string
	AdminIDs      []int64
	LogLevel      string
	SessionTTL    time.Duration

	YookassaShopID   string
	YookassaKey      string
	PaymentCurrency  string
	PaymentReturnURL string
	ProPrice         string
	VIPPrice         string
	WebhookAddr      string
	AllowedYooIp     []string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "targethawk"),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		BotToken:         getEnv("TELEGRAM_BOT_TOKEN", ""),
		BotUsername:      getEnv("BOT_USERNAME", "TargetHawkBot"),
		AdminIDs:         parseIDs(getEnv("ADMIN_USER_IDS", "")),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		SessionTTL:       getDuration("SESSION_TTL", 15*time.Minute),
		YookassaShopID:   getEnv("YOOKASSA_SHOP_ID", ""),
		YookassaKey:      getEnv("YOOKASSA_SECRET_KEY", ""),
		PaymentCurrency:  getEnv("PAYMENT_CURRENCY", "RUB"),
		PaymentReturnURL: getEnv("PAYMENT_RETURN_URL", "https://t.me/TargetHawkBot"),
		ProPrice:         getEnv("PRO_PRICE", "990.00"),
		VIPPrice:         getEnv("VIP_PRICE", "4990.00"),
		WebhookAddr:      getEnv("WEBHOOK_ADDR", ":8080"),
		AllowedYooIp: []string{
			"185.71.76.0/27",
			"185.71.77.0/27",
			"77.75.153.0/25",
			"77.75.156.11/32",
			"77.75.156.35/32",
			"77.75.154.128/25",
			"2a02:5180::/32",
		},
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.DatabaseURL == "" && (c.DBHost == "" || c.DBName == "") {
		errs = append(errs, errors.New("DATABASE_URL or DB_HOST and DB_NAME are required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// PostgresDSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) PaymentsEnabled() bool {
	return c.YookassaShopID != "" && c.YookassaKey != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": raw}).Warn("Invalid duration, using default")
		return fallback
	}
	return d
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.WithField("value", part).Warn("Ignoring invalid admin user id")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
