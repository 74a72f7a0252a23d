package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	AuthJWTSecret string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	DefaultCredits int64

	OpenAI OpenAIConfig
	Stripe StripeConfig
	Paddle PaddleConfig
	Fatora FatoraConfig

	RedisAddr      string
	RateLimitRate  float64
	RateLimitBurst int

	RenewalInterval int
}

type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	TextModel      string
	ImageModel     string
	TimeoutSeconds int
}

type StripeConfig struct {
	SecretKey       string
	APIBaseURL      string
	WebhookSecret   string
	PriceIDPro      string
	PriceIDBusiness string
	CheckoutURL     string
}

type PaddleConfig struct {
	PlanIDPro      string
	PlanIDBusiness string
	CheckoutURL    string
}

type FatoraConfig struct {
	WebhookSecret string
	CheckoutURL   string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "inkwave"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		AuthJWTSecret:     strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "inkwave"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DefaultCredits:    getenvInt64("DEFAULT_CREDITS", 100),
		OpenAI: OpenAIConfig{
			APIKey:         strings.TrimSpace(getenv("OPENAI_API_KEY", "")),
			BaseURL:        getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			TextModel:      getenv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
			ImageModel:     getenv("OPENAI_IMAGE_MODEL", "dall-e-3"),
			TimeoutSeconds: getenvInt("OPENAI_TIMEOUT_SECONDS", 60),
		},
		Stripe: StripeConfig{
			SecretKey:       strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			APIBaseURL:      getenv("STRIPE_API_BASE_URL", "https://api.stripe.com/v1"),
			WebhookSecret:   strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			PriceIDPro:      strings.TrimSpace(getenv("STRIPE_PRICE_ID_PRO", "")),
			PriceIDBusiness: strings.TrimSpace(getenv("STRIPE_PRICE_ID_BUSINESS", "")),
			CheckoutURL:     getenv("STRIPE_CHECKOUT_URL", ""),
		},
		Paddle: PaddleConfig{
			PlanIDPro:      strings.TrimSpace(getenv("PADDLE_PLAN_ID_PRO", "")),
			PlanIDBusiness: strings.TrimSpace(getenv("PADDLE_PLAN_ID_BUSINESS", "")),
			CheckoutURL:    getenv("PADDLE_CHECKOUT_URL", ""),
		},
		Fatora: FatoraConfig{
			WebhookSecret: strings.TrimSpace(getenv("FATORA_WEBHOOK_SECRET", "")),
			CheckoutURL:   getenv("FATORA_CHECKOUT_URL", ""),
		},
		RedisAddr:       strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RateLimitRate:   getenvFloat("RATE_LIMIT_RATE", 2),
		RateLimitBurst:  getenvInt("RATE_LIMIT_BURST", 5),
		RenewalInterval: getenvInt("RENEWAL_INTERVAL_SECONDS", 300),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
