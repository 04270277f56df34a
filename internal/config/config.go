package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int
	LogLevel          string

	// Redis backs the OTP code store. Empty address falls back to in-memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AMQP backs outbound notifications. Empty URL falls back to log-only.
	AMQPURL      string
	AMQPExchange string

	OTPTTL   time.Duration
	MediaDir string

	Payment PaymentConfig
}

// PaymentConfig holds the settings for the external payment gateway.
type PaymentConfig struct {
	GatewayURL    string
	VerifyURL     string
	MerchantID    string
	SubMerchantID string
	AESKey        string
	ReturnURL     string
	PayMode       string
	VerifyRPS     float64
	Timeout       time.Duration
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", "venue.events")

	cfg.OTPTTL, err = getEnvAsDuration("OTP_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.MediaDir = getEnv("MEDIA_DIR", "./data/media")

	cfg.Payment, err = loadPayment()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPayment() (PaymentConfig, error) {
	p := PaymentConfig{
		GatewayURL:    getEnv("PAYMENT_GATEWAY_URL", "https://eazypay.icicibank.com/EazyPG"),
		VerifyURL:     getEnv("PAYMENT_VERIFY_URL", "https://eazypay.icicibank.com/EazyPGVerify"),
		MerchantID:    os.Getenv("PAYMENT_MERCHANT_ID"),
		SubMerchantID: getEnv("PAYMENT_SUBMERCHANT_ID", "1"),
		AESKey:        os.Getenv("PAYMENT_AES_KEY"),
		ReturnURL:     getEnv("PAYMENT_RETURN_URL", "http://localhost:8080/v1/payments/return"),
		PayMode:       getEnv("PAYMENT_PAYMODE", "9"),
	}

	if p.MerchantID == "" {
		return p, fmt.Errorf("PAYMENT_MERCHANT_ID is required")
	}
	// AES-128 needs exactly 16 bytes of key material.
	if len(p.AESKey) != 16 {
		return p, fmt.Errorf("PAYMENT_AES_KEY must be 16 bytes, got %d", len(p.AESKey))
	}

	rpsStr := getEnv("PAYMENT_VERIFY_RPS", "5")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil || rps <= 0 {
		return p, fmt.Errorf("invalid PAYMENT_VERIFY_RPS %q", rpsStr)
	}
	p.VerifyRPS = rps

	p.Timeout, err = getEnvAsDuration("PAYMENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return p, err
	}

	return p, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		// Return 0 and a wrapped error to provide context
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration parses a time.Duration (e.g. "15m", "1h").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
