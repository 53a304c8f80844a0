package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string
	LogFormat    string

	// Address is the account watched at startup. It can be replaced at runtime
	// through the set-address command.
	Address string

	// Seed values written to global_config on first run.
	DefaultRPCNode   string
	DefaultWSSServer string
	DefaultCurrency  string

	RPCTimeout time.Duration

	PriceAPIURL        string
	PriceAPIKey        string
	PriceCoinID        string
	PriceTimeout       time.Duration
	PriceRatePerMinute int

	HeartbeatInterval time.Duration
	PaymentTolerance  float64
	Timezone          string

	JWTSecret         string
	AccessTokenExpiry time.Duration
	AllowedOrigins    []string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		jwtSecret = randomSecret()
		log.Println("WARNING: JWT_SECRET not set, generated a per-process secret. Operator tokens will not survive a restart.")
	}
	if len(jwtSecret) < 32 {
		log.Fatalf("FATAL: JWT_SECRET must be at least 32 bytes long. Current length: %d", len(jwtSecret))
	}

	tolerance := getEnvAsFloat("PAYMENT_TOLERANCE", 0.01)
	if tolerance < 0 {
		log.Fatalf("FATAL: PAYMENT_TOLERANCE must not be negative, got %v", tolerance)
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8089"),
		DatabasePath: getEnv("DATABASE_PATH", "./db/pos.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),

		Address: getEnv("NANO_ADDRESS", ""),

		DefaultRPCNode:   getEnv("DEFAULT_RPC_NODE", "https://mynano.ninja/api/node/"),
		DefaultWSSServer: getEnv("DEFAULT_WSS_SERVER", "wss://ws.mynano.ninja/"),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "usd"),

		RPCTimeout: getEnvAsDuration("RPC_TIMEOUT", 10*time.Second),

		PriceAPIURL:        getEnv("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
		PriceAPIKey:        getEnv("PRICE_API_KEY", ""),
		PriceCoinID:        getEnv("PRICE_COIN_ID", "nano"),
		PriceTimeout:       getEnvAsDuration("PRICE_TIMEOUT", 20*time.Second),
		PriceRatePerMinute: getEnvAsInt("PRICE_RATE_PER_MINUTE", 25),

		HeartbeatInterval: getEnvAsDuration("HEARTBEAT_INTERVAL", 5*time.Second),
		PaymentTolerance:  tolerance,
		Timezone:          getEnv("TIMEZONE", ""),

		JWTSecret:         jwtSecret,
		AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 12*time.Hour),
		AllowedOrigins:    []string{getEnv("ALLOWED_ORIGIN", "http://localhost:3000")},
	}

	if Cfg.PriceRatePerMinute <= 0 {
		log.Fatalf("FATAL: PRICE_RATE_PER_MINUTE must be positive, got %d", Cfg.PriceRatePerMinute)
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, PriceAPI=%s, Timezone=%q",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceAPIURL, Cfg.Timezone)
}

// Location resolves the configured timezone. Calendar days (today's balance,
// historical price keys) are computed in this location.
func (c *AppConfig) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Invalid TIMEZONE %q, falling back to host local time: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("FATAL: could not generate JWT secret: %v", err)
	}
	return hex.EncodeToString(b)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid decimal value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
