package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                  = "8080"
	DefaultAccessTokenExpiryMin  = 15
	DefaultRefreshTokenExpiryMin = 10080 // 7 days
	DefaultMaxRefreshUses        = 3
	DefaultLoginMaxAttempts      = 5
	DefaultLoginWindowMinutes    = 15
	DefaultAccessHourStart       = 6
	DefaultAccessHourEnd         = 22
	DefaultMigrationsPath        = "migrations"
)

type Config struct {
	Env            string
	Port           string
	DBURL          string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AccessTokenSecret  string
	RefreshTokenSecret string
	EncryptionKey      string // hex-encoded 32-byte key for fingerprint sealing
	AccessExpiryMin    int
	RefreshExpiryMin   int
	MaxRefreshUses     int

	LoginMaxAttempts   int
	LoginWindowMinutes int

	AccessHourStart int
	AccessHourEnd   int

	CookieDomain string
	CookieSecure bool
}

// Load reads config/.env.dev or config/.env.prod depending on ENV, then lets
// real environment variables take precedence.
func Load() *Config {
	env := getEnv("ENV", "development")

	envFile := "config/.env.dev"
	if env == "production" {
		envFile = "config/.env.prod"
	}
	// Missing file is fine; everything can come from the environment.
	_ = godotenv.Load(envFile)

	return &Config{
		Env:            env,
		Port:           getEnv("PORT", DefaultPort),
		DBURL:          mustGetEnv("DB_URL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", DefaultMigrationsPath),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		EncryptionKey:      mustGetEnv("ENCRYPTION_KEY"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),
		MaxRefreshUses:     getEnvAsInt("MAX_REFRESH_USES", DefaultMaxRefreshUses),

		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		LoginWindowMinutes: getEnvAsInt("LOGIN_WINDOW_MINUTES", DefaultLoginWindowMinutes),

		AccessHourStart: getEnvAsInt("ACCESS_HOUR_START", DefaultAccessHourStart),
		AccessHourEnd:   getEnvAsInt("ACCESS_HOUR_END", DefaultAccessHourEnd),

		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnvAsBool("COOKIE_SECURE", env == "production"),
	}
}

// FingerprintKey decodes the hex encryption key and enforces the 32-byte
// length chacha20poly1305 requires.
func (c *Config) FingerprintKey() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}
