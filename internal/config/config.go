package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envFile = ".env"

type Config struct {
	Env  string
	Port int

	StoreBackend string // postgres | memory
	DBURL        string
	DBMaxConns   int
	DBTimeout    time.Duration

	RevocationBackend string // redis | memory
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CacheTimeout      time.Duration
	BreakerFailures   int
	BreakerCooldown   time.Duration

	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int

	TracingEnabled     bool
	OTLPEndpoint       string
	TracingSampleRatio float64

	CORSAllowedOrigins []string
	AuthRatePerSec     float64
	AuthRateBurst      int

	DeleteTimeout time.Duration

	SeedEmail     string
	SeedPassword  string
	SeedFirstName string
	SeedLastName  string
}

// Load reads configuration from the environment. Values from an optional .env file
// fill in keys the environment does not already set.
func Load() Config {
	loadEnvFile(envFile)

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "postgres")),
		DBURL:        getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns:   getEnvInt("DB_MAX_CONNS", 5),
		DBTimeout:    getEnvMillis("DB_TIMEOUT_MS", 3*time.Second),

		RevocationBackend: strings.ToLower(getEnv("REVOCATION_BACKEND", "redis")),
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CacheTimeout:      getEnvMillis("CACHE_TIMEOUT_MS", 500*time.Millisecond),
		BreakerFailures:   getEnvInt("CACHE_BREAKER_FAILURES", 5),
		BreakerCooldown:   getEnvMillis("CACHE_BREAKER_COOLDOWN_MS", 5*time.Second),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTTTL:     time.Duration(getEnvInt("JWT_TTL_HOURS", 72)) * time.Hour,
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		TracingEnabled:     getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRatio: getEnvFloat("TRACING_SAMPLE_RATIO", 1),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRatePerSec:     getEnvFloat("AUTH_RATE_PER_SEC", 5),
		AuthRateBurst:      getEnvInt("AUTH_RATE_BURST", 10),

		DeleteTimeout: getEnvMillis("DELETE_TIMEOUT_MS", 10*time.Second),

		SeedEmail:     getEnv("SEED_USER_EMAIL", ""),
		SeedPassword:  getEnv("SEED_USER_PASSWORD", ""),
		SeedFirstName: getEnv("SEED_USER_FIRST_NAME", "Admin"),
		SeedLastName:  getEnv("SEED_USER_LAST_NAME", "User"),
	}
}

func (c Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}
	if c.StoreBackend != "postgres" && c.StoreBackend != "memory" {
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q: want postgres or memory", c.StoreBackend))
	}
	if c.RevocationBackend != "redis" && c.RevocationBackend != "memory" {
		errs = append(errs, fmt.Errorf("REVOCATION_BACKEND %q: want redis or memory", c.RevocationBackend))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskmaster")
	pass := getEnv("DB_PASSWORD", "taskmaster")
	name := getEnv("DB_NAME", "taskmaster")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func loadEnvFile(path string) {
	envMap, err := godotenv.Read(path)
	if err != nil {
		return
	}

	for k, v := range envMap {
		if _, exists := os.LookupEnv(k); !exists {
			_ = os.Setenv(k, v)
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseFloat(v, 64)

		if err != nil {
			slog.Warn("invalid number in environment, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			slog.Warn("invalid boolean in environment, using default", "key", key, "value", v)
			return fallback
		}

		return b
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	ms := getEnvInt(key, -1)
	if ms < 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
