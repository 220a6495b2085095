package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	DatabaseURL    string
	DBMaxConns     int32
	AuthToken      string
	Port           string
	CheckoutDebit  bool
	BcryptCost     int
	RedisAddr      string
	IdempotencyTTL time.Duration
	Cloudinary     Cloudinary
	OTLPEndpoint   string
	ServiceName    string
}

type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether all credentials needed to talk to the image host are set.
func (c Cloudinary) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	dbURL := env("DATABASE_URL", "")
	if dbURL == "" {
		user := env("DB_USER", "")
		password := env("DB_PASSWORD", "")
		name := env("DB_NAME", "")
		if user == "" || password == "" || name == "" {
			return Config{}, errors.New("DATABASE_URL or DB_USER/DB_PASSWORD/DB_NAME are required")
		}
		dbURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			env("DB_HOST", "localhost"),
			env("DB_PORT", "5432"),
			user,
			password,
			name,
			env("DB_SSLMODE", "disable"),
		)
	}

	authToken := env("AUTH_TOKEN", "")
	if authToken == "" {
		return Config{}, errors.New("AUTH_TOKEN is required")
	}

	maxConns, err := strconv.ParseInt(env("DB_MAX_CONNS", "10"), 10, 32)
	if err != nil || maxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be a positive integer")
	}

	debit, err := strconv.ParseBool(env("CHECKOUT_DEBIT_ACCOUNT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("CHECKOUT_DEBIT_ACCOUNT: %w", err)
	}

	cost, err := strconv.Atoi(env("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost)))
	if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	ttl, err := time.ParseDuration(env("IDEMPOTENCY_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL must be a positive duration")
	}

	return Config{
		DatabaseURL:    dbURL,
		DBMaxConns:     int32(maxConns),
		AuthToken:      authToken,
		Port:           env("PORT", "8080"),
		CheckoutDebit:  debit,
		BcryptCost:     cost,
		RedisAddr:      env("REDIS_ADDR", ""),
		IdempotencyTTL: ttl,
		Cloudinary: Cloudinary{
			CloudName: env("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    env("CLOUDINARY_API_KEY", ""),
			APISecret: env("CLOUDINARY_API_SECRET", ""),
			Folder:    env("CLOUDINARY_FOLDER", "vintique/products"),
		},
		OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  env("SERVICE_NAME", "vintique-api"),
	}, nil
}
