// Package config reads server settings from the environment. A .env file,
// when present, is loaded first by cmd/server through godotenv.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTExpiry   time.Duration
	RedisURL    string

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	// TrustUserIDHeader lets a trusted edge pass identity in X-User-ID
	// instead of a bearer token.
	TrustUserIDHeader bool

	DropDayLocation     *time.Location
	RewardRetryInterval time.Duration
	Policy              Policy
}

// Policy holds the verification and reward parameters.
type Policy struct {
	ToleranceMeters  float64
	MinTimeSeconds   int
	MaxTimeSeconds   int
	RewardPoints     int
	RewardCO2Kg      float64
	FillStep         int
	FullThreshold    int
	ItemsPerDrop     int
	EnergyPerDropKWh float64
}

func DefaultPolicy() Policy {
	return Policy{
		ToleranceMeters:  100,
		MinTimeSeconds:   30,
		MaxTimeSeconds:   3600,
		RewardPoints:     150,
		RewardCO2Kg:      5.2,
		FillStep:         2,
		FullThreshold:    90,
		ItemsPerDrop:     1,
		EnergyPerDropKWh: 50,
	}
}

// Load reads the environment. Unparseable numeric values fall back to the
// default with a warning; only a bad timezone is an error.
func Load() (*Config, error) {
	d := DefaultPolicy()

	tzName := getEnv("DROP_DAY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid DROP_DAY_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		Port:                      getEnv("PORT", "8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		JWTSecret:                 os.Getenv("APP_JWT_SECRET"),
		JWTExpiry:                 time.Duration(getEnvAsInt("JWT_EXPIRY_HOURS", 24*7)) * time.Hour,
		RedisURL:                  os.Getenv("REDIS_URL"),
		FirebaseCredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
		FirebaseCredentialsFile:   getEnv("FIREBASE_CREDENTIALS_FILE", "./firebase-service-account.json"),
		TrustUserIDHeader:         getEnvAsBool("TRUST_USER_ID_HEADER", false),
		DropDayLocation:           loc,
		RewardRetryInterval:       getEnvAsDuration("REWARD_RETRY_INTERVAL", time.Minute),
		Policy: Policy{
			ToleranceMeters:  getEnvAsFloat("DROP_TOLERANCE_METERS", d.ToleranceMeters),
			MinTimeSeconds:   getEnvAsInt("DROP_MIN_TIME_SECONDS", d.MinTimeSeconds),
			MaxTimeSeconds:   getEnvAsInt("DROP_MAX_TIME_SECONDS", d.MaxTimeSeconds),
			RewardPoints:     getEnvAsInt("REWARD_POINTS", d.RewardPoints),
			RewardCO2Kg:      getEnvAsFloat("REWARD_CO2_KG", d.RewardCO2Kg),
			FillStep:         getEnvAsInt("BIN_FILL_STEP", d.FillStep),
			FullThreshold:    getEnvAsInt("BIN_FULL_THRESHOLD", d.FullThreshold),
			ItemsPerDrop:     d.ItemsPerDrop,
			EnergyPerDropKWh: d.EnergyPerDropKWh,
		},
	}

	if cfg.Policy.MinTimeSeconds > cfg.Policy.MaxTimeSeconds {
		return nil, fmt.Errorf("DROP_MIN_TIME_SECONDS (%d) exceeds DROP_MAX_TIME_SECONDS (%d)",
			cfg.Policy.MinTimeSeconds, cfg.Policy.MaxTimeSeconds)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
