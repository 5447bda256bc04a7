package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const (
	defaultPort               = "8080"
	defaultDatabasePath       = "classifier.db"
	defaultClassifierURL      = "http://localhost:5000"
	defaultClassifierTimeout  = 60
	defaultJWTExpirationHours = 24
	defaultThumbnailMaxSize   = 224
	defaultThumbnailQuality   = 75
	defaultPageSize           = 10
	defaultMaxUploadMB        = 20
	defaultPredictionCacheTTL = 60

	// only used when JWT_SECRET is unset; LoadConfig warns loudly about it
	insecureDevSecret = "dev-only-insecure-jwt-secret"
)

type Config struct {
	Port string

	// database settings
	DatabaseDriver   string
	DatabasePath     string // sqlite file
	DatabaseDSN      string // mysql dsn
	DatabaseLogLevel string

	// auth
	JWTSecret     []byte
	JWTExpiration time.Duration

	// inference service
	ClassifierURL       string
	ClassifierTimeout   time.Duration
	ClassifierEagerLoad bool

	// thumbnail generation settings
	ThumbnailMaxSize     int
	ThumbnailJPEGQuality int

	PageSize       int
	MaxUploadBytes int64

	// prediction cache, a TTL of 0 disables it
	PredictionCacheTTL time.Duration
	RedisURL           string

	CORSAllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig() (Config, error) {
	driver := strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverMySQL {
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER '%s'", driver)
	}
	dsn := os.Getenv("DATABASE_DSN")
	if driver == DriverMySQL && dsn == "" {
		return Config{}, fmt.Errorf("DATABASE_DSN is required when DATABASE_DRIVER is mysql")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Printf("Warning: JWT_SECRET is not set, using an insecure development secret")
		secret = insecureDevSecret
	}

	thumbMaxSize := getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize)
	if thumbMaxSize == 0 {
		thumbMaxSize = defaultThumbnailMaxSize
	}
	quality := getEnvIntOrDefault("THUMBNAIL_JPEG_QUALITY", defaultThumbnailQuality)
	if quality < 1 || quality > 100 {
		log.Printf("Warning: THUMBNAIL_JPEG_QUALITY %d out of range. Using default %d", quality, defaultThumbnailQuality)
		quality = defaultThumbnailQuality
	}
	pageSize := getEnvIntOrDefault("PAGE_SIZE", defaultPageSize)
	if pageSize == 0 {
		pageSize = defaultPageSize
	}

	cfg := Config{
		Port:                 getEnvOrDefault("PORT", defaultPort),
		DatabaseDriver:       driver,
		DatabasePath:         getEnvOrDefault("DATABASE_PATH", defaultDatabasePath),
		DatabaseDSN:          dsn,
		DatabaseLogLevel:     strings.ToLower(getEnvOrDefault("DATABASE_LOG_LEVEL", "warn")),
		JWTSecret:            []byte(secret),
		JWTExpiration:        time.Duration(getEnvIntOrDefault("JWT_EXPIRATION_HOURS", defaultJWTExpirationHours)) * time.Hour,
		ClassifierURL:        strings.TrimRight(getEnvOrDefault("CLASSIFIER_URL", defaultClassifierURL), "/"),
		ClassifierTimeout:    time.Duration(getEnvIntOrDefault("CLASSIFIER_TIMEOUT_SECONDS", defaultClassifierTimeout)) * time.Second,
		ClassifierEagerLoad:  getEnvBoolOrDefault("CLASSIFIER_EAGER_LOAD", true),
		ThumbnailMaxSize:     thumbMaxSize,
		ThumbnailJPEGQuality: quality,
		PageSize:             pageSize,
		MaxUploadBytes:       int64(getEnvIntOrDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		PredictionCacheTTL:   time.Duration(getEnvIntOrDefault("PREDICTION_CACHE_TTL_MINUTES", defaultPredictionCacheTTL)) * time.Minute,
		RedisURL:             os.Getenv("REDIS_URL"),
		CORSAllowedOrigins:   splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	return cfg, nil
}
