package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type envConfig struct {
	APP_PORT      string
	LOG_FILE_PATH string

	EXPORT_FOLDER            string
	EXPORT_LINK_PATH         string
	EXPORT_STREAM            bool
	EXPORT_DELETE_AFTER_SAVE bool
	EXPORT_BATCH_SIZE        int
	EXPORT_CONFIG_FILE       string

	DB_HOST              string
	DB_PORT              string
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_MAX_OPEN_CONNS    int
	DB_MAX_IDLE_CONNS    int
	DB_CONN_MAX_LIFETIME time.Duration

	ES_URL         string
	GCP_PROJECT_ID string
}

// DefaultEnvConfig is populated by LoadEnvConfig and read everywhere else.
var DefaultEnvConfig envConfig

// LoadEnvConfig loads .env when present (real deployments set the
// environment directly) and snapshots the variables this service uses.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	DefaultEnvConfig = envConfig{
		APP_PORT:      getEnv("APP_PORT", "8080"),
		LOG_FILE_PATH: getEnv("LOG_FILE_PATH", ""),

		EXPORT_FOLDER:            getEnv("EXPORT_FOLDER", "exports"),
		EXPORT_LINK_PATH:         getEnv("EXPORT_LINK_PATH", "/exports/files"),
		EXPORT_STREAM:            getEnvBool("EXPORT_STREAM", true),
		EXPORT_DELETE_AFTER_SAVE: getEnvBool("EXPORT_DELETE_AFTER_SAVE", false),
		EXPORT_BATCH_SIZE:        getEnvInt("EXPORT_BATCH_SIZE", 500),
		EXPORT_CONFIG_FILE:       getEnv("EXPORT_CONFIG_FILE", ""),

		DB_HOST:              getEnv("DB_HOST", "localhost"),
		DB_PORT:              getEnv("DB_PORT", "5432"),
		DB_USER:              getEnv("DB_USER", "postgres"),
		DB_PASSWORD:          getEnv("DB_PASSWORD", ""),
		DB_NAME:              getEnv("DB_NAME", "employees"),
		DB_SSL_MODE:          getEnv("DB_SSL_MODE", "disable"),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		ES_URL:         getEnv("ES_URL", ""),
		GCP_PROJECT_ID: getEnv("GCP_PROJECT_ID", ""),
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
