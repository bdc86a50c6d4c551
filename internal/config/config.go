package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Env string `yaml:"env"`

	// Server
	Port string `yaml:"port"`

	// Database
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBSSLMode  string `yaml:"db_sslmode"`

	// JWT
	JWTSecret        string        `yaml:"jwt_secret"`
	JWTExpirationDur time.Duration `yaml:"-"`

	// Budget cycles
	BudgetEditWindow time.Duration `yaml:"-"`

	// Events
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Caches
	CategoryCacheSize int64 `yaml:"category_cache_size"`
}

// fileConfig is the optional YAML overlay. Durations are kept as strings so
// the file and the environment accept the same "24h" notation.
type fileConfig struct {
	Config        `yaml:",inline"`
	JWTExpiresIn  string `yaml:"jwt_expires_in"`
	BudgetEditWin string `yaml:"budget_edit_window"`
}

var appConfig *Config

// Load loads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables. Environment variables win over the file.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	defaults, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Env: getEnv("ENV", orDefault(defaults.Env, "development")),

		// Server
		Port: getEnv("PORT", orDefault(defaults.Port, "8080")),

		// Database
		DBHost:     getEnv("DB_HOST", orDefault(defaults.DBHost, "localhost")),
		DBPort:     getEnv("DB_PORT", orDefault(defaults.DBPort, "5432")),
		DBUser:     getEnv("DB_USER", orDefault(defaults.DBUser, "spendwise")),
		DBPassword: getEnv("DB_PASSWORD", orDefault(defaults.DBPassword, "spendwise")),
		DBName:     getEnv("DB_NAME", orDefault(defaults.DBName, "spendwise")),
		DBSSLMode:  getEnv("DB_SSLMODE", orDefault(defaults.DBSSLMode, "disable")),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", orDefault(defaults.JWTSecret, "fallback-secret-key-for-dev-only")),

		// Events
		AMQPURL:      getEnv("AMQP_URL", defaults.AMQPURL),
		AMQPExchange: getEnv("AMQP_EXCHANGE", orDefault(defaults.AMQPExchange, "spendwise")),
		AMQPQueue:    getEnv("AMQP_QUEUE", orDefault(defaults.AMQPQueue, "budget.cycle.closed")),
	}

	config.JWTExpirationDur = parseDuration("JWT_EXPIRES_IN", getEnv("JWT_EXPIRES_IN", orDefault(defaults.JWTExpiresIn, "24h")), 24*time.Hour)
	config.BudgetEditWindow = parseDuration("BUDGET_EDIT_WINDOW", getEnv("BUDGET_EDIT_WINDOW", orDefault(defaults.BudgetEditWin, "24h")), 24*time.Hour)

	config.CategoryCacheSize = defaults.CategoryCacheSize
	if config.CategoryCacheSize <= 0 {
		config.CategoryCacheSize = 10000
	}
	if v := os.Getenv("CATEGORY_CACHE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid CATEGORY_CACHE_SIZE %q: must be a positive integer", v)
		}
		config.CategoryCacheSize = n
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// loadFile reads the YAML overlay. A missing path yields empty defaults.
func loadFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: config file %s not found", path)
			return fc, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// parseDuration falls back to def when value is not a positive duration.
func parseDuration(key, value string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, value, def)
		return def
	}
	return d
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func orDefault(value, def string) string {
	if value != "" {
		return value
	}
	return def
}
