package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string
	AppEnv         string
	JWTSecret      string
	JWTExpiresIn   string
	AllowedOrigins []string
	// Per-IP request budget for the auth endpoints
	RateLimitPerMinute int
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for feed caching and job locks
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	GinMode       string
	GinPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Read tracking
	ReadWindow          time.Duration
	ReadCleanupInterval time.Duration
	ReadLogWorkers      int
	ReadLogQueueSize    int
	ReadLogTimeout      time.Duration
	// Aggregation job
	AggregationCron        string
	AggregationTimezone    string
	AggregationTimeout     time.Duration
	AggregationBatchSize   int
	SchedulerCheckInterval time.Duration
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := Parse(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Parse builds a configuration without caching it.
// Precedence: JSON file -> defaults -> .env / environment variable overrides.
func Parse(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("read %s: %w", path, err)
	}
	applyDefaults(&c)

	// .env is optional; real environment variables win over it
	_ = godotenv.Load()
	applyEnvOverrides(&c)

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate rejects configurations the server cannot start with.
func (c AppConfig) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be set and at least 16 characters long")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ReadWindow <= 0 || c.ReadCleanupInterval <= 0 {
		return errors.New("read window and cleanup interval must be positive")
	}
	if c.AggregationTimeout <= 0 || c.SchedulerCheckInterval <= 0 {
		return errors.New("aggregation timeout and scheduler interval must be positive")
	}
	if c.ReadLogWorkers < 1 || c.ReadLogQueueSize < 1 {
		return errors.New("READ_LOG_WORKERS and READ_LOG_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// loadJSONConfig reads grouped JSON sections into out. Missing files are ignored.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getDuration := func(m map[string]any, key string) time.Duration {
		d, _ := time.ParseDuration(getString(m, key))
		return d
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.AppEnv = getString(app, "AppEnv")
		out.JWTSecret = getString(app, "JWTSecret")
		out.JWTExpiresIn = getString(app, "JWTExpiresIn")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if arr, ok := app["AllowedOrigins"].([]any); ok {
			for _, it := range arr {
				if s, ok := it.(string); ok {
					out.AllowedOrigins = append(out.AllowedOrigins, s)
				}
			}
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisEnabled = getBool(rds, "Enabled")
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if tr, ok := raw["tracking"].(map[string]any); ok {
		out.ReadWindow = getDuration(tr, "Window")
		out.ReadCleanupInterval = getDuration(tr, "CleanupInterval")
		out.ReadLogWorkers = getInt(tr, "Workers")
		out.ReadLogQueueSize = getInt(tr, "QueueSize")
		out.ReadLogTimeout = getDuration(tr, "InsertTimeout")
	}

	if jb, ok := raw["jobs"].(map[string]any); ok {
		out.AggregationCron = getString(jb, "AggregationCron")
		out.AggregationTimezone = getString(jb, "AggregationTimezone")
		out.AggregationTimeout = getDuration(jb, "AggregationTimeout")
		out.AggregationBatchSize = getInt(jb, "AggregationBatchSize")
		out.SchedulerCheckInterval = getDuration(jb, "CheckInterval")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3000"
	}
	if c.AppEnv == "" {
		c.AppEnv = "development"
	}
	if c.JWTExpiresIn == "" {
		c.JWTExpiresIn = "24h"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBHost == "" {
		c.DBHost = "localhost"
	}
	if c.DBPort == "" {
		if c.DBDriver == "mysql" {
			c.DBPort = "3306"
		} else {
			c.DBPort = "5432"
		}
	}
	if c.DBName == "" {
		c.DBName = "news"
	}
	if c.RedisHost == "" {
		c.RedisHost = "localhost"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.ReadWindow == 0 {
		c.ReadWindow = 30 * time.Second
	}
	if c.ReadCleanupInterval == 0 {
		c.ReadCleanupInterval = time.Minute
	}
	if c.ReadLogWorkers == 0 {
		c.ReadLogWorkers = 4
	}
	if c.ReadLogQueueSize == 0 {
		c.ReadLogQueueSize = 1024
	}
	if c.ReadLogTimeout == 0 {
		c.ReadLogTimeout = 5 * time.Second
	}
	if c.AggregationCron == "" {
		c.AggregationCron = "0 0 * * *"
	}
	if c.AggregationTimezone == "" {
		c.AggregationTimezone = "UTC"
	}
	if c.AggregationTimeout == 0 {
		c.AggregationTimeout = 30 * time.Minute
	}
	if c.AggregationBatchSize == 0 {
		c.AggregationBatchSize = 1000
	}
	if c.SchedulerCheckInterval == 0 {
		c.SchedulerCheckInterval = 30 * time.Second
	}
}

// applyEnvOverrides overrides configuration with environment variables when set.
func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", getEnv("PORT", c.AppPort))
	c.AppEnv = getEnv("APP_ENV", c.AppEnv)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiresIn = getEnv("JWT_EXPIRES_IN", c.JWTExpiresIn)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	c.DBDriver = strings.ToLower(getEnv("DB_DRIVER", c.DBDriver))
	c.DatabaseURI = getEnv("DATABASE_URI", c.DatabaseURI)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)

	c.RedisEnabled = getEnvBool("REDIS_ENABLED", c.RedisEnabled)
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnvInt("REDIS_PORT", c.RedisPort)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.GinPath = getEnv("GIN_LOG_PATH", c.GinPath)

	c.ReadWindow = getEnvDuration("READ_WINDOW", c.ReadWindow)
	c.ReadCleanupInterval = getEnvDuration("READ_CLEANUP_INTERVAL", c.ReadCleanupInterval)
	c.ReadLogWorkers = getEnvInt("READ_LOG_WORKERS", c.ReadLogWorkers)
	c.ReadLogQueueSize = getEnvInt("READ_LOG_QUEUE_SIZE", c.ReadLogQueueSize)
	c.ReadLogTimeout = getEnvDuration("READ_LOG_TIMEOUT", c.ReadLogTimeout)

	c.AggregationCron = getEnv("AGGREGATION_CRON", c.AggregationCron)
	c.AggregationTimezone = getEnv("AGGREGATION_TIMEZONE", c.AggregationTimezone)
	c.AggregationTimeout = getEnvDuration("AGGREGATION_TIMEOUT", c.AggregationTimeout)
	c.AggregationBatchSize = getEnvInt("AGGREGATION_BATCH_SIZE", c.AggregationBatchSize)
	c.SchedulerCheckInterval = getEnvDuration("SCHEDULER_CHECK_INTERVAL", c.SchedulerCheckInterval)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
