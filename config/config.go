package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and batch run locks
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// HTTP hardening
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Admins allowed to fire reward triggers and backfills
	AdminUsernames []string
	// Reward accrual engine
	RewardTimezone        string
	RewardDailyXP         int64
	RewardDailyGems       int64
	RewardStandardCap     int64
	RewardPremiumCap      int64
	RewardBackfillAmount  int64
	RewardBatchWorkers    int
	RewardCreditAttempts  int
	RewardRetryBaseMillis int
	RewardRetryMaxMillis  int
	RewardCreditTimeoutMS int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

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

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
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
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
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
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if list := getStringSlice(app, "AdminUsernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if rw, ok := raw["rewards"].(map[string]any); ok {
		if v := getString(rw, "Timezone"); v != "" {
			out.RewardTimezone = v
		}
		if v := getInt(rw, "DailyXP"); v != 0 {
			out.RewardDailyXP = int64(v)
		}
		if v := getInt(rw, "DailyGems"); v != 0 {
			out.RewardDailyGems = int64(v)
		}
		if v := getInt(rw, "StandardCap"); v != 0 {
			out.RewardStandardCap = int64(v)
		}
		if v := getInt(rw, "PremiumCap"); v != 0 {
			out.RewardPremiumCap = int64(v)
		}
		if v := getInt(rw, "BackfillAmount"); v != 0 {
			out.RewardBackfillAmount = int64(v)
		}
		if v := getInt(rw, "BatchWorkers"); v != 0 {
			out.RewardBatchWorkers = v
		}
		if v := getInt(rw, "CreditAttempts"); v != 0 {
			out.RewardCreditAttempts = v
		}
		if v := getInt(rw, "RetryBaseMillis"); v != 0 {
			out.RewardRetryBaseMillis = v
		}
		if v := getInt(rw, "RetryMaxMillis"); v != 0 {
			out.RewardRetryMaxMillis = v
		}
		if v := getInt(rw, "CreditTimeoutMillis"); v != 0 {
			out.RewardCreditTimeoutMS = v
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
		if v := getString(g, "LogPath"); v != "" {
			out.GinPath = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		if v := getString(lg, "Level"); v != "" {
			out.LogLevel = v
		}
		if v := getString(lg, "Path"); v != "" {
			out.LogPath = v
		}
		if v := getString(lg, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(lg, "GinPath"); v != "" {
			out.GinPath = v
		}
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "cuspide"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
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
	// Reward engine defaults
	if c.RewardTimezone == "" {
		c.RewardTimezone = "UTC"
	}
	if c.RewardDailyXP == 0 {
		c.RewardDailyXP = 1000
	}
	if c.RewardDailyGems == 0 {
		c.RewardDailyGems = 50
	}
	if c.RewardStandardCap == 0 {
		c.RewardStandardCap = 10000
	}
	if c.RewardPremiumCap == 0 {
		c.RewardPremiumCap = 20000
	}
	if c.RewardBackfillAmount == 0 {
		c.RewardBackfillAmount = 500
	}
	if c.RewardBatchWorkers == 0 {
		c.RewardBatchWorkers = 8
	}
	if c.RewardCreditAttempts == 0 {
		c.RewardCreditAttempts = 3
	}
	if c.RewardRetryBaseMillis == 0 {
		c.RewardRetryBaseMillis = 50
	}
	if c.RewardRetryMaxMillis == 0 {
		c.RewardRetryMaxMillis = 1000
	}
	if c.RewardCreditTimeoutMS == 0 {
		c.RewardCreditTimeoutMS = 5000
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	// Reward engine env overrides
	if v := getEnv("REWARD_TIMEZONE", ""); v != "" {
		c.RewardTimezone = v
	}
	if v := getEnv("REWARD_DAILY_XP", ""); v != "" {
		c.RewardDailyXP = int64(mustParseInt(v))
	}
	if v := getEnv("REWARD_DAILY_GEMS", ""); v != "" {
		c.RewardDailyGems = int64(mustParseInt(v))
	}
	if v := getEnv("REWARD_STANDARD_CAP", ""); v != "" {
		c.RewardStandardCap = int64(mustParseInt(v))
	}
	if v := getEnv("REWARD_PREMIUM_CAP", ""); v != "" {
		c.RewardPremiumCap = int64(mustParseInt(v))
	}
	if v := getEnv("REWARD_BACKFILL_AMOUNT", ""); v != "" {
		c.RewardBackfillAmount = int64(mustParseInt(v))
	}
	if v := getEnv("REWARD_BATCH_WORKERS", ""); v != "" {
		c.RewardBatchWorkers = mustParseInt(v)
	}
	if v := getEnv("REWARD_CREDIT_ATTEMPTS", ""); v != "" {
		c.RewardCreditAttempts = mustParseInt(v)
	}
	if v := getEnv("REWARD_RETRY_BASE_MILLIS", ""); v != "" {
		c.RewardRetryBaseMillis = mustParseInt(v)
	}
	if v := getEnv("REWARD_RETRY_MAX_MILLIS", ""); v != "" {
		c.RewardRetryMaxMillis = mustParseInt(v)
	}
	if v := getEnv("REWARD_CREDIT_TIMEOUT_MILLIS", ""); v != "" {
		c.RewardCreditTimeoutMS = mustParseInt(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
