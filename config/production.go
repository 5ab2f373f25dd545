// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/quote-core/utils"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
	Routing    RoutingConfig    `json:"routing"`
	Pricing    PricingConfig    `json:"pricing"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	RequestTimeout  time.Duration `json:"request_timeout"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	AdminRateLimit  int           `json:"admin_rate_limit"`  // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

// JWTConfig configures verification of tokens issued by the external auth system
type JWTConfig struct {
	SecretKey  string `json:"secret_key"`
	PublicKey  string `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys bool   `json:"use_rsa_keys"` // Whether to verify RS256 instead of HS256
	Issuer     string `json:"issuer"`
	Audience   string `json:"audience"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, console
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`
	EnableAccessLog  bool   `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis, none
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// RoutingConfig controls how low-confidence fields affect downstream calculation
type RoutingConfig struct {
	// HumanReviewPolicy is either "block" or "proceed_unverified"
	HumanReviewPolicy string `json:"human_review_policy"`
	QueueEnabled      bool   `json:"queue_enabled"`
}

type PricingConfig struct {
	DefaultCurrency string        `json:"default_currency"`
	FactorsSeedFile string        `json:"factors_seed_file"`
	FactorCacheTTL  time.Duration `json:"factor_cache_ttl"`
}

// PipelineConfig holds the gates of the fix deployment pipeline
type PipelineConfig struct {
	MinTestSuccessRate   float64       `json:"min_test_success_rate"`
	MinConfidenceScore   float64       `json:"min_confidence_score"`
	MonitoringWindow     time.Duration `json:"monitoring_window"`
	RollbackWindow       time.Duration `json:"rollback_window"`
	MinPostDeploySamples int           `json:"min_post_deploy_samples"`
	WindowTimezone       string        `json:"window_timezone"`
	WindowWeekdays       []string      `json:"window_weekdays"`
	WindowStartHour      int           `json:"window_start_hour"`
	WindowEndHour        int           `json:"window_end_hour"`
	DeployLockTTL        time.Duration `json:"deploy_lock_ttl"`
}

type SchedulerConfig struct {
	AnalysisEnabled     bool          `json:"analysis_enabled"`
	AnalysisInterval    time.Duration `json:"analysis_interval"`
	AnalysisWindow      time.Duration `json:"analysis_window"`
	AnalysisConcurrency int           `json:"analysis_concurrency"`
	AutoProposeSeverity string        `json:"auto_propose_severity"`
	MonitoringEnabled   bool          `json:"monitoring_enabled"`
	MonitoringInterval  time.Duration `json:"monitoring_interval"`
}

func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "quote_core"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			RequestTimeout:  getEnvDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 1000),
			AdminRateLimit:   getEnvInt("ADMIN_RATE_LIMIT", 120),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey:  getEnvString("JWT_SECRET_KEY", ""),
			PublicKey:  getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys: getEnvBool("JWT_USE_RSA_KEYS", false),
			Issuer:     getEnvString("JWT_ISSUER", "quote-auth"),
			Audience:   getEnvString("JWT_AUDIENCE", "quote-core"),
		},
		Logging: LoggingConfig{
			Level:            getEnvString("LOG_LEVEL", "info"),
			Format:           getEnvString("LOG_FORMAT", "json"),
			Output:           getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:         getEnvString("LOG_FILE_PATH", "/var/log/quote-core/app.log"),
			MaxSize:          getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:           getEnvInt("LOG_MAX_AGE", 30),
			Compress:         getEnvBool("LOG_COMPRESS", true),
			EnableCaller:     getEnvBool("LOG_ENABLE_CALLER", true),
			EnableStacktrace: getEnvBool("LOG_ENABLE_STACKTRACE", false),
			EnableAccessLog:  getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", true),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "quote:"),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
		Routing: RoutingConfig{
			HumanReviewPolicy: getEnvString("ROUTING_HUMAN_REVIEW_POLICY", "block"),
			QueueEnabled:      getEnvBool("ROUTING_QUEUE_ENABLED", true),
		},
		Pricing: PricingConfig{
			DefaultCurrency: getEnvString("PRICING_DEFAULT_CURRENCY", utils.EuroCurrency),
			FactorsSeedFile: getEnvString("PRICING_FACTORS_SEED_FILE", ""),
			FactorCacheTTL:  getEnvDuration("PRICING_FACTOR_CACHE_TTL", 10*time.Minute),
		},
		Pipeline: PipelineConfig{
			MinTestSuccessRate:   getEnvFloat("PIPELINE_MIN_TEST_SUCCESS_RATE", utils.MinTestSuccessRate),
			MinConfidenceScore:   getEnvFloat("PIPELINE_MIN_CONFIDENCE_SCORE", utils.MinConfidenceScore),
			MonitoringWindow:     getEnvDuration("PIPELINE_MONITORING_WINDOW", utils.MonitoringWindow),
			RollbackWindow:       getEnvDuration("PIPELINE_ROLLBACK_WINDOW", utils.RollbackWindow),
			MinPostDeploySamples: getEnvInt("PIPELINE_MIN_POST_DEPLOY_SAMPLES", 10),
			WindowTimezone:       getEnvString("PIPELINE_WINDOW_TIMEZONE", "Europe/Berlin"),
			WindowWeekdays:       getEnvStringSlice("PIPELINE_WINDOW_WEEKDAYS", []string{"mon", "tue", "wed", "thu", "fri"}),
			WindowStartHour:      getEnvInt("PIPELINE_WINDOW_START_HOUR", 9),
			WindowEndHour:        getEnvInt("PIPELINE_WINDOW_END_HOUR", 16),
			DeployLockTTL:        getEnvDuration("PIPELINE_DEPLOY_LOCK_TTL", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			AnalysisEnabled:     getEnvBool("SCHEDULER_ANALYSIS_ENABLED", true),
			AnalysisInterval:    getEnvDuration("SCHEDULER_ANALYSIS_INTERVAL", 6*time.Hour),
			AnalysisWindow:      getEnvDuration("SCHEDULER_ANALYSIS_WINDOW", 7*24*time.Hour),
			AnalysisConcurrency: getEnvInt("SCHEDULER_ANALYSIS_CONCURRENCY", 4),
			AutoProposeSeverity: getEnvString("SCHEDULER_AUTO_PROPOSE_SEVERITY", "HIGH"),
			MonitoringEnabled:   getEnvBool("SCHEDULER_MONITORING_ENABLED", true),
			MonitoringInterval:  getEnvDuration("SCHEDULER_MONITORING_INTERVAL", 15*time.Minute),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
			(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
			value = value[1 : len(value)-1]
		}

		// Set environment variable if not already set
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PublicKey == "" {
			errors = append(errors, "JWT_PUBLIC_KEY is required when JWT_USE_RSA_KEYS is set")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	if cfg.Logging.Output == "file" || cfg.Logging.Output == "both" {
		if cfg.Logging.FilePath == "" {
			errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Validate routing policy
	switch cfg.Routing.HumanReviewPolicy {
	case "block", "proceed_unverified":
	default:
		errors = append(errors, "ROUTING_HUMAN_REVIEW_POLICY must be one of: block, proceed_unverified")
	}

	// Validate pipeline gates
	if cfg.Pipeline.MinTestSuccessRate <= 0 || cfg.Pipeline.MinTestSuccessRate > 1 {
		errors = append(errors, "PIPELINE_MIN_TEST_SUCCESS_RATE must be in (0, 1]")
	}
	if cfg.Pipeline.MinConfidenceScore <= 0 || cfg.Pipeline.MinConfidenceScore > 1 {
		errors = append(errors, "PIPELINE_MIN_CONFIDENCE_SCORE must be in (0, 1]")
	}
	if cfg.Pipeline.MonitoringWindow <= 0 {
		errors = append(errors, "PIPELINE_MONITORING_WINDOW must be positive")
	}
	if cfg.Pipeline.RollbackWindow < cfg.Pipeline.MonitoringWindow {
		errors = append(errors, "PIPELINE_ROLLBACK_WINDOW must not be shorter than PIPELINE_MONITORING_WINDOW")
	}
	if cfg.Pipeline.WindowStartHour < 0 || cfg.Pipeline.WindowEndHour > 24 || cfg.Pipeline.WindowStartHour >= cfg.Pipeline.WindowEndHour {
		errors = append(errors, "PIPELINE_WINDOW_START_HOUR must be before PIPELINE_WINDOW_END_HOUR within 0..24")
	}
	if _, err := time.LoadLocation(cfg.Pipeline.WindowTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("PIPELINE_WINDOW_TIMEZONE is invalid: %v", err))
	}

	// Validate scheduler configuration
	if cfg.Scheduler.AnalysisEnabled && cfg.Scheduler.AnalysisInterval <= 0 {
		errors = append(errors, "SCHEDULER_ANALYSIS_INTERVAL must be positive")
	}
	if cfg.Scheduler.MonitoringEnabled && cfg.Scheduler.MonitoringInterval <= 0 {
		errors = append(errors, "SCHEDULER_MONITORING_INTERVAL must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
