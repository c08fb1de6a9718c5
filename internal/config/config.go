package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Catalog    CatalogConfig
	Chat       ChatConfig
	Ranking    RankingConfig
	Logging    LoggingConfig
	LLM        LLMConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, preferred over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	AuditEnabled       bool // record turns and feedback
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// CatalogConfig selects where phones and keyword tables come from
type CatalogConfig struct {
	Source       string // json or postgres
	Path         string // JSON catalog file; empty uses the built-in catalog
	PatternsPath string // YAML keyword tables; empty uses the built-in tables
}

// ChatConfig holds turn pipeline limits
type ChatConfig struct {
	CandidateLimit        int
	HistoryWindow         int
	HistoryMessageMaxChar int
	GenerationTimeout     time.Duration
}

// RankingConfig holds the additive scoring constants
type RankingConfig struct {
	BudgetMatch        float64
	BudgetClosenessMax float64
	OSMatch            float64
	CameraTag          float64
	CameraOIS          float64
	BatteryTiers       [3]float64 // >=5500, >=5000, >=4500 mAh
	ChargingTiers      [3]float64 // >=80, >=33, >=18 W
	CompactTiers       [2]float64 // <=6.2, <=6.5 inches
	DisplayTiers       [2]float64 // >=120, >=90 Hz
	PerformanceTag     float64
	GamingExtra        float64
	RatingMax          float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
	File   string // optional rotating log file
}

// LLMConfig selects the external model provider
type LLMConfig struct {
	Provider    string // openai, gemini or none
	APIKeyParam string // SSM parameter holding the provider API key
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":true}})
	Timeout         int
	Enabled         bool
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "phoneadvisor"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			AuditEnabled:       getEnvAsBool("AUDIT_ENABLED", false),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Catalog: CatalogConfig{
			Source:       strings.ToLower(getEnv("CATALOG_SOURCE", "json")),
			Path:         getEnv("CATALOG_PATH", ""),
			PatternsPath: getEnv("PATTERNS_PATH", ""),
		},
		Chat: ChatConfig{
			CandidateLimit:        getEnvAsInt("CHAT_CANDIDATE_LIMIT", 5),
			HistoryWindow:         getEnvAsInt("CHAT_HISTORY_WINDOW", 8),
			HistoryMessageMaxChar: getEnvAsInt("CHAT_HISTORY_MESSAGE_MAX_CHARS", 600),
			GenerationTimeout:     time.Duration(getEnvAsInt("CHAT_GENERATION_TIMEOUT", 20)) * time.Second,
		},
		Ranking: RankingConfig{
			BudgetMatch:        getEnvAsFloat("RANK_BUDGET_MATCH", 10),
			BudgetClosenessMax: getEnvAsFloat("RANK_BUDGET_CLOSENESS_MAX", 3),
			OSMatch:            getEnvAsFloat("RANK_OS_MATCH", 4),
			CameraTag:          getEnvAsFloat("RANK_CAMERA_TAG", 6),
			CameraOIS:          getEnvAsFloat("RANK_CAMERA_OIS", 2),
			BatteryTiers:       [3]float64{getEnvAsFloat("RANK_BATTERY_EXCELLENT", 6), getEnvAsFloat("RANK_BATTERY_GOOD", 4), getEnvAsFloat("RANK_BATTERY_DECENT", 2)},
			ChargingTiers:      [3]float64{getEnvAsFloat("RANK_CHARGING_VERY_FAST", 6), getEnvAsFloat("RANK_CHARGING_FAST", 4), getEnvAsFloat("RANK_CHARGING_STANDARD", 2)},
			CompactTiers:       [2]float64{getEnvAsFloat("RANK_COMPACT_SMALL", 6), getEnvAsFloat("RANK_COMPACT_MANAGEABLE", 3)},
			DisplayTiers:       [2]float64{getEnvAsFloat("RANK_DISPLAY_120HZ", 4), getEnvAsFloat("RANK_DISPLAY_90HZ", 2)},
			PerformanceTag:     getEnvAsFloat("RANK_PERFORMANCE_TAG", 4),
			GamingExtra:        getEnvAsFloat("RANK_GAMING_EXTRA", 2),
			RatingMax:          getEnvAsFloat("RANK_RATING_MAX", 3),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "")),
			APIKeyParam: getEnv("LLM_API_KEY_PARAM", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         getEnv("OPENAI_API_BASE", "https://integrate.api.nvidia.com/v1"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "deepseek-ai/deepseek-v3.1-terminus"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 2048),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 30),
			Enabled:         getEnv("OPENAI_API_KEY", "") != "",
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = cfg.detectProvider()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// detectProvider picks a provider from whichever API key is configured
func (c *Config) detectProvider() string {
	switch {
	case c.Gemini.APIKey != "":
		return "gemini"
	case c.OpenAI.APIKey != "":
		return "openai"
	case c.LLM.APIKeyParam != "":
		return "gemini"
	default:
		return "none"
	}
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case "json", "postgres":
	default:
		return fmt.Errorf("invalid CATALOG_SOURCE %q: want json or postgres", c.Catalog.Source)
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q: want openai, gemini or none", c.LLM.Provider)
	}
	if c.Chat.CandidateLimit <= 0 {
		return fmt.Errorf("CHAT_CANDIDATE_LIMIT must be positive, got %d", c.Chat.CandidateLimit)
	}
	if c.Chat.HistoryWindow < 0 || c.Chat.HistoryMessageMaxChar < 0 {
		return fmt.Errorf("chat history limits must not be negative")
	}
	if c.Chat.GenerationTimeout <= 0 {
		return fmt.Errorf("CHAT_GENERATION_TIMEOUT must be positive")
	}
	return nil
}

// NeedsDatabase reports whether any component reads from or writes to Postgres
func (c *Config) NeedsDatabase() bool {
	return c.Catalog.Source == "postgres" || c.PostgreSQL.AuditEnabled
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}
