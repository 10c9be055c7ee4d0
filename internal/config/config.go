package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"casedesk/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig
	Tools      ToolsConfig
	Server     ServerConfig
	Agent      AgentConfig
	Checkpoint CheckpointConfig
	Log        LogConfig
}

// DataConfig locates the read-only source documents
type DataConfig struct {
	WorkbookFile string
	EmailFile    string
	AnchorToken  string
}

// ToolsConfig holds the tool server settings
type ToolsConfig struct {
	Name    string
	Version string
	Port    string
}

// ServerConfig holds chat web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// AgentConfig holds model and tool endpoint settings for the chat agent
type AgentConfig struct {
	MCPURL         string
	OllamaURL      string
	Model          string
	ThreadID       string
	RecursionLimit int
	SystemPrompt   string
}

// CheckpointConfig selects the conversation history store
type CheckpointConfig struct {
	Driver string
	DSN    string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string
	Development bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:       *loadDataConfig(),
		Tools:      *loadToolsConfig(),
		Server:     *loadServerConfig(),
		Agent:      *loadAgentConfig(),
		Checkpoint: *loadCheckpointConfig(),
		Log:        *loadLogConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		WorkbookFile: getEnvOrDefault("WORKBOOK_FILE", "File.xlsm"),
		EmailFile:    getEnvOrDefault("EMAIL_FILE", "mail.csv"),
		AnchorToken:  getEnvOrDefault("ANCHOR_TOKEN", "STT"),
	}
}

func loadToolsConfig() *ToolsConfig {
	return &ToolsConfig{
		Name:    getEnvOrDefault("TOOLS_NAME", "analyze_data"),
		Version: getEnvOrDefault("TOOLS_VERSION", "1.0.0"),
		Port:    getEnvOrDefault("TOOLS_PORT", "8080"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8000"),
		GinMode:         getEnvOrDefault("GIN_MODE", "debug"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadAgentConfig() *AgentConfig {
	return &AgentConfig{
		MCPURL:         getEnvOrDefault("MCP_URL", "http://localhost:8080/mcp"),
		OllamaURL:      getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		Model:          getEnvOrDefault("OLLAMA_MODEL", "gpt-oss"),
		ThreadID:       getEnvOrDefault("THREAD_ID", ""),
		RecursionLimit: getEnvIntOrDefault("RECURSION_LIMIT", 100),
		SystemPrompt:   os.Getenv("SYSTEM_PROMPT"),
	}
}

func loadCheckpointConfig() *CheckpointConfig {
	return &CheckpointConfig{
		Driver: strings.ToLower(getEnvOrDefault("CHECKPOINT_DRIVER", "sqlite")),
		DSN:    getEnvOrDefault("CHECKPOINT_DSN", "checkpoints.db"),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Development: getEnvBoolOrDefault("LOG_DEV", false),
	}
}

func validateConfig(config *Config) error {
	if config.Data.WorkbookFile == "" {
		return errors.ConfigInvalid("workbook file is required")
	}
	if strings.TrimSpace(config.Data.AnchorToken) == "" {
		return errors.ConfigInvalid("anchor token must not be blank")
	}
	if config.Agent.RecursionLimit <= 0 {
		return errors.ConfigInvalid("RECURSION_LIMIT must be positive")
	}
	switch config.Checkpoint.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigInvalid("CHECKPOINT_DRIVER must be sqlite or postgres")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
