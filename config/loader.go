// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from various sources
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
			"/etc/soactor",
			os.Getenv("HOME") + "/.soactor",
		},
		envPrefix:     "SOACTOR",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// Load loads configuration from the specified file, falling back to
// defaults when filename is empty
func (l *Loader) Load(filename string) (*Config, error) {
	if filename != "" {
		return l.loadFromFile(filename)
	}

	config := l.defaults()
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	return l.loadFromFile(filename)
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}
	config = l.mergeConfig(l.defaults(), config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// AutoLoad automatically discovers and loads configuration
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, _, err := l.findConfigFile()
	if err != nil {
		// If no config file found, use default config with
		// environment overrides.
		if err == ErrConfigFileNotFound {
			return l.Load("")
		}
		return nil, err
	}

	return l.loadFromFile(configFile)
}

// findConfigFile searches for configuration files in search paths
func (l *Loader) findConfigFile() (string, ConfigFormat, error) {
	filenames := []string{
		"soactor.yaml", "soactor.yml",
		"config.yaml", "config.yml",
		"soactor.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				format, err := formatFromExt(filename)
				if err != nil {
					continue
				}
				return fullPath, format, nil
			}
		}
	}

	return "", "", ErrConfigFileNotFound
}

// formatFromExt determines the config format from a file extension
func formatFromExt(filename string) (ConfigFormat, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", ext)
	}
}

// loadFromFile loads configuration from a file
func (l *Loader) loadFromFile(filename string) (*Config, error) {
	format, err := formatFromExt(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	// Merge with default config to fill missing fields
	config = l.mergeConfig(l.defaults(), config)

	// Override with environment variables
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// defaults returns a copy of the default configuration
func (l *Loader) defaults() *Config {
	if l.defaultConfig != nil {
		copied := *l.defaultConfig
		return &copied
	}
	return DefaultConfig()
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	// App configuration
	if val := os.Getenv(l.envPrefix + "_APP_NAME"); val != "" {
		config.App.Name = val
	}
	if val := os.Getenv(l.envPrefix + "_APP_VERSION"); val != "" {
		config.App.Version = val
	}
	if val := os.Getenv(l.envPrefix + "_APP_ENVIRONMENT"); val != "" {
		config.App.Environment = Environment(val)
	}

	// Log configuration
	if val := os.Getenv(l.envPrefix + "_LOG_LEVEL"); val != "" {
		config.Log.Level = LogLevel(val)
	}
	if val := os.Getenv(l.envPrefix + "_LOG_ENCODING"); val != "" {
		config.Log.Encoding = val
	}

	// Tracing configuration
	if val := os.Getenv(l.envPrefix + "_TRACING_ENABLED"); val != "" {
		config.Tracing.Enabled = strings.ToLower(val) == "true"
	}

	// Mailbox configuration
	if val := os.Getenv(l.envPrefix + "_MAILBOX_AGENT_QUEUE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.Mailbox.AgentQueueSize = size
		}
	}
	if val := os.Getenv(l.envPrefix + "_MAILBOX_CHAIN_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.Mailbox.Chain.MaxSize = size
		}
	}
	if val := os.Getenv(l.envPrefix + "_MAILBOX_CHAIN_STORAGE"); val != "" {
		config.Mailbox.Chain.Storage = ChainStorage(val)
	}

	// Monitor configuration
	if val := os.Getenv(l.envPrefix + "_MONITOR_ENABLED"); val != "" {
		config.Monitor.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv(l.envPrefix + "_MONITOR_ADDRESS"); val != "" {
		config.Monitor.Address = val
	}

	return nil
}

// mergeConfig merges user config with default config
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	// Start with default config
	merged := *defaultConfig

	// Override with user config values where specified
	if userConfig.App.Name != "" {
		merged.App.Name = userConfig.App.Name
	}
	if userConfig.App.Version != "" {
		merged.App.Version = userConfig.App.Version
	}
	if userConfig.App.Environment != "" {
		merged.App.Environment = userConfig.App.Environment
	}

	// Log config
	if userConfig.Log.Level != "" {
		merged.Log.Level = userConfig.Log.Level
	}
	if userConfig.Log.Encoding != "" {
		merged.Log.Encoding = userConfig.Log.Encoding
	}
	merged.Log.Caller = userConfig.Log.Caller

	// Tracing config
	merged.Tracing.Enabled = userConfig.Tracing.Enabled

	// Mailbox config
	if userConfig.Mailbox.AgentQueueSize != 0 {
		merged.Mailbox.AgentQueueSize = userConfig.Mailbox.AgentQueueSize
	}
	merged.Mailbox.Chain.Unlimited = userConfig.Mailbox.Chain.Unlimited
	if userConfig.Mailbox.Chain.MaxSize != 0 {
		merged.Mailbox.Chain.MaxSize = userConfig.Mailbox.Chain.MaxSize
	}
	if userConfig.Mailbox.Chain.Storage != "" {
		merged.Mailbox.Chain.Storage = userConfig.Mailbox.Chain.Storage
	}

	// Monitor config
	merged.Monitor.Enabled = userConfig.Monitor.Enabled
	if userConfig.Monitor.Address != "" {
		merged.Monitor.Address = userConfig.Monitor.Address
	}
	if userConfig.Monitor.MetricsPath != "" {
		merged.Monitor.MetricsPath = userConfig.Monitor.MetricsPath
	}

	return &merged
}
