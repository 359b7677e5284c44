// Package config provides configuration management for the soactor runtime
package config

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	return string(l)
}

// IsValid checks if the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	default:
		return false
	}
}

// ChainStorage selects the storage mode for limited chains
type ChainStorage string

const (
	StorageDynamic      ChainStorage = "dynamic"
	StoragePreallocated ChainStorage = "preallocated"
)

// IsValid checks if the storage mode is valid
func (s ChainStorage) IsValid() bool {
	switch s {
	case StorageDynamic, StoragePreallocated:
		return true
	default:
		return false
	}
}

// Config represents the complete soactor configuration
type Config struct {
	// Application configuration
	App AppConfig `yaml:"app" json:"app"`

	// Logging configuration
	Log LogConfig `yaml:"log" json:"log"`

	// Message tracing configuration
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Mailbox registry configuration
	Mailbox MailboxConfig `yaml:"mailbox" json:"mailbox"`

	// Monitoring configuration
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	// Application name
	Name string `yaml:"name" json:"name"`

	// Application version
	Version string `yaml:"version" json:"version"`

	// Deployment environment
	Environment Environment `yaml:"environment" json:"environment"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	// Log level
	Level LogLevel `yaml:"level" json:"level"`

	// Log encoding (json, console)
	Encoding string `yaml:"encoding" json:"encoding"`

	// Enable caller annotation
	Caller bool `yaml:"caller" json:"caller"`
}

// TracingConfig controls the message tracing gate consulted at
// mailbox creation time. Changing Enabled after startup only affects
// mailboxes created afterward.
type TracingConfig struct {
	// Enable message tracing for newly created mailboxes
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// MailboxConfig contains mailbox registry configuration
type MailboxConfig struct {
	// Default demand queue size for spawned agents
	AgentQueueSize int `yaml:"agent_queue_size" json:"agent_queue_size"`

	// Default chain settings
	Chain ChainConfig `yaml:"chain" json:"chain"`
}

// ChainConfig contains default chain capacity settings
type ChainConfig struct {
	// Unlimited chains grow without bound; MaxSize is ignored
	Unlimited bool `yaml:"unlimited" json:"unlimited"`

	// Maximum pending demand count for limited chains
	MaxSize int `yaml:"max_size" json:"max_size"`

	// Storage allocation mode for limited chains
	Storage ChainStorage `yaml:"storage" json:"storage"`
}

// MonitorConfig contains monitoring configuration
type MonitorConfig struct {
	// Enable prometheus metrics collection
	Enabled bool `yaml:"enabled" json:"enabled"`

	// HTTP listen address for the metrics endpoint
	Address string `yaml:"address" json:"address"`

	// Metrics endpoint path
	MetricsPath string `yaml:"metrics_path" json:"metrics_path"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "soactor-app",
			Version:     "1.0.0",
			Environment: EnvDevelopment,
		},
		Log: LogConfig{
			Level:    LogLevelInfo,
			Encoding: "console",
			Caller:   false,
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
		Mailbox: MailboxConfig{
			AgentQueueSize: 1000,
			Chain: ChainConfig{
				Unlimited: false,
				MaxSize:   1024,
				Storage:   StorageDynamic,
			},
		},
		Monitor: MonitorConfig{
			Enabled:     false,
			Address:     "0.0.0.0:9090",
			MetricsPath: "/metrics",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return ErrInvalidAppName
	}
	if !c.App.Environment.IsValid() {
		return ErrInvalidEnvironment
	}

	if !c.Log.Level.IsValid() {
		return ErrInvalidLogLevel
	}

	if c.Mailbox.AgentQueueSize <= 0 {
		return ErrInvalidAgentQueueSize
	}
	if !c.Mailbox.Chain.Unlimited {
		if c.Mailbox.Chain.MaxSize <= 0 {
			return ErrInvalidChainCapacity
		}
		if !c.Mailbox.Chain.Storage.IsValid() {
			return ErrInvalidChainStorage
		}
	}

	return nil
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}
