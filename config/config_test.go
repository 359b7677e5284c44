package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if config.App.Name != "soactor-app" {
		t.Errorf("unexpected default app name: %s", config.App.Name)
	}
	if config.Mailbox.AgentQueueSize != 1000 {
		t.Errorf("unexpected default agent queue size: %d", config.Mailbox.AgentQueueSize)
	}
	if config.Mailbox.Chain.Storage != StorageDynamic {
		t.Errorf("unexpected default chain storage: %s", config.Mailbox.Chain.Storage)
	}
	if config.Tracing.Enabled {
		t.Error("tracing must default to disabled")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: ErrInvalidAppName,
		},
		{
			name:    "bad environment",
			mutate:  func(c *Config) { c.App.Environment = "outer-space" },
			wantErr: ErrInvalidEnvironment,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "zero agent queue",
			mutate:  func(c *Config) { c.Mailbox.AgentQueueSize = 0 },
			wantErr: ErrInvalidAgentQueueSize,
		},
		{
			name:    "zero chain capacity",
			mutate:  func(c *Config) { c.Mailbox.Chain.MaxSize = 0 },
			wantErr: ErrInvalidChainCapacity,
		},
		{
			name:    "bad chain storage",
			mutate:  func(c *Config) { c.Mailbox.Chain.Storage = "stack" },
			wantErr: ErrInvalidChainStorage,
		},
	}

	for _, tc := range cases {
		config := DefaultConfig()
		tc.mutate(config)
		if err := config.Validate(); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestUnlimitedChainSkipsCapacityValidation(t *testing.T) {
	config := DefaultConfig()
	config.Mailbox.Chain.Unlimited = true
	config.Mailbox.Chain.MaxSize = 0
	config.Mailbox.Chain.Storage = ""

	if err := config.Validate(); err != nil {
		t.Errorf("unlimited chain config must validate, got %v", err)
	}
}

func TestLoaderYAML(t *testing.T) {
	yamlData := `
app:
  name: test-app
  environment: testing
log:
  level: debug
tracing:
  enabled: true
mailbox:
  agent_queue_size: 64
  chain:
    max_size: 16
    storage: preallocated
`

	loader := NewLoader()
	config, err := loader.LoadFromReader(strings.NewReader(yamlData), FormatYAML)
	if err != nil {
		t.Fatalf("failed to load YAML config: %v", err)
	}

	if config.App.Name != "test-app" {
		t.Errorf("expected app name 'test-app', got %s", config.App.Name)
	}
	if config.App.Environment != EnvTesting {
		t.Errorf("expected testing environment, got %s", config.App.Environment)
	}
	if !config.Tracing.Enabled {
		t.Error("expected tracing enabled")
	}
	if config.Mailbox.AgentQueueSize != 64 {
		t.Errorf("expected agent queue size 64, got %d", config.Mailbox.AgentQueueSize)
	}
	if config.Mailbox.Chain.MaxSize != 16 {
		t.Errorf("expected chain max size 16, got %d", config.Mailbox.Chain.MaxSize)
	}
	if config.Mailbox.Chain.Storage != StoragePreallocated {
		t.Errorf("expected preallocated storage, got %s", config.Mailbox.Chain.Storage)
	}

	// Fields absent from the file must keep their defaults.
	if config.App.Version != "1.0.0" {
		t.Errorf("expected default version, got %s", config.App.Version)
	}
}

func TestLoaderJSON(t *testing.T) {
	jsonData := `{"app": {"name": "json-app"}, "log": {"level": "warn"}}`

	loader := NewLoader()
	config, err := loader.LoadFromReader(strings.NewReader(jsonData), FormatJSON)
	if err != nil {
		t.Fatalf("failed to load JSON config: %v", err)
	}

	if config.App.Name != "json-app" {
		t.Errorf("expected app name 'json-app', got %s", config.App.Name)
	}
	if config.Log.Level != LogLevelWarn {
		t.Errorf("expected warn level, got %s", config.Log.Level)
	}
}

func TestLoaderInvalidConfigRejected(t *testing.T) {
	yamlData := `
mailbox:
  agent_queue_size: -5
`
	loader := NewLoader()
	if _, err := loader.LoadFromReader(strings.NewReader(yamlData), FormatYAML); err == nil {
		t.Fatal("expected validation failure for negative queue size")
	}
}

func TestLoaderFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "soactor.yaml")

	data := "app:\n  name: file-app\n"
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader()
	config, err := loader.LoadFromFile(file)
	if err != nil {
		t.Fatalf("failed to load config file: %v", err)
	}
	if config.App.Name != "file-app" {
		t.Errorf("expected 'file-app', got %s", config.App.Name)
	}
}

func TestLoaderUnsupportedExtension(t *testing.T) {
	loader := NewLoader()
	if _, err := loader.LoadFromFile("config.toml"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("SOACTOR_APP_NAME", "env-app")
	t.Setenv("SOACTOR_TRACING_ENABLED", "true")
	t.Setenv("SOACTOR_MAILBOX_CHAIN_MAX_SIZE", "7")

	loader := NewLoader()
	config, err := loader.Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if config.App.Name != "env-app" {
		t.Errorf("expected env override 'env-app', got %s", config.App.Name)
	}
	if !config.Tracing.Enabled {
		t.Error("expected tracing enabled via environment")
	}
	if config.Mailbox.Chain.MaxSize != 7 {
		t.Errorf("expected chain max size 7, got %d", config.Mailbox.Chain.MaxSize)
	}
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "soactor.yaml")

	if err := os.WriteFile(file, []byte("app:\n  name: before\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	watcher, err := NewWatcher(file, NewLoader(), nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	if got := watcher.GetConfig().App.Name; got != "before" {
		t.Fatalf("expected initial name 'before', got %s", got)
	}

	changed := make(chan *Config, 1)
	watcher.OnChange(func(oldConfig, newConfig *Config) {
		select {
		case changed <- newConfig:
		default:
		}
	})

	if err := os.WriteFile(file, []byte("app:\n  name: after\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}
	if err := watcher.Reload(); err != nil {
		t.Fatalf("manual reload failed: %v", err)
	}

	select {
	case newConfig := <-changed:
		if newConfig.App.Name != "after" {
			t.Errorf("expected reloaded name 'after', got %s", newConfig.App.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("change callback was not invoked")
	}

	if got := watcher.GetConfig().App.Name; got != "after" {
		t.Errorf("expected current name 'after', got %s", got)
	}
}

func TestWatcherRejectsUnsupportedFormat(t *testing.T) {
	if _, err := NewWatcher("config.toml", NewLoader(), nil); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
