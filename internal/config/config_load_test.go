package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

var envVars = []string{
	"CLINICAL_EXTRACT_MODE",
	"CLINICAL_EXTRACT_HOST",
	"CLINICAL_EXTRACT_PORT",
	"CLINICAL_EXTRACT_DIR",
	"CLINICAL_EXTRACT_LOG_LEVEL",
	"CLINICAL_EXTRACT_MAX_FILE_SIZE",
	"CLINICAL_EXTRACT_STORAGE",
	"CLINICAL_EXTRACT_REDIS_ADDR",
	"CLINICAL_EXTRACT_QUEUE_SIZE",
	"CLINICAL_EXTRACT_REQUIRED_FIELDS",
}

// Helper function to clear environment variables
func clearEnvVars() {
	for _, name := range envVars {
		os.Unsetenv(name)
	}
}

// loadWithArgs runs LoadFromFlags with a clean flag set and restores global state afterwards
func loadWithArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})

	setArgs(append([]string{"clinical-extract"}, args...))
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	clearEnvVars()
	dir := t.TempDir()

	cfg, err := loadWithArgs(t, "--dir="+dir)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.QueueSize != 21 {
		t.Errorf("LoadFromFlags() QueueSize = %v, want %v", cfg.QueueSize, 21)
	}
	if cfg.Storage != "file" {
		t.Errorf("LoadFromFlags() Storage = %v, want %v", cfg.Storage, "file")
	}
	if want := filepath.Join(dir, ".clinical-extract", "progress.json"); cfg.StoragePath != want {
		t.Errorf("LoadFromFlags() StoragePath = %v, want %v", cfg.StoragePath, want)
	}
	if want := filepath.Join(dir, "exports"); cfg.ExportDirectory != want {
		t.Errorf("LoadFromFlags() ExportDirectory = %v, want %v", cfg.ExportDirectory, want)
	}
	if cfg.RequiredFields != nil {
		t.Errorf("LoadFromFlags() RequiredFields = %v, want nil", cfg.RequiredFields)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "server mode with custom host and port",
			args: []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Mode != "server" || cfg.Host != "0.0.0.0" || cfg.Port != 9090 {
					t.Errorf("got mode=%s host=%s port=%d", cfg.Mode, cfg.Host, cfg.Port)
				}
			},
		},
		{
			name: "debug logging",
			args: []string{"--log-level=debug"},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.IsDebug() {
					t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
				}
			},
		},
		{
			name: "custom max file size",
			args: []string{"--max-file-size=50000000"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.MaxFileSize != 50000000 {
					t.Errorf("MaxFileSize = %d, want 50000000", cfg.MaxFileSize)
				}
			},
		},
		{
			name: "redis storage",
			args: []string{"--storage=redis", "--redis-addr=localhost:6379", "--redis-db=3"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Storage != "redis" || cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 3 {
					t.Errorf("got storage=%s addr=%s db=%d", cfg.Storage, cfg.RedisAddr, cfg.RedisDB)
				}
				if cfg.StoragePath != "" {
					t.Errorf("redis storage should not get a path, got %s", cfg.StoragePath)
				}
			},
		},
		{
			name: "queue options",
			args: []string{"--queue-size=5", "--queue-seed=42", "--required-fields=citation, doi"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.QueueSize != 5 || cfg.QueueSeed != 42 {
					t.Errorf("got queue size=%d seed=%d", cfg.QueueSize, cfg.QueueSeed)
				}
				if !reflect.DeepEqual(cfg.RequiredFields, []string{"citation", "doi"}) {
					t.Errorf("RequiredFields = %v", cfg.RequiredFields)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			cfg, err := loadWithArgs(t, args...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			tt.verify(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	tempDir := t.TempDir()

	os.Setenv("CLINICAL_EXTRACT_MODE", "server")
	os.Setenv("CLINICAL_EXTRACT_HOST", "192.168.1.1")
	os.Setenv("CLINICAL_EXTRACT_PORT", "3000")
	os.Setenv("CLINICAL_EXTRACT_DIR", tempDir)
	os.Setenv("CLINICAL_EXTRACT_LOG_LEVEL", "warn")
	os.Setenv("CLINICAL_EXTRACT_MAX_FILE_SIZE", "200000000")
	os.Setenv("CLINICAL_EXTRACT_STORAGE", "sqlite")
	os.Setenv("CLINICAL_EXTRACT_QUEUE_SIZE", "10")

	cfg, err := loadWithArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxFileSize != 200000000 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 200000000)
	}
	if cfg.Storage != "sqlite" {
		t.Errorf("LoadFromFlags() Storage = %v, want %v", cfg.Storage, "sqlite")
	}
	if cfg.QueueSize != 10 {
		t.Errorf("LoadFromFlags() QueueSize = %v, want %v", cfg.QueueSize, 10)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	os.Setenv("CLINICAL_EXTRACT_MODE", "server")
	os.Setenv("CLINICAL_EXTRACT_HOST", "192.168.1.1")
	os.Setenv("CLINICAL_EXTRACT_PORT", "3000")

	cfg, err := loadWithArgs(t, "--mode=stdio", "--host=localhost", "--port=8888", "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v (should override env)", cfg.Mode, "stdio")
	}
	if cfg.Host != "localhost" {
		t.Errorf("LoadFromFlags() Host = %v, want %v (should override env)", cfg.Host, "localhost")
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"invalid port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"invalid log level", []string{"--log-level=invalid"}, "invalid log level"},
		{"invalid storage", []string{"--storage=etcd"}, "invalid storage backend"},
		{"redis without address", []string{"--storage=redis"}, "redis address is required"},
		{"invalid queue size", []string{"--queue-size=0"}, "queue size must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			_, err := loadWithArgs(t, args...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	clearEnvVars()

	_, err := loadWithArgs(t, "--version")
	if err == nil {
		t.Error("LoadFromFlags() expected version error")
	}
	if err != nil && err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}
