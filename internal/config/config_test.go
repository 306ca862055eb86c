package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func validConfig(dir string) *Config {
	return &Config{
		Mode:         "stdio",
		Host:         "127.0.0.1",
		Port:         8080,
		PDFDirectory: dir,
		LogLevel:     "info",
		MaxFileSize:  1024,
		QueueSize:    21,
		Storage:      "memory",
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}
	if cfg.ServerName != "clinical-extract" {
		t.Errorf("Expected default server name to be 'clinical-extract', got '%s'", cfg.ServerName)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}
	if cfg.QueueSize != 21 {
		t.Errorf("Expected default queue size to be 21, got %d", cfg.QueueSize)
	}
	if cfg.Storage != "file" {
		t.Errorf("Expected default storage to be 'file', got '%s'", cfg.Storage)
	}

	currentDir, _ := os.Getwd()
	if cfg.PDFDirectory != currentDir {
		t.Errorf("Expected default PDF directory to be '%s', got '%s'", currentDir, cfg.PDFDirectory)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "article.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config - stdio mode", func(c *Config) {}, false},
		{"valid config - server mode", func(c *Config) { c.Mode = "server" }, false},
		{"invalid mode", func(c *Config) { c.Mode = "invalid" }, true},
		{"invalid port - too low (server mode)", func(c *Config) { c.Mode = "server"; c.Port = 0 }, true},
		{"invalid port - too high (server mode)", func(c *Config) { c.Mode = "server"; c.Port = 70000 }, true},
		{"invalid port ignored in stdio mode", func(c *Config) { c.Port = 0 }, false},
		{"empty PDF directory", func(c *Config) { c.PDFDirectory = "" }, true},
		{"PDF directory is a file", func(c *Config) { c.PDFDirectory = file }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "invalid" }, true},
		{"invalid max file size", func(c *Config) { c.MaxFileSize = 0 }, true},
		{"invalid queue size", func(c *Config) { c.QueueSize = 0 }, true},
		{"unknown storage", func(c *Config) { c.Storage = "etcd" }, true},
		{"file storage without path", func(c *Config) { c.Storage = "file" }, true},
		{"sqlite storage with path", func(c *Config) { c.Storage = "sqlite"; c.StoragePath = "/tmp/p.db" }, false},
		{"redis storage without address", func(c *Config) { c.Storage = "redis" }, true},
		{"redis storage with address", func(c *Config) { c.Storage = "redis"; c.RedisAddr = "localhost:6379" }, false},
		{"redis negative db", func(c *Config) { c.Storage = "redis"; c.RedisAddr = "x:1"; c.RedisDB = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(dir)
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDoesNotCreateDirectory(t *testing.T) {
	nonExistentDir := filepath.Join(t.TempDir(), "non-existent", "pdfs")

	cfg := validConfig(nonExistentDir)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Config.Validate() should not fail for non-existent directory, got error: %v", err)
	}

	if _, err := os.Stat(nonExistentDir); !os.IsNotExist(err) {
		t.Errorf("Directory should NOT have been created: %s", nonExistentDir)
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{
		Host: "192.168.1.1",
		Port: 9090,
	}

	expected := "192.168.1.1:9090"
	if got := cfg.Address(); got != expected {
		t.Errorf("Config.Address() = %v, want %v", got, expected)
	}
}

func TestConfigIsDebug(t *testing.T) {
	tests := []struct {
		logLevel string
		want     bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
		{"error", false},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			if got := cfg.IsDebug(); got != tt.want {
				t.Errorf("Config.IsDebug() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:         "server",
		Host:         "localhost",
		Port:         8080,
		PDFDirectory: "/home/user/articles",
		Storage:      "sqlite",
		QueueSize:    21,
		LogLevel:     "debug",
		MaxFileSize:  1024,
	}

	result := cfg.String()

	for _, substr := range []string{
		"Mode: server",
		"Host: localhost",
		"Port: 8080",
		"PDFDirectory: /home/user/articles",
		"Storage: sqlite",
		"QueueSize: 21",
		"LogLevel: debug",
		"MaxFileSize: 1024",
	} {
		if !strings.Contains(result, substr) {
			t.Errorf("Config.String() result doesn't contain expected substring: %s\nGot: %s", substr, result)
		}
	}
}

func TestConfigStorageConfig(t *testing.T) {
	cfg := &Config{
		Storage:       "redis",
		RedisAddr:     "localhost:6379",
		RedisPassword: "secret",
		RedisDB:       2,
	}

	sc := cfg.StorageConfig()
	if sc.Backend != "redis" || sc.RedisAddr != "localhost:6379" || sc.RedisPassword != "secret" || sc.RedisDB != 2 {
		t.Errorf("Config.StorageConfig() = %+v", sc)
	}
}

func TestApplyDerivedDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig(dir)
	cfg.Storage = "sqlite"

	cfg.applyDerivedDefaults()

	if want := filepath.Join(dir, ".clinical-extract", "progress.db"); cfg.StoragePath != want {
		t.Errorf("StoragePath = %s, want %s", cfg.StoragePath, want)
	}
	if want := filepath.Join(dir, "exports"); cfg.ExportDirectory != want {
		t.Errorf("ExportDirectory = %s, want %s", cfg.ExportDirectory, want)
	}

	cfg = validConfig(dir)
	cfg.Storage = "memory"
	cfg.applyDerivedDefaults()
	if cfg.StoragePath != "" {
		t.Errorf("memory storage should not get a path, got %s", cfg.StoragePath)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"citation", []string{"citation"}},
		{" citation , doi,,totalN ", []string{"citation", "doi", "totalN"}},
	}

	for _, tt := range tests {
		if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfigModes(t *testing.T) {
	server := &Config{Mode: "server"}
	stdio := &Config{Mode: "stdio"}

	if !server.IsServerMode() || server.IsStdioMode() {
		t.Error("server mode misreported")
	}
	if !stdio.IsStdioMode() || stdio.IsServerMode() {
		t.Error("stdio mode misreported")
	}
}
