package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/matheus-rech/clinical-study-extraction/internal/storage"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultQueueSize   = 21
	DefaultStorage     = storage.BackendFile

	// EnvPrefix is prepended to every environment variable, e.g. CLINICAL_EXTRACT_LOG_LEVEL
	EnvPrefix = "CLINICAL_EXTRACT"
)

// Config holds all configuration for the extraction server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Article configuration
	PDFDirectory    string
	ExportDirectory string
	MaxFileSize     int64 // Maximum PDF file size in bytes
	QueueSize       int
	QueueSeed       uint64
	RequiredFields  []string // empty keeps the schema's own required set

	// Progress storage
	Storage       string
	StoragePath   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		MaxFileSize:  DefaultMaxFileSize,
		QueueSize:    DefaultQueueSize,
		Storage:      DefaultStorage,
		Version:      "1.0.0",
		ServerName:   "clinical-extract",
		LogLevel:     DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("storage", cfg.Storage)
	viper.SetDefault("storage-path", "")
	viper.SetDefault("redis-addr", "")
	viper.SetDefault("redis-password", "")
	viper.SetDefault("redis-db", 0)
	viper.SetDefault("export-dir", "")
	viper.SetDefault("queue-size", cfg.QueueSize)
	viper.SetDefault("queue-seed", 0)
	viper.SetDefault("required-fields", "")
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing the article PDFs")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.String("storage", cfg.Storage, "Progress storage backend (memory, file, sqlite, redis)")
	pflag.String("storage-path", "", "Progress database path (file and sqlite; default <dir>/.clinical-extract/)")
	pflag.String("redis-addr", "", "Redis address host:port (redis storage only)")
	pflag.String("redis-password", "", "Redis password")
	pflag.Int("redis-db", 0, "Redis database number")
	pflag.String("export-dir", "", "Directory exports are written to (default <dir>/exports)")
	pflag.Int("queue-size", cfg.QueueSize, "Number of articles in a new review queue")
	pflag.Uint64("queue-seed", 0, "Seed for the queue shuffle (0 picks a random seed)")
	pflag.String("required-fields", "", "Comma-separated fields required for an article to be completed")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "log-level", "max-file-size",
		"storage", "storage-path", "redis-addr", "redis-password", "redis-db",
		"export-dir", "queue-size", "queue-seed", "required-fields",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nClinical study extraction - an MCP server for systematic-review data extraction\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/articles                       "+
			"# stdio mode, progress in <dir>/.clinical-extract\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --storage=sqlite --dir=/path/to/articles      # sqlite progress store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --storage=redis --redis-addr=localhost:6379   # shared redis store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081       # SSE server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every option can be set as %s_<OPTION>, e.g. %s_LOG_LEVEL, %s_REDIS_ADDR\n",
			EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.Storage = viper.GetString("storage")
	cfg.StoragePath = viper.GetString("storage-path")
	cfg.RedisAddr = viper.GetString("redis-addr")
	cfg.RedisPassword = viper.GetString("redis-password")
	cfg.RedisDB = viper.GetInt("redis-db")
	cfg.ExportDirectory = viper.GetString("export-dir")
	cfg.QueueSize = viper.GetInt("queue-size")
	cfg.QueueSeed = viper.GetUint64("queue-seed")
	cfg.RequiredFields = SplitList(viper.GetString("required-fields"))
}

// applyDerivedDefaults expands paths and fills values that depend on the article directory
func (c *Config) applyDerivedDefaults() {
	if c.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(c.PDFDirectory); err == nil {
			c.PDFDirectory = expandedPath
		}
	}
	if c.ExportDirectory == "" && c.PDFDirectory != "" {
		c.ExportDirectory = filepath.Join(c.PDFDirectory, "exports")
	}
	if c.StoragePath == "" && (c.Storage == storage.BackendFile || c.Storage == storage.BackendSQLite) {
		c.StoragePath = storage.DefaultPath(c.Storage, c.PDFDirectory)
	}
}

// SplitList splits a comma-separated option, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	// A missing directory is allowed so placeholder paths survive until first use
	if info, err := os.Stat(c.PDFDirectory); err == nil && !info.IsDir() {
		return fmt.Errorf("PDF directory %s is not a directory", c.PDFDirectory)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.QueueSize < 1 {
		return errors.New("queue size must be at least 1")
	}

	switch c.Storage {
	case storage.BackendMemory:
	case storage.BackendFile, storage.BackendSQLite:
		if c.StoragePath == "" {
			return fmt.Errorf("storage path is required for %s storage", c.Storage)
		}
	case storage.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for redis storage")
		}
		if c.RedisDB < 0 {
			return errors.New("redis database must not be negative")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be one of: memory, file, sqlite, redis)", c.Storage)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// StorageConfig returns the progress storage settings
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:       c.Storage,
		Path:          c.StoragePath,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
	}
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Storage: %s, "+
		"QueueSize: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Storage, c.QueueSize, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
