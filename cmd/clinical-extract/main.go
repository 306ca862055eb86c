package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/app"
	"github.com/matheus-rech/clinical-study-extraction/internal/config"
	"github.com/matheus-rech/clinical-study-extraction/internal/logging"
	"github.com/matheus-rech/clinical-study-extraction/internal/mcp"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the process logger; it always writes to stderr so stdio mode keeps stdout for MCP
func setupLogging(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.Mode)
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *zap.Logger) int {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", zap.Error(err))
			return 1
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// runStdioMode handles stdio mode execution; the parent process controls the lifecycle
func runStdioMode(ctx context.Context, server *mcp.Server, logger *zap.Logger) int {
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}

func run() int {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return 0
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if version != "dev" {
		cfg.Version = version
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting with configuration", zap.String("config", cfg.String()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", zap.Error(err))
		return 1
	}
	defer a.Close()

	a.Resume(ctx)

	server, err := mcp.NewServer(cfg, a.Session, a.Exports, logger)
	if err != nil {
		logger.Error("failed to create MCP server", zap.Error(err))
		return 1
	}

	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server, logger)
	}
	return runStdioMode(ctx, server, logger)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("Clinical Study Extraction\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
