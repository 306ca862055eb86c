package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheus-rech/clinical-study-extraction/internal/app"
	"github.com/matheus-rech/clinical-study-extraction/internal/config"
	"github.com/matheus-rech/clinical-study-extraction/internal/mcp"
	"github.com/matheus-rech/clinical-study-extraction/internal/pdf/pdftest"
	"github.com/matheus-rech/clinical-study-extraction/internal/storage"
)

const (
	testVersion = "1.2.3"
	devVersion  = "dev"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	output := captureStdout(t, printVersion)

	expectedStrings := []string{
		"Clinical Study Extraction",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	if version != devVersion {
		t.Skipf("version overridden by build flags: %s", version)
	}
	output := captureStdout(t, printVersion)
	if !strings.Contains(output, "Version: dev") || !strings.Contains(output, "Git Commit: unknown") {
		t.Errorf("unexpected default version output:\n%s", output)
	}
}

func TestRun_VersionFlag(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	for _, flag := range []string{"-version", "--version", "-v"} {
		t.Run(flag, func(t *testing.T) {
			os.Args = []string{"clinical-extract", "-mode=server", flag}
			var code int
			output := captureStdout(t, func() { code = run() })
			if code != 0 {
				t.Errorf("run() = %d, want 0", code)
			}
			if !strings.Contains(output, "Clinical Study Extraction") {
				t.Errorf("expected version output, got: %s", output)
			}
		})
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		wantDebug bool
	}{
		{name: "debug level", logLevel: "debug", wantDebug: true},
		{name: "info level", logLevel: "info", wantDebug: false},
		{name: "error level", logLevel: "error", wantDebug: false},
		{name: "empty level", logLevel: "", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Mode: config.ModeStdio, LogLevel: tt.logLevel}
			logger, err := setupLogging(cfg)
			if err != nil {
				t.Fatalf("setupLogging() error = %v", err)
			}
			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if cfg.IsDebug() != tt.wantDebug {
				t.Errorf("Config.IsDebug() = %v, want %v", cfg.IsDebug(), tt.wantDebug)
			}
		})
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *mcp.Server {
	t.Helper()
	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	server, err := mcp.NewServer(cfg, a.Session, a.Exports, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return server
}

func TestRunServerMode_ServerError(t *testing.T) {
	dir := t.TempDir()
	pdftest.WriteFile(t, dir, "Study_001.pdf", []pdftest.Line{{X: 72, Y: 700, Text: "Title"}})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer l.Close()

	cfg := &config.Config{
		Mode:            config.ModeServer,
		Host:            "127.0.0.1",
		Port:            l.Addr().(*net.TCPAddr).Port,
		PDFDirectory:    dir,
		ExportDirectory: filepath.Join(dir, "exports"),
		MaxFileSize:     1024 * 1024,
		QueueSize:       21,
		Storage:         storage.BackendMemory,
		ServerName:      "test-server",
		Version:         testVersion,
		LogLevel:        "info",
	}
	server := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if code := runServerMode(ctx, cancel, server, zap.NewNop()); code != 1 {
		t.Errorf("runServerMode() = %d, want 1 when the port is taken", code)
	}
}
