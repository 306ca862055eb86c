package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matheus-rech/clinical-study-extraction/internal/app"
	"github.com/matheus-rech/clinical-study-extraction/internal/config"
	"github.com/matheus-rech/clinical-study-extraction/internal/pdf/pdftest"
	"github.com/matheus-rech/clinical-study-extraction/internal/storage"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	dir := t.TempDir()
	pdftest.WriteFile(t, dir, "Study_001.pdf", []pdftest.Line{{X: 72, Y: 700, Text: "Title"}})
	pdftest.WriteFile(t, dir, "Study_002.pdf", []pdftest.Line{{X: 72, Y: 700, Text: "Title"}})

	cfg := &config.Config{
		Mode:            config.ModeStdio,
		PDFDirectory:    dir,
		ExportDirectory: filepath.Join(dir, "exports"),
		MaxFileSize:     1024 * 1024,
		QueueSize:       0,
		Storage:         storage.BackendMemory,
		RequiredFields:  []string{"citation"},
		ServerName:      "test",
		Version:         "test",
		LogLevel:        "info",
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if _, err := a.Session.OpenArticle(ctx, "Study_001.pdf"); err != nil {
		t.Fatalf("OpenArticle() error = %v", err)
	}
	if err := a.Session.SetField("citation", "Smith 2020"); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	if _, err := a.Session.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return a
}

func TestExporters(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name    string
		formats []string
		want    int
		wantErr string
	}{
		{name: "all", formats: []string{"all"}, want: 4},
		{name: "all wins", formats: []string{"json", "ALL"}, want: 4},
		{name: "subset", formats: []string{"main-csv", " xlsx "}, want: 2},
		{name: "unknown", formats: []string{"main-csv", "pdf"}, wantErr: `unknown export format "pdf"`},
		{name: "empty", formats: nil, wantErr: "no export format selected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fns, err := exporters(a.Exports, tt.formats)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("exporters() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("exporters() error = %v", err)
			}
			if len(fns) != tt.want {
				t.Errorf("exporters() returned %d functions, want %d", len(fns), tt.want)
			}
		})
	}
}

func TestWriteExports(t *testing.T) {
	a := newTestApp(t)

	var out bytes.Buffer
	if err := writeExports(context.Background(), a.Exports, []string{"all"}, &out); err != nil {
		t.Fatalf("writeExports() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 export lines, got %d:\n%s", len(lines), out.String())
	}
	for _, line := range lines {
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			t.Fatalf("malformed export line %q", line)
		}
		if _, err := os.Stat(parts[2]); err != nil {
			t.Errorf("export %s was not written: %v", parts[2], err)
		}
	}
	if !strings.HasPrefix(lines[0], "csv\t1\t") {
		t.Errorf("main data line = %q, want one csv row", lines[0])
	}
}

func TestWriteExports_NothingCompleted(t *testing.T) {
	a := newTestApp(t)
	if err := a.Tracker.ClearAllProgress(context.Background(), true); err != nil {
		t.Fatalf("ClearAllProgress() error = %v", err)
	}

	var out bytes.Buffer
	err := writeExports(context.Background(), a.Exports, []string{"main-csv"}, &out)
	if err == nil || !strings.Contains(err.Error(), "No completed articles") {
		t.Fatalf("writeExports() error = %v, want no completed articles", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRun_VersionFlag(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"sr-export", "--version"}
	if code := run(); code != 0 {
		t.Errorf("run() = %d, want 0", code)
	}
}
