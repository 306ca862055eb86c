// Command sr-export writes the systematic-review exports from the durable progress store
// without starting the MCP server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/app"
	"github.com/matheus-rech/clinical-study-extraction/internal/config"
	"github.com/matheus-rech/clinical-study-extraction/internal/export"
	"github.com/matheus-rech/clinical-study-extraction/internal/logging"
)

// Export formats accepted by --format
const (
	FormatMainCSV  = "main-csv"
	FormatTraceCSV = "trace-csv"
	FormatJSON     = "json"
	FormatWorkbook = "xlsx"
	FormatAll      = "all"
)

var formatsFlag = pflag.StringSlice("format", []string{FormatAll},
	"Exports to write: main-csv, trace-csv, json, xlsx or all")

var version = "dev"

type exportFunc func(context.Context) (*export.Result, error)

// exporters resolves format names, in the order given, to export functions
func exporters(svc *export.Service, formats []string) ([]exportFunc, error) {
	byName := map[string]exportFunc{
		FormatMainCSV:  svc.MainCSV,
		FormatTraceCSV: svc.TraceCSV,
		FormatJSON:     svc.CompleteJSON,
		FormatWorkbook: svc.Workbook,
	}

	var out []exportFunc
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == FormatAll {
			return []exportFunc{svc.MainCSV, svc.TraceCSV, svc.CompleteJSON, svc.Workbook}, nil
		}
		fn, ok := byName[f]
		if !ok {
			return nil, fmt.Errorf("unknown export format %q", f)
		}
		out = append(out, fn)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no export format selected")
	}
	return out, nil
}

// writeExports runs every export and reports the written files to w
func writeExports(ctx context.Context, svc *export.Service, formats []string, w io.Writer) error {
	fns, err := exporters(svc, formats)
	if err != nil {
		return err
	}
	for _, fn := range fns {
		res, err := fn(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", res.Format, res.Rows, res.Path)
	}
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			fmt.Printf("sr-export %s\n", version)
			return 0
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, "export")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open review", zap.Error(err))
		return 1
	}
	defer a.Close()

	stats := a.Tracker.AggregateStats()
	logger.Info("review loaded",
		zap.Int("completed", stats.Completed),
		zap.Int("inProgress", stats.InProgress),
		zap.Int("total", stats.Total))

	if err := writeExports(ctx, a.Exports, *formatsFlag, os.Stdout); err != nil {
		logger.Error("export failed", zap.Error(err))
		return 1
	}
	return 0
}
