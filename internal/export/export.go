// Package export serializes extraction logs and review progress to files.
// Every projection is pure and keeps the order of its input.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
)

// Output formats
const (
	FormatJSON      = "json"
	FormatCSV       = "csv"
	FormatHTML      = "html"
	FormatPDF       = "pdf"
	FormatWorkbook  = "xlsx"
	DefaultDirPerm  = 0o750
	DefaultFilePerm = 0o640
)

// ExtractionHeader is the column order of extraction CSV rows
var ExtractionHeader = []string{
	"id", "fieldName", "text", "page", "x", "y", "width", "height", "method", "timestamp", "documentName",
}

// Document is the single-article JSON export
type Document struct {
	FormData    map[string]string   `json:"formData"`
	Extractions []extraction.Record `json:"extractions"`
}

// Result describes a written export
type Result struct {
	Format string `json:"format"`
	Path   string `json:"path"`
	Rows   int    `json:"rows"`
}

// Filename returns <prefix>_<unix millis>.<ext>
func Filename(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%d.%s", prefix, t.UnixMilli(), ext)
}

// ExtractionJSON renders the form and extraction log of one article
func ExtractionJSON(form map[string]string, records []extraction.Record) ([]byte, error) {
	doc := Document{FormData: form, Extractions: records}
	if doc.FormData == nil {
		doc.FormData = map[string]string{}
	}
	if doc.Extractions == nil {
		doc.Extractions = []extraction.Record{}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ExtractionRow projects one record onto ExtractionHeader
func ExtractionRow(rec extraction.Record) []string {
	return []string{
		rec.ID,
		rec.FieldName,
		rec.Text,
		strconv.Itoa(rec.Page),
		formatFloat(rec.Coordinates.X),
		formatFloat(rec.Coordinates.Y),
		formatFloat(rec.Coordinates.Width),
		formatFloat(rec.Coordinates.Height),
		string(rec.Method),
		rec.Timestamp,
		rec.DocumentName,
	}
}

// ExtractionCSV renders one row per record, in log order
func ExtractionCSV(records []extraction.Record) ([]byte, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ExtractionRow(rec))
	}
	return encodeCSV(ExtractionHeader, rows)
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Writer writes export files into a directory with timestamped names
type Writer struct {
	dir    string
	clock  func() time.Time
	logger *zap.Logger
}

// NewWriter creates a writer for dir
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, clock: time.Now, logger: logger}
}

// SetClock overrides the clock used for file names
func (w *Writer) SetClock(clock func() time.Time) {
	w.clock = clock
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the path a new export with prefix and ext would be written to
func (w *Writer) Path(prefix, ext string) string {
	return filepath.Join(w.dir, Filename(prefix, ext, w.clock()))
}

// Write stores data under a timestamped name and returns its path
func (w *Writer) Write(prefix, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := w.Path(prefix, ext)
	if err := os.WriteFile(path, data, DefaultFilePerm); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	w.logger.Info("export written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

func noCompleted() error {
	return errors.New(errors.ErrorTypeNoData, "No completed articles")
}
