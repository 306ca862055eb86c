package export

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
	"github.com/matheus-rech/clinical-study-extraction/internal/review"
)

// File name prefixes
const (
	PrefixExtraction = "extraction"
	PrefixAudit      = "audit"
	PrefixAnnotated  = "annotated"
	PrefixMain       = "sr_main_data"
	PrefixTrace      = "sr_trace_data"
	PrefixComplete   = "sr_complete"
	PrefixWorkbook   = "sr_export"
)

// ArticleData is the state of one open article
type ArticleData struct {
	ArticleID  string
	PDFPath    string
	Form       map[string]string
	Records    []extraction.Record
	Statistics extraction.Statistics
}

// Service writes exports of the open article and of the whole review queue
type Service struct {
	writer    *Writer
	annotator *Annotator
	tracker   *review.Tracker
	logger    *zap.Logger
}

// NewService creates an export service writing into dir
func NewService(dir string, tracker *review.Tracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		writer:    NewWriter(dir, logger),
		annotator: NewAnnotator(logger),
		tracker:   tracker,
		logger:    logger,
	}
}

// Writer returns the file writer
func (s *Service) Writer() *Writer {
	return s.writer
}

// JSON exports the form and extraction log of one article
func (s *Service) JSON(a ArticleData) (*Result, error) {
	data, err := ExtractionJSON(a.Form, a.Records)
	if err != nil {
		return nil, err
	}
	return s.write(PrefixExtraction, FormatJSON, data, len(a.Records))
}

// CSV exports the extraction log of one article
func (s *Service) CSV(a ArticleData) (*Result, error) {
	data, err := ExtractionCSV(a.Records)
	if err != nil {
		return nil, err
	}
	return s.write(PrefixExtraction, FormatCSV, data, len(a.Records))
}

// AuditHTML exports the audit report of one article
func (s *Service) AuditHTML(a ArticleData) (*Result, error) {
	data, err := AuditHTML(AuditInput{
		ArticleID:   a.ArticleID,
		Schema:      s.tracker.Schema(),
		Form:        a.Form,
		Records:     a.Records,
		Statistics:  a.Statistics,
		GeneratedAt: s.writer.clock(),
	})
	if err != nil {
		return nil, err
	}
	return s.write(PrefixAudit, FormatHTML, data, len(a.Records))
}

// AnnotatedPDF exports a copy of the article PDF with every extraction stamped on it
func (s *Service) AnnotatedPDF(a ArticleData) (*Result, error) {
	if a.PDFPath == "" {
		return nil, errors.New(errors.ErrorTypePDF, "no PDF is loaded for the active article")
	}
	if err := os.MkdirAll(s.writer.dir, DefaultDirPerm); err != nil {
		return nil, err
	}
	out := s.writer.Path(PrefixAnnotated, FormatPDF)
	n, err := s.annotator.Annotate(a.PDFPath, out, a.Records)
	if err != nil {
		return nil, err
	}
	return &Result{Format: FormatPDF, Path: out, Rows: n}, nil
}

// MainCSV exports the main data table of every completed article
func (s *Service) MainCSV(_ context.Context) (*Result, error) {
	completed := s.tracker.Completed()
	data, err := MainCSV(s.tracker.Schema(), completed)
	if err != nil {
		return nil, err
	}
	return s.write(PrefixMain, FormatCSV, data, len(completed))
}

// TraceCSV exports every extraction of every completed article
func (s *Service) TraceCSV(_ context.Context) (*Result, error) {
	completed := s.tracker.Completed()
	data, err := TraceCSV(completed)
	if err != nil {
		return nil, err
	}
	return s.write(PrefixTrace, FormatCSV, data, traceCount(completed))
}

// CompleteJSON exports stats, main data and trace data as one document
func (s *Service) CompleteJSON(_ context.Context) (*Result, error) {
	completed := s.tracker.Completed()
	data, err := CompleteJSON(s.tracker.Schema(), s.tracker.AggregateStats(), completed, s.writer.clock())
	if err != nil {
		return nil, err
	}
	return s.write(PrefixComplete, FormatJSON, data, len(completed))
}

// Workbook exports main and trace data as one XLSX workbook
func (s *Service) Workbook(_ context.Context) (*Result, error) {
	completed := s.tracker.Completed()
	data, err := Workbook(s.tracker.Schema(), completed)
	if err != nil {
		return nil, err
	}
	return s.write(PrefixWorkbook, FormatWorkbook, data, len(completed))
}

func (s *Service) write(prefix, format string, data []byte, rows int) (*Result, error) {
	path, err := s.writer.Write(prefix, format, data)
	if err != nil {
		return nil, err
	}
	return &Result{Format: format, Path: path, Rows: rows}, nil
}

func traceCount(completed []review.ArticleProgress) int {
	n := 0
	for _, p := range completed {
		n += len(p.ExtractionLog)
	}
	return n
}
