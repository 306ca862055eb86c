package export

import (
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
)

// maxStampRunes bounds the label drawn next to each extraction
const maxStampRunes = 60

// Stamp colors per extraction method, as pdfcpu RGB triples
var stampColors = map[extraction.Method]string{
	extraction.MethodManual: "0.08 0.40 0.75",
	extraction.MethodAI:     "0.42 0.11 0.60",
}

// Annotator copies an article PDF and stamps every extraction at its coordinates
type Annotator struct {
	conf   *model.Configuration
	logger *zap.Logger
}

// NewAnnotator creates an annotator with a relaxed pdfcpu configuration
func NewAnnotator(logger *zap.Logger) *Annotator {
	if logger == nil {
		logger = zap.NewNop()
	}
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Annotator{conf: conf, logger: logger}
}

// Annotate writes a copy of inFile to outFile with one stamp per record and returns the
// number of stamps drawn. Records pointing past the last page are skipped.
func (a *Annotator) Annotate(inFile, outFile string, records []extraction.Record) (int, error) {
	if len(records) == 0 {
		return 0, errors.New(errors.ErrorTypeNoData, "No extractions to annotate")
	}

	pageCount, err := api.PageCountFile(inFile)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypePDF, err, "cannot read PDF")
	}

	data, err := os.ReadFile(inFile)
	if err != nil {
		return 0, errors.Wrap(errors.ErrorTypePDF, err, "cannot read PDF")
	}
	if err := os.WriteFile(outFile, data, DefaultFilePerm); err != nil {
		return 0, fmt.Errorf("write annotated PDF: %w", err)
	}

	stamped := 0
	for _, rec := range records {
		if rec.Page < 1 || rec.Page > pageCount {
			a.logger.Debug("skipping stamp outside document",
				zap.String("id", rec.ID), zap.Int("page", rec.Page), zap.Int("pages", pageCount))
			continue
		}
		pages := []string{strconv.Itoa(rec.Page)}
		if err := api.AddTextWatermarksFile(outFile, "", pages, true, stampLabel(rec), stampDescription(rec), a.conf); err != nil {
			os.Remove(outFile)
			return 0, errors.Wrap(errors.ErrorTypePDF, err, "failed to stamp extraction").WithField(rec.FieldName)
		}
		stamped++
	}

	a.logger.Info("annotated PDF written",
		zap.String("path", outFile), zap.Int("stamps", stamped), zap.Int("records", len(records)))
	return stamped, nil
}

func stampLabel(rec extraction.Record) string {
	label := rec.FieldName + ": " + rec.Text
	if utf8.RuneCountInString(label) > maxStampRunes {
		r := []rune(label)
		label = string(r[:maxStampRunes-3]) + "..."
	}
	return label
}

func stampDescription(rec extraction.Record) string {
	color, ok := stampColors[rec.Method]
	if !ok {
		color = stampColors[extraction.MethodManual]
	}
	y := rec.Coordinates.Y + rec.Coordinates.Height
	return fmt.Sprintf("fontname:Helvetica, points:8, position:bl, offset:%.0f %.0f, scalefactor:1 abs, rotation:0, fillcolor:%s, opacity:0.9",
		rec.Coordinates.X, y, color)
}
