package export

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
	"github.com/matheus-rech/clinical-study-extraction/internal/review"
)

// mainPrefix are the leading columns of the systematic-review main data table
var mainPrefix = []string{"articleId", "status", "completedFieldCount", "savedAt"}

// MainHeader returns the main data columns: article metadata then every schema field
func MainHeader(schema *review.Schema) []string {
	return append(append([]string{}, mainPrefix...), schema.FieldNames()...)
}

// MainRows projects each completed article onto MainHeader
func MainRows(schema *review.Schema, completed []review.ArticleProgress) ([][]string, error) {
	if len(completed) == 0 {
		return nil, noCompleted()
	}
	fields := schema.FieldNames()
	rows := make([][]string, 0, len(completed))
	for _, p := range completed {
		values := review.MergeValues(p.FormSnapshot, p.ExtractionLog)
		row := []string{p.ArticleID, string(p.Status), strconv.Itoa(p.CompletedFieldCount), p.SavedAt}
		for _, f := range fields {
			row = append(row, values[f])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TraceHeader returns the trace data columns
func TraceHeader() []string {
	return append([]string{"articleId"}, ExtractionHeader...)
}

// TraceRows lists every extraction of every completed article, articles in queue order
func TraceRows(completed []review.ArticleProgress) ([][]string, error) {
	if len(completed) == 0 {
		return nil, noCompleted()
	}
	var rows [][]string
	for _, p := range completed {
		for _, rec := range p.ExtractionLog {
			rows = append(rows, append([]string{p.ArticleID}, ExtractionRow(rec)...))
		}
	}
	return rows, nil
}

// MainCSV renders the main data table
func MainCSV(schema *review.Schema, completed []review.ArticleProgress) ([]byte, error) {
	rows, err := MainRows(schema, completed)
	if err != nil {
		return nil, err
	}
	return encodeCSV(MainHeader(schema), rows)
}

// TraceCSV renders the trace data table
func TraceCSV(completed []review.ArticleProgress) ([]byte, error) {
	rows, err := TraceRows(completed)
	if err != nil {
		return nil, err
	}
	return encodeCSV(TraceHeader(), rows)
}

// TraceRecord is one extraction tagged with its article
type TraceRecord struct {
	ArticleID string `json:"articleId"`
	extraction.Record
}

// CompleteDocument bundles the whole systematic-review export
type CompleteDocument struct {
	ExportedAt string              `json:"exportedAt"`
	Schema     string              `json:"schema"`
	Stats      review.Stats        `json:"stats"`
	MainData   []map[string]string `json:"mainData"`
	TraceData  []TraceRecord       `json:"traceData"`
}

// CompleteJSON renders stats, main data and trace data as one document
func CompleteJSON(schema *review.Schema, stats review.Stats, completed []review.ArticleProgress,
	exportedAt time.Time,
) ([]byte, error) {
	rows, err := MainRows(schema, completed)
	if err != nil {
		return nil, err
	}
	header := MainHeader(schema)

	doc := CompleteDocument{
		ExportedAt: exportedAt.UTC().Format(extraction.TimestampLayout),
		Schema:     schema.Name,
		Stats:      stats,
		MainData:   make([]map[string]string, 0, len(rows)),
		TraceData:  []TraceRecord{},
	}
	for _, row := range rows {
		m := make(map[string]string, len(header))
		for i, col := range header {
			m[col] = row[i]
		}
		doc.MainData = append(doc.MainData, m)
	}
	for _, p := range completed {
		for _, rec := range p.ExtractionLog {
			doc.TraceData = append(doc.TraceData, TraceRecord{ArticleID: p.ArticleID, Record: rec})
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}
