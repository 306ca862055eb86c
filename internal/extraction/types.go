// Package extraction holds the ordered trace log of values captured from study PDFs.
package extraction

import (
	"math"
	"strings"
	"time"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
)

// TimestampLayout is the ISO-8601 layout used for record timestamps (millisecond precision, UTC)
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// IDPrefix prefixes every generated record id
const IDPrefix = "ext_"

// Method is the provenance of an extraction
type Method string

const (
	MethodManual Method = "manual"
	MethodAI     Method = "ai"
)

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	return m == MethodManual || m == MethodAI
}

// ParseMethod converts a string to a Method, defaulting to manual for an empty value
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", MethodManual:
		return MethodManual, nil
	case MethodAI:
		return MethodAI, nil
	default:
		return "", errors.Newf(errors.ErrorTypeValidation, "unknown extraction method %q", s)
	}
}

// Coordinates locate extracted text in PDF page space (points)
type Coordinates struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (c Coordinates) valid() bool {
	for _, v := range []float64{c.X, c.Y, c.Width, c.Height} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Record is one captured value bound to a form field
type Record struct {
	ID           string      `json:"id"`
	FieldName    string      `json:"fieldName"`
	Text         string      `json:"text"`
	Page         int         `json:"page"`
	Coordinates  Coordinates `json:"coordinates"`
	Method       Method      `json:"method"`
	Timestamp    string      `json:"timestamp"`
	DocumentName string      `json:"documentName"`
}

// Time parses the record timestamp
func (r Record) Time() (time.Time, error) {
	return time.Parse(TimestampLayout, r.Timestamp)
}

// Draft is a record before the store assigns its id and timestamp
type Draft struct {
	FieldName    string
	Text         string
	Page         int
	Coordinates  Coordinates
	Method       Method
	DocumentName string
}

// MethodCounts breaks the total down by provenance
type MethodCounts struct {
	Manual int `json:"manual"`
	AI     int `json:"ai"`
}

// Statistics is the read-only counters view of the store
type Statistics struct {
	Total                 int          `json:"total"`
	ByMethod              MethodCounts `json:"byMethod"`
	DistinctPagesWithData int          `json:"distinctPagesWithData"`
}
