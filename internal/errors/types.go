package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ExtractionError is the error type returned by the extraction store, the review
// tracker, the storage backends and the exporters.
type ExtractionError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	ArticleID string    `json:"article_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

// ErrorType represents the categories of failures surfaced to callers
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeEmptyLog
	ErrorTypeStorageUnavailable
	ErrorTypeValidation
	ErrorTypeNoData
	ErrorTypeConfirmationRequired
	ErrorTypeUnknownArticle
	ErrorTypePDF
)

// Sentinels for use with Is. They carry no message and match any error of the same type.
var (
	ErrEmptyLog             = &ExtractionError{Type: ErrorTypeEmptyLog}
	ErrStorageUnavailable   = &ExtractionError{Type: ErrorTypeStorageUnavailable}
	ErrValidation           = &ExtractionError{Type: ErrorTypeValidation}
	ErrNoData               = &ExtractionError{Type: ErrorTypeNoData}
	ErrConfirmationRequired = &ExtractionError{Type: ErrorTypeConfirmationRequired}
	ErrUnknownArticle       = &ExtractionError{Type: ErrorTypeUnknownArticle}
	ErrPDF                  = &ExtractionError{Type: ErrorTypePDF}
)

// Error implements the error interface
func (e *ExtractionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Type.DefaultMessage()
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %q)", msg, e.Field)
	}
	if e.ArticleID != "" {
		msg = fmt.Sprintf("%s (article %q)", msg, e.ArticleID)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type.String(), msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type.String(), msg)
}

// Unwrap returns the underlying cause, if any
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an ExtractionError of the same type.
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeEmptyLog:
		return "EMPTY_LOG"
	case ErrorTypeStorageUnavailable:
		return "STORAGE_UNAVAILABLE"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeNoData:
		return "NO_DATA"
	case ErrorTypeConfirmationRequired:
		return "CONFIRMATION_REQUIRED"
	case ErrorTypeUnknownArticle:
		return "UNKNOWN_ARTICLE"
	case ErrorTypePDF:
		return "PDF"
	default:
		return "UNKNOWN"
	}
}

// DefaultMessage is the user-facing status text for an error type
func (et ErrorType) DefaultMessage() string {
	switch et {
	case ErrorTypeEmptyLog:
		return "nothing to undo"
	case ErrorTypeStorageUnavailable:
		return "storage unavailable"
	case ErrorTypeValidation:
		return "invalid extraction"
	case ErrorTypeNoData:
		return "no data to export"
	case ErrorTypeConfirmationRequired:
		return "operation requires explicit confirmation"
	case ErrorTypeUnknownArticle:
		return "article is not in the queue"
	case ErrorTypePDF:
		return "PDF could not be loaded"
	default:
		return "unknown error"
	}
}

// IsRecoverable reports whether the caller can simply show a status message and continue
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeEmptyLog, ErrorTypeValidation, ErrorTypeNoData,
		ErrorTypeConfirmationRequired, ErrorTypeUnknownArticle:
		return true
	case ErrorTypeStorageUnavailable, ErrorTypePDF:
		return false
	default:
		return false
	}
}

// New creates an ExtractionError of the given type
func New(errorType ErrorType, message string) *ExtractionError {
	return &ExtractionError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates an ExtractionError with a formatted message
func Newf(errorType ErrorType, format string, args ...any) *ExtractionError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap wraps a lower-level error as an ExtractionError
func Wrap(errorType ErrorType, err error, message string) *ExtractionError {
	e := New(errorType, message)
	e.Err = err
	return e
}

// WithField adds the offending field name
func (e *ExtractionError) WithField(field string) *ExtractionError {
	e.Field = field
	return e
}

// WithArticle adds the article the failure relates to
func (e *ExtractionError) WithArticle(articleID string) *ExtractionError {
	e.ArticleID = articleID
	return e
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *ExtractionError
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is is errors.Is from the standard library, re-exported so callers importing this
// package under its own name keep access to it.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
