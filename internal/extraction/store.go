package extraction

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
)

// Options configures a Store
type Options struct {
	// AllowEmpty reports whether a field accepts an empty text value
	AllowEmpty func(fieldName string) bool
	// Clock supplies record timestamps
	Clock func() time.Time
	// NewID generates record ids
	NewID  func() string
	Logger *zap.Logger
}

// Store is the append-only extraction log plus two derived views: per-field value
// history (latest write wins for display) and incrementally maintained counters.
type Store struct {
	mu sync.RWMutex

	records  []Record
	history  map[string][]string
	byMethod map[Method]int
	pageRefs map[int]int

	subscribers map[int]func(Statistics)
	nextSubID   int

	allowEmpty func(string) bool
	clock      func() time.Time
	newID      func() string
	logger     *zap.Logger
}

// NewStore creates an empty extraction store
func NewStore(opts Options) *Store {
	s := &Store{
		history:     make(map[string][]string),
		byMethod:    make(map[Method]int),
		pageRefs:    make(map[int]int),
		subscribers: make(map[int]func(Statistics)),
		allowEmpty:  opts.AllowEmpty,
		clock:       opts.Clock,
		newID:       opts.NewID,
		logger:      opts.Logger,
	}
	if s.allowEmpty == nil {
		s.allowEmpty = func(string) bool { return false }
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return IDPrefix + uuid.NewString() }
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Add validates a draft, assigns its id and timestamp and appends it to the log
func (s *Store) Add(d Draft) (Record, error) {
	if d.Method == "" {
		d.Method = MethodManual
	}
	d.FieldName = strings.TrimSpace(d.FieldName)
	if err := s.validateDraft(d); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	rec := Record{
		ID:           s.newID(),
		FieldName:    d.FieldName,
		Text:         d.Text,
		Page:         d.Page,
		Coordinates:  d.Coordinates,
		Method:       d.Method,
		Timestamp:    s.clock().UTC().Format(TimestampLayout),
		DocumentName: d.DocumentName,
	}
	s.appendLocked(rec)
	stats := s.statsLocked()
	s.mu.Unlock()

	s.logger.Debug("extraction added",
		zap.String("id", rec.ID),
		zap.String("field", rec.FieldName),
		zap.Int("page", rec.Page),
		zap.String("method", string(rec.Method)))
	s.notify(stats)
	return rec, nil
}

// UndoLast removes and returns the most recently appended record
func (s *Store) UndoLast() (Record, error) {
	s.mu.Lock()
	if len(s.records) == 0 {
		s.mu.Unlock()
		return Record{}, errors.New(errors.ErrorTypeEmptyLog, "no extractions to undo")
	}
	last := s.records[len(s.records)-1]
	s.records = s.records[:len(s.records)-1]

	vals := s.history[last.FieldName]
	if len(vals) <= 1 {
		delete(s.history, last.FieldName)
	} else {
		s.history[last.FieldName] = vals[:len(vals)-1]
	}
	s.byMethod[last.Method]--
	s.pageRefs[last.Page]--
	if s.pageRefs[last.Page] <= 0 {
		delete(s.pageRefs, last.Page)
	}
	stats := s.statsLocked()
	s.mu.Unlock()

	s.logger.Debug("extraction undone", zap.String("id", last.ID), zap.String("field", last.FieldName))
	s.notify(stats)
	return last, nil
}

// ClearAll empties the log. The caller must have obtained confirmation from the user.
func (s *Store) ClearAll(confirmed bool) error {
	if !confirmed {
		return errors.New(errors.ErrorTypeConfirmationRequired, "clearing all extractions requires confirmation")
	}

	s.mu.Lock()
	cleared := len(s.records)
	s.resetLocked()
	stats := s.statsLocked()
	s.mu.Unlock()

	s.logger.Info("extractions cleared", zap.Int("count", cleared))
	s.notify(stats)
	return nil
}

// Load replaces the log with previously saved records. Records are revalidated;
// on any failure the current log is left untouched.
func (s *Store) Load(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return errors.New(errors.ErrorTypeValidation, "restored record has no id").WithField(rec.FieldName)
		}
		if _, dup := seen[rec.ID]; dup {
			return errors.Newf(errors.ErrorTypeValidation, "duplicate record id %s", rec.ID)
		}
		seen[rec.ID] = struct{}{}
		if _, err := rec.Time(); err != nil {
			return errors.Wrap(errors.ErrorTypeValidation, err, "restored record has a malformed timestamp").
				WithField(rec.FieldName)
		}
		if err := s.validateDraft(Draft{
			FieldName:   rec.FieldName,
			Text:        rec.Text,
			Page:        rec.Page,
			Coordinates: rec.Coordinates,
			Method:      rec.Method,
		}); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.resetLocked()
	for _, rec := range records {
		s.appendLocked(rec)
	}
	stats := s.statsLocked()
	s.mu.Unlock()

	s.notify(stats)
	return nil
}

// Statistics returns the current counters
func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked()
}

// Records returns a copy of the log in insertion order
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records in the log
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Value returns the displayed value for a field and whether any record exists for it
func (s *Store) Value(fieldName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals := s.history[fieldName]
	if len(vals) == 0 {
		return "", false
	}
	return vals[len(vals)-1], true
}

// CurrentValues returns the latest value of every field with at least one record
func (s *Store) CurrentValues() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.history))
	for field, vals := range s.history {
		out[field] = vals[len(vals)-1]
	}
	return out
}

// Subscribe registers fn to be called with the new counters after every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Statistics)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) validateDraft(d Draft) error {
	if d.FieldName == "" {
		return errors.New(errors.ErrorTypeValidation, "field name cannot be empty")
	}
	if d.Page < 1 {
		return errors.Newf(errors.ErrorTypeValidation, "page must be >= 1, got %d", d.Page).WithField(d.FieldName)
	}
	if !d.Coordinates.valid() {
		return errors.New(errors.ErrorTypeValidation, "coordinates must be non-negative numbers").WithField(d.FieldName)
	}
	if !d.Method.Valid() {
		return errors.Newf(errors.ErrorTypeValidation, "unknown extraction method %q", d.Method).WithField(d.FieldName)
	}
	if strings.TrimSpace(d.Text) == "" && !s.allowEmpty(d.FieldName) {
		return errors.New(errors.ErrorTypeValidation, "extracted text cannot be empty").WithField(d.FieldName)
	}
	return nil
}

func (s *Store) appendLocked(rec Record) {
	s.records = append(s.records, rec)
	s.history[rec.FieldName] = append(s.history[rec.FieldName], rec.Text)
	s.byMethod[rec.Method]++
	s.pageRefs[rec.Page]++
}

func (s *Store) resetLocked() {
	s.records = nil
	s.history = make(map[string][]string)
	s.byMethod = make(map[Method]int)
	s.pageRefs = make(map[int]int)
}

func (s *Store) statsLocked() Statistics {
	return Statistics{
		Total: len(s.records),
		ByMethod: MethodCounts{
			Manual: s.byMethod[MethodManual],
			AI:     s.byMethod[MethodAI],
		},
		DistinctPagesWithData: len(s.pageRefs),
	}
}

func (s *Store) notify(stats Statistics) {
	s.mu.RLock()
	subs := make([]func(Statistics), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(stats)
	}
}
