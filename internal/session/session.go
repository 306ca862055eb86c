// Package session binds the extraction store, the review tracker and the PDF text layer
// to the article currently open for review.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
	"github.com/matheus-rech/clinical-study-extraction/internal/pdf"
	"github.com/matheus-rech/clinical-study-extraction/internal/review"
)

// Status messages shown to the reviewer
const (
	MsgLoaded   = "PDF loaded successfully"
	MsgRestored = "Previous progress restored"
	MsgSaved    = "Progress saved successfully"
)

// Options configures a Session
type Options struct {
	Tracker *review.Tracker
	// Library resolves article ids to PDF files. Without it articles open without a document.
	Library   *pdf.Library
	TextLayer *pdf.TextLayer
	Logger    *zap.Logger
	// Clock and NewID are passed to every extraction store the session creates
	Clock func() time.Time
	NewID func() string
}

// Session is the state of one reviewer: the active article, its form and its extraction log.
// The form is derived: the store's current values overlaid with manual entries made after
// the field's latest extraction.
type Session struct {
	mu sync.Mutex

	tracker   *review.Tracker
	library   *pdf.Library
	textLayer *pdf.TextLayer
	logger    *zap.Logger
	clock     func() time.Time
	newID     func() string

	active   string
	document *pdf.Document
	store    *extraction.Store
	manual   map[string]string
}

// OpenResult describes the article that was opened
type OpenResult struct {
	ArticleID  string                `json:"articleId"`
	Message    string                `json:"message"`
	Restored   bool                  `json:"restored"`
	Status     review.Status         `json:"status"`
	Document   *pdf.Document         `json:"document,omitempty"`
	Form       map[string]string     `json:"form"`
	Statistics extraction.Statistics `json:"statistics"`
}

// SaveResult wraps the tracker result with the status message
type SaveResult struct {
	*review.SaveResult
	Message string `json:"message"`
}

// New creates a session with no article open
func New(opts Options) *Session {
	s := &Session{
		tracker:   opts.Tracker,
		library:   opts.Library,
		textLayer: opts.TextLayer,
		logger:    opts.Logger,
		clock:     opts.Clock,
		newID:     opts.NewID,
		manual:    make(map[string]string),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.textLayer == nil && s.library != nil {
		s.textLayer = pdf.NewTextLayer(s.library.Validator(), s.logger)
	}
	s.store = s.newStore()
	return s
}

// Tracker returns the review tracker behind the session
func (s *Session) Tracker() *review.Tracker {
	return s.tracker
}

// OpenArticle makes articleID the active article, loading its PDF and any saved progress.
// On failure the previously open article stays active.
func (s *Session) OpenArticle(ctx context.Context, articleID string) (*OpenResult, error) {
	if !s.tracker.Contains(articleID) {
		return nil, errors.New(errors.ErrorTypeUnknownArticle, "cannot open article").WithArticle(articleID)
	}

	var doc *pdf.Document
	if s.library != nil {
		path, err := s.library.Resolve(articleID)
		if err != nil {
			return nil, err
		}
		doc, err = s.textLayer.Load(path)
		if err != nil {
			return nil, err
		}
	}

	saved, err := s.tracker.RestoreProgress(ctx, articleID)
	if err != nil {
		return nil, err
	}

	store := s.newStore()
	manual := make(map[string]string)
	msg := MsgLoaded
	if saved != nil {
		if err := store.Load(saved.ExtractionLog); err != nil {
			return nil, err
		}
		current := store.CurrentValues()
		for field, value := range saved.FormSnapshot {
			if v, ok := current[field]; !ok || v != value {
				manual[field] = value
			}
		}
		msg = MsgRestored
	}

	s.mu.Lock()
	s.active = articleID
	s.document = doc
	s.store = store
	s.manual = manual
	form := s.formLocked()
	s.mu.Unlock()

	if err := s.tracker.SetActiveArticle(ctx, articleID); err != nil {
		s.logger.Warn("failed to record active article", zap.String("article", articleID), zap.Error(err))
	}

	s.logger.Info("article opened",
		zap.String("article", articleID),
		zap.Bool("restored", saved != nil),
		zap.Int("extractions", store.Len()))

	return &OpenResult{
		ArticleID:  articleID,
		Message:    msg,
		Restored:   saved != nil,
		Status:     s.tracker.Status(articleID),
		Document:   doc,
		Form:       form,
		Statistics: store.Statistics(),
	}, nil
}

// Resume reopens the article recorded as active in durable storage, if any
func (s *Session) Resume(ctx context.Context) (*OpenResult, bool, error) {
	id, found, err := s.tracker.ActiveArticle(ctx)
	if err != nil || !found {
		return nil, false, err
	}
	if !s.tracker.Contains(id) {
		s.logger.Debug("active article no longer queued", zap.String("article", id))
		return nil, false, nil
	}
	res, err := s.OpenArticle(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// Active returns the active article id, empty when none is open
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// TextCacheStats reports the text layer's document cache
func (s *Session) TextCacheStats() pdf.CacheStats {
	if s.textLayer == nil {
		return pdf.CacheStats{}
	}
	return s.textLayer.CacheStats()
}

// Document returns the loaded PDF of the active article
func (s *Session) Document() *pdf.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.document
}

// Store returns the extraction store of the active article
func (s *Session) Store() *extraction.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// SetField records a manual form entry. It does not create an extraction record.
func (s *Session) SetField(name, value string) error {
	if err := s.checkField(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return errNoArticle()
	}
	s.manual[name] = value
	return nil
}

// Extract records a captured value and shows it in the form
func (s *Session) Extract(d extraction.Draft) (extraction.Record, error) {
	if err := s.checkField(d.FieldName); err != nil {
		return extraction.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return extraction.Record{}, errNoArticle()
	}
	if d.DocumentName == "" {
		d.DocumentName = s.active
	}

	rec, err := s.store.Add(d)
	if err != nil {
		return extraction.Record{}, err
	}
	delete(s.manual, rec.FieldName)
	return rec, nil
}

// ExtractSpan resolves a text span of the active article's PDF and extracts it into fieldName
func (s *Session) ExtractSpan(fieldName string, page, index int, method extraction.Method) (extraction.Record, error) {
	s.mu.Lock()
	doc := s.document
	s.mu.Unlock()
	if doc == nil || s.textLayer == nil {
		return extraction.Record{}, errors.New(errors.ErrorTypePDF, "no PDF is loaded for the active article")
	}

	span, err := s.textLayer.Span(doc.Path, page, index)
	if err != nil {
		return extraction.Record{}, err
	}
	return s.Extract(extraction.Draft{
		FieldName:   fieldName,
		Text:        span.Text,
		Page:        span.Page,
		Coordinates: span.Coordinates,
		Method:      method,
	})
}

// PageSpans returns the clickable spans of a page of the active article
func (s *Session) PageSpans(page int) (*pdf.PageSpansResult, error) {
	s.mu.Lock()
	doc := s.document
	s.mu.Unlock()
	if doc == nil || s.textLayer == nil {
		return nil, errors.New(errors.ErrorTypePDF, "no PDF is loaded for the active article")
	}
	return s.textLayer.PageSpans(pdf.PageSpansRequest{Path: doc.Path, Page: page})
}

// Undo removes the latest extraction; its field reverts to the previous extracted value or to empty
func (s *Session) Undo() (extraction.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UndoLast()
}

// ClearExtractions empties the extraction log of the active article. Manual entries stay.
func (s *Session) ClearExtractions(confirmed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ClearAll(confirmed)
}

// Save persists the form and extraction log of the active article
func (s *Session) Save(ctx context.Context) (*SaveResult, error) {
	s.mu.Lock()
	active := s.active
	form := s.formLocked()
	records := s.store.Records()
	s.mu.Unlock()

	if active == "" {
		return nil, errNoArticle()
	}

	res, err := s.tracker.SaveProgress(ctx, active, form, records)
	if err != nil {
		return nil, err
	}
	return &SaveResult{SaveResult: res, Message: MsgSaved}, nil
}

// FormSnapshot returns the current form values of the active article
func (s *Session) FormSnapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formLocked()
}

// Records returns the extraction log of the active article
func (s *Session) Records() []extraction.Record {
	return s.Store().Records()
}

// Statistics returns the counters of the active article's log
func (s *Session) Statistics() extraction.Statistics {
	return s.Store().Statistics()
}

func (s *Session) formLocked() map[string]string {
	form := s.store.CurrentValues()
	for k, v := range s.manual {
		form[k] = v
	}
	return form
}

func (s *Session) checkField(name string) error {
	if _, ok := s.tracker.Schema().Field(name); !ok {
		return errors.Newf(errors.ErrorTypeValidation, "unknown form field %q", name).WithField(name)
	}
	return nil
}

func (s *Session) newStore() *extraction.Store {
	store := extraction.NewStore(extraction.Options{
		AllowEmpty: s.tracker.Schema().AllowEmpty,
		Clock:      s.clock,
		NewID:      s.newID,
		Logger:     s.logger,
	})
	store.Subscribe(func(st extraction.Statistics) {
		s.logger.Debug("extraction counters",
			zap.Int("total", st.Total),
			zap.Int("manual", st.ByMethod.Manual),
			zap.Int("ai", st.ByMethod.AI),
			zap.Int("pages", st.DistinctPagesWithData))
	})
	return store
}

func errNoArticle() error {
	return errors.New(errors.ErrorTypeValidation, "no article is open")
}
