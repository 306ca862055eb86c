package review

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
	"github.com/matheus-rech/clinical-study-extraction/internal/storage"
)

// Tracker holds per-article progress for the review queue and persists it through a KV store.
type Tracker struct {
	mu sync.RWMutex

	kv     storage.KV
	schema *Schema
	clock  func() time.Time
	logger *zap.Logger

	queue    []string
	index    map[string]int
	progress map[string]*ArticleProgress
}

// NewTracker creates a tracker with an empty queue
func NewTracker(kv storage.KV, schema *Schema, logger *zap.Logger) *Tracker {
	if schema == nil {
		schema = DefaultSchema()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		kv:       kv,
		schema:   schema,
		clock:    time.Now,
		logger:   logger,
		index:    make(map[string]int),
		progress: make(map[string]*ArticleProgress),
	}
}

// SetClock overrides the savedAt clock
func (t *Tracker) SetClock(clock func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
}

// Schema returns the schema used to derive completion
func (t *Tracker) Schema() *Schema {
	return t.schema
}

// InitializeQueue sets the queue and loads any persisted progress for its articles.
// In-memory progress is reset; persisted entries always win.
func (t *Tracker) InitializeQueue(ctx context.Context, articleIDs []string) error {
	index := make(map[string]int, len(articleIDs))
	queue := make([]string, 0, len(articleIDs))
	for _, id := range articleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return errors.New(errors.ErrorTypeValidation, "article id cannot be empty")
		}
		if _, dup := index[id]; dup {
			return errors.New(errors.ErrorTypeValidation, "article appears twice in the queue").WithArticle(id)
		}
		index[id] = len(queue)
		queue = append(queue, id)
	}
	if len(queue) == 0 {
		return errors.New(errors.ErrorTypeValidation, "queue cannot be empty")
	}

	progress := make(map[string]*ArticleProgress)
	for _, id := range queue {
		p, err := t.readProgress(ctx, id)
		if err != nil {
			return err
		}
		if p != nil {
			progress[id] = p
		}
	}

	raw, err := json.Marshal(queue)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeValidation, err, "failed to encode queue")
	}
	if err := t.kv.Set(ctx, QueueKey, string(raw)); err != nil {
		return errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to persist queue")
	}

	t.mu.Lock()
	t.queue = queue
	t.index = index
	t.progress = progress
	t.mu.Unlock()

	t.logger.Info("review queue initialized",
		zap.Int("articles", len(queue)),
		zap.Int("restored", len(progress)))
	return nil
}

// LoadQueue returns the persisted queue order, if any
func (t *Tracker) LoadQueue(ctx context.Context) ([]string, bool, error) {
	raw, found, err := t.kv.Get(ctx, QueueKey)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to read queue")
	}
	if !found {
		return nil, false, nil
	}
	var queue []string
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		return nil, false, errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "persisted queue is corrupt")
	}
	return queue, true, nil
}

// SaveProgress derives the article status and persists the combined record with a single write.
func (t *Tracker) SaveProgress(ctx context.Context, articleID string, snapshot map[string]string,
	log []extraction.Record,
) (*SaveResult, error) {
	if !t.Contains(articleID) {
		return nil, errors.New(errors.ErrorTypeUnknownArticle, "cannot save progress").WithArticle(articleID)
	}

	t.mu.RLock()
	now := t.clock()
	var previous Status = StatusNotStarted
	if p, ok := t.progress[articleID]; ok {
		previous = p.Status
	}
	t.mu.RUnlock()

	entry := &ArticleProgress{
		ArticleID:     articleID,
		FormSnapshot:  make(map[string]string, len(snapshot)),
		ExtractionLog: make([]extraction.Record, len(log)),
		SavedAt:       now.UTC().Format(extraction.TimestampLayout),
	}
	for k, v := range snapshot {
		entry.FormSnapshot[k] = v
	}
	copy(entry.ExtractionLog, log)
	missing := t.derive(entry, true)

	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeValidation, err, "failed to encode progress").WithArticle(articleID)
	}
	if err := t.kv.Set(ctx, ProgressKey(articleID), string(raw)); err != nil {
		t.logger.Warn("progress save failed", zap.String("article", articleID), zap.Error(err))
		return nil, errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to save progress").
			WithArticle(articleID)
	}

	t.mu.Lock()
	t.progress[articleID] = entry
	t.mu.Unlock()

	t.logger.Info("progress saved",
		zap.String("article", articleID),
		zap.String("status", string(entry.Status)),
		zap.Int("completedFields", entry.CompletedFieldCount))

	return &SaveResult{
		ArticleID:           articleID,
		Status:              entry.Status,
		PreviousStatus:      previous,
		CompletedFieldCount: entry.CompletedFieldCount,
		MissingRequired:     missing,
		SavedAt:             entry.SavedAt,
	}, nil
}

// RestoreProgress reads the persisted record of an article. It returns nil, nil when
// the article was never saved.
func (t *Tracker) RestoreProgress(ctx context.Context, articleID string) (*ArticleProgress, error) {
	p, err := t.readProgress(ctx, articleID)
	if err != nil || p == nil {
		return nil, err
	}

	t.mu.Lock()
	if _, queued := t.index[articleID]; queued {
		t.progress[articleID] = p
	}
	t.mu.Unlock()

	return p.clone(), nil
}

// Progress returns the in-memory progress of an article
func (t *Tracker) Progress(articleID string) (*ArticleProgress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.progress[articleID]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Status returns the derived status of a queued article
func (t *Tracker) Status(articleID string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.progress[articleID]; ok {
		return p.Status
	}
	return StatusNotStarted
}

// AggregateStats counts statuses over the queue. Total is always the queue length.
func (t *Tracker) AggregateStats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{Total: len(t.queue)}
	for _, id := range t.queue {
		p, ok := t.progress[id]
		if !ok {
			continue
		}
		switch p.Status {
		case StatusCompleted:
			stats.Completed++
		case StatusInProgress:
			stats.InProgress++
		}
	}
	return stats
}

// ClearAllProgress erases every persisted entry and resets the queue to not-started.
// The caller must have obtained confirmation from the user.
func (t *Tracker) ClearAllProgress(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return errors.New(errors.ErrorTypeConfirmationRequired, "clearing all progress requires confirmation")
	}
	if err := t.kv.Clear(ctx); err != nil {
		return errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to clear progress")
	}

	t.mu.Lock()
	cleared := len(t.progress)
	t.progress = make(map[string]*ArticleProgress)
	queue := append([]string(nil), t.queue...)
	t.mu.Unlock()

	if len(queue) > 0 {
		raw, _ := json.Marshal(queue)
		if err := t.kv.Set(ctx, QueueKey, string(raw)); err != nil {
			t.logger.Warn("failed to re-persist queue after clear", zap.Error(err))
		}
	}

	t.logger.Info("review progress cleared", zap.Int("articles", cleared))
	return nil
}

// Queue returns the queue order
func (t *Tracker) Queue() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.queue...)
}

// Contains reports whether an article is in the queue
func (t *Tracker) Contains(articleID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[articleID]
	return ok
}

// Articles returns one summary row per queued article, in queue order
func (t *Tracker) Articles() []ArticleSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows := make([]ArticleSummary, len(t.queue))
	for i, id := range t.queue {
		rows[i] = ArticleSummary{Position: i + 1, ArticleID: id, Status: StatusNotStarted}
		if p, ok := t.progress[id]; ok {
			rows[i].Status = p.Status
			rows[i].CompletedFieldCount = p.CompletedFieldCount
		}
	}
	return rows
}

// Completed returns the progress of every completed article, in queue order
func (t *Tracker) Completed() []ArticleProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []ArticleProgress
	for _, id := range t.queue {
		if p, ok := t.progress[id]; ok && p.Status == StatusCompleted {
			out = append(out, *p.clone())
		}
	}
	return out
}

// SetActiveArticle records the article the user is working on
func (t *Tracker) SetActiveArticle(ctx context.Context, articleID string) error {
	if err := t.kv.Set(ctx, ActiveKey, articleID); err != nil {
		return errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to record active article").
			WithArticle(articleID)
	}
	return nil
}

// ActiveArticle returns the article recorded by SetActiveArticle
func (t *Tracker) ActiveArticle(ctx context.Context) (string, bool, error) {
	id, found, err := t.kv.Get(ctx, ActiveKey)
	if err != nil {
		return "", false, errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to read active article")
	}
	return id, found && id != "", nil
}

func (t *Tracker) readProgress(ctx context.Context, articleID string) (*ArticleProgress, error) {
	raw, found, err := t.kv.Get(ctx, ProgressKey(articleID))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "failed to read progress").
			WithArticle(articleID)
	}
	if !found {
		return nil, nil
	}

	var p ArticleProgress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeStorageUnavailable, err, "persisted progress is corrupt").
			WithArticle(articleID)
	}
	p.ArticleID = articleID
	if p.FormSnapshot == nil {
		p.FormSnapshot = make(map[string]string)
	}
	t.derive(&p, true)
	return &p, nil
}

// derive recomputes the completed count and status of p and returns the missing required fields.
func (t *Tracker) derive(p *ArticleProgress, persisted bool) []string {
	values := MergeValues(p.FormSnapshot, p.ExtractionLog)
	p.CompletedFieldCount = CountCompleted(values)
	missing := t.schema.MissingRequired(values)

	switch {
	case len(missing) == 0:
		p.Status = StatusCompleted
	case persisted || p.CompletedFieldCount > 0:
		p.Status = StatusInProgress
	default:
		p.Status = StatusNotStarted
	}
	return missing
}
