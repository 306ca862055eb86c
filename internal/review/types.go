// Package review tracks systematic-review progress across a fixed queue of articles.
package review

import (
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
)

// Durable keys
const (
	ProgressKeyPrefix = "sr_progress:"
	QueueKey          = "sr_queue"
	ActiveKey         = "sr_active"
)

// DefaultQueueSize is the number of articles in a review queue unless configured otherwise
const DefaultQueueSize = 21

// ProgressKey returns the durable key for an article's progress record
func ProgressKey(articleID string) string {
	return ProgressKeyPrefix + articleID
}

// Status is the derived completion state of an article
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ArticleProgress is the persisted state of one article
type ArticleProgress struct {
	ArticleID           string              `json:"articleId"`
	Status              Status              `json:"status"`
	CompletedFieldCount int                 `json:"completedFieldCount"`
	FormSnapshot        map[string]string   `json:"formSnapshot"`
	ExtractionLog       []extraction.Record `json:"extractionLog"`
	SavedAt             string              `json:"savedAt"`
}

func (p *ArticleProgress) clone() *ArticleProgress {
	if p == nil {
		return nil
	}
	out := *p
	out.FormSnapshot = make(map[string]string, len(p.FormSnapshot))
	for k, v := range p.FormSnapshot {
		out.FormSnapshot[k] = v
	}
	out.ExtractionLog = make([]extraction.Record, len(p.ExtractionLog))
	copy(out.ExtractionLog, p.ExtractionLog)
	return &out
}

// SaveResult reports the outcome of SaveProgress
type SaveResult struct {
	ArticleID           string   `json:"articleId"`
	Status              Status   `json:"status"`
	PreviousStatus      Status   `json:"previousStatus"`
	CompletedFieldCount int      `json:"completedFieldCount"`
	MissingRequired     []string `json:"missingRequired,omitempty"`
	SavedAt             string   `json:"savedAt"`
}

// Stats aggregates queue statuses
type Stats struct {
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Total      int `json:"total"`
}

// ArticleSummary is one queue row
type ArticleSummary struct {
	Position            int    `json:"position"`
	ArticleID           string `json:"articleId"`
	Status              Status `json:"status"`
	CompletedFieldCount int    `json:"completedFieldCount"`
}
