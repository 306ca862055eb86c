package pdf

import (
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
)

// FileInfo represents an article PDF found in the article directory
type FileInfo struct {
	ArticleID    string `json:"articleId"`
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Document is a loaded, validated article PDF
type Document struct {
	Path      string `json:"path"`
	PageCount int    `json:"pageCount"`
}

// Span is one clickable run of text on a page. Coordinates are in page space (points,
// origin bottom-left, Y at the baseline); Height is the font size.
type Span struct {
	Index       int                    `json:"index"`
	Text        string                 `json:"text"`
	Page        int                    `json:"page"`
	Coordinates extraction.Coordinates `json:"coordinates"`
}

// PageSpansRequest asks for the text spans of one page
type PageSpansRequest struct {
	Path string `json:"path"`
	Page int    `json:"page"`
}

// PageSpansResult lists the spans of one page
type PageSpansResult struct {
	Path      string `json:"path"`
	Page      int    `json:"page"`
	PageCount int    `json:"pageCount"`
	Spans     []Span `json:"spans"`
}
