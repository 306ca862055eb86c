package pdf

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/errors"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
)

// TextLayer extracts clickable text spans from article PDFs. Spans of a document are
// computed once and cached until the file changes or the document is evicted.
type TextLayer struct {
	validator *Validator
	logger    *zap.Logger
	cache     *documentCache
}

// NewTextLayer creates a text layer that validates files with validator
func NewTextLayer(validator *Validator, logger *zap.Logger) *TextLayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextLayer{
		validator: validator,
		logger:    logger,
		cache:     newDocumentCache(DefaultDocumentCacheSize),
	}
}

// Load validates a PDF and returns its page count
func (tl *TextLayer) Load(path string) (*Document, error) {
	doc, err := tl.validator.Open(path)
	if err != nil {
		return nil, err
	}
	tl.logger.Debug("pdf loaded", zap.String("path", path), zap.Int("pages", doc.PageCount))
	return doc, nil
}

// PageSpans returns the spans of one page together with the page count
func (tl *TextLayer) PageSpans(req PageSpansRequest) (*PageSpansResult, error) {
	pages, err := tl.document(req.Path)
	if err != nil {
		return nil, err
	}
	if req.Page < 1 || req.Page > len(pages) {
		return nil, errors.Newf(errors.ErrorTypeValidation, "page %d out of range (1-%d)", req.Page, len(pages))
	}
	spans := make([]Span, len(pages[req.Page-1]))
	copy(spans, pages[req.Page-1])
	return &PageSpansResult{
		Path:      req.Path,
		Page:      req.Page,
		PageCount: len(pages),
		Spans:     spans,
	}, nil
}

// Span resolves one span by page and index, the equivalent of clicking it
func (tl *TextLayer) Span(path string, page, index int) (Span, error) {
	res, err := tl.PageSpans(PageSpansRequest{Path: path, Page: page})
	if err != nil {
		return Span{}, err
	}
	if index < 0 || index >= len(res.Spans) {
		return Span{}, errors.Newf(errors.ErrorTypeValidation, "span %d out of range on page %d (%d spans)",
			index, page, len(res.Spans))
	}
	return res.Spans[index], nil
}

// Invalidate drops the cached spans of a document
func (tl *TextLayer) Invalidate(path string) {
	tl.cache.remove(path)
}

// SetCacheSize replaces the document cache with one holding at most size documents
func (tl *TextLayer) SetCacheSize(size int) {
	tl.cache = newDocumentCache(size)
}

// CacheStats reports hits, misses and occupancy of the document cache
func (tl *TextLayer) CacheStats() CacheStats {
	return tl.cache.stats()
}

func (tl *TextLayer) document(path string) ([][]Span, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypePDF, err, "cannot access file")
	}

	if cached, ok := tl.cache.get(path, info.ModTime(), info.Size()); ok {
		return cached.pages, nil
	}

	if err := tl.validator.ValidateFileInfo(path, info); err != nil {
		return nil, err
	}
	pages, err := readSpans(path)
	if err != nil {
		return nil, err
	}

	tl.cache.put(path, &cachedDocument{modTime: info.ModTime(), size: info.Size(), pages: pages})

	tl.logger.Debug("text layer built", zap.String("path", path), zap.Int("pages", len(pages)))
	return pages, nil
}

func readSpans(path string) (pages [][]Span, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(errors.ErrorTypePDF, fmt.Errorf("%v", r), "failed to read text layer")
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypePDF, err, "invalid PDF file")
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([][]Span, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages[i-1] = groupSpans(p.Content().Text, i)
	}
	return pages, nil
}

type spanBuilder struct {
	text        strings.Builder
	left, right float64
	y, size     float64
}

// groupSpans joins glyphs that share a baseline and sit close together into spans
func groupSpans(texts []pdf.Text, page int) []Span {
	var spans []Span
	var cur *spanBuilder

	flush := func() {
		if cur == nil {
			return
		}
		text := strings.TrimSpace(cur.text.String())
		if text != "" {
			spans = append(spans, Span{
				Index: len(spans),
				Text:  text,
				Page:  page,
				Coordinates: extraction.Coordinates{
					X:      clamp(cur.left),
					Y:      clamp(cur.y),
					Width:  clamp(cur.right - cur.left),
					Height: clamp(cur.size),
				},
			})
		}
		cur = nil
	}

	for _, t := range texts {
		// TJ arrays end with a synthetic newline
		if t.S == "\n" {
			flush()
			continue
		}
		advance := t.W
		if advance <= 0 {
			advance = t.FontSize / 2
		}

		if cur != nil {
			size := math.Max(cur.size, t.FontSize)
			sameLine := math.Abs(t.Y-cur.y) <= size/2
			gap := t.X - cur.right
			if sameLine && t.X >= cur.left && gap <= size {
				cur.text.WriteString(t.S)
				cur.right = math.Max(cur.right, t.X+advance)
				cur.size = size
				continue
			}
			flush()
		}

		cur = &spanBuilder{left: t.X, right: t.X + advance, y: t.Y, size: t.FontSize}
		cur.text.WriteString(t.S)
	}
	flush()
	return spans
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
