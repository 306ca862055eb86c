package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus-rech/clinical-study-extraction/internal/pdf/pdftest"
)

func TestDocumentCache_Eviction(t *testing.T) {
	c := newDocumentCache(2)
	now := time.Now()
	doc := func() *cachedDocument { return &cachedDocument{modTime: now, size: 10} }

	c.put("a.pdf", doc())
	c.put("b.pdf", doc())
	_, ok := c.get("a.pdf", now, 10)
	require.True(t, ok)

	c.put("c.pdf", doc())
	assert.Equal(t, []string{"c.pdf", "a.pdf"}, c.paths())

	_, ok = c.get("b.pdf", now, 10)
	assert.False(t, ok)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, Size: 2, Capacity: 2}, c.stats())
}

func TestDocumentCache_StaleEntry(t *testing.T) {
	c := newDocumentCache(0)
	now := time.Now()
	c.put("a.pdf", &cachedDocument{modTime: now, size: 10})

	_, ok := c.get("a.pdf", now, 11)
	assert.False(t, ok)
	_, ok = c.get("a.pdf", now.Add(time.Second), 10)
	assert.False(t, ok)
	assert.Equal(t, DefaultDocumentCacheSize, c.stats().Capacity)

	c.remove("a.pdf")
	c.remove("missing.pdf")
	assert.Empty(t, c.paths())
}

func TestTextLayer_CacheBound(t *testing.T) {
	dir := t.TempDir()
	first := pdftest.WriteFile(t, dir, "Study_001.pdf", []pdftest.Line{{X: 72, Y: 700, Text: "One"}})
	second := pdftest.WriteFile(t, dir, "Study_002.pdf", []pdftest.Line{{X: 72, Y: 700, Text: "Two"}})

	tl := NewTextLayer(NewValidator(1024*1024), nil)
	tl.SetCacheSize(1)

	_, err := tl.PageSpans(PageSpansRequest{Path: first, Page: 1})
	require.NoError(t, err)
	_, err = tl.PageSpans(PageSpansRequest{Path: second, Page: 1})
	require.NoError(t, err)
	res, err := tl.PageSpans(PageSpansRequest{Path: first, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "One", res.Spans[0].Text)

	stats := tl.CacheStats()
	assert.Equal(t, int64(3), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}
