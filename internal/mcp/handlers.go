package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/matheus-rech/clinical-study-extraction/internal/descriptions"
	"github.com/matheus-rech/clinical-study-extraction/internal/export"
	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
	"github.com/matheus-rech/clinical-study-extraction/internal/review"
)

// Handler functions
func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tracker := s.session.Tracker()
	stats := tracker.AggregateStats()

	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 PDF Directory: %s\n", s.config.PDFDirectory)
	text += fmt.Sprintf("📤 Export Directory: %s\n", s.config.ExportDirectory)
	text += fmt.Sprintf("💾 Storage: %s\n", s.config.Storage)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🧾 Schema: %s (%d fields, required: %s)\n",
		tracker.Schema().Name, len(tracker.Schema().FieldNames()), strings.Join(tracker.Schema().RequiredFields(), ", "))
	text += fmt.Sprintf("📚 Queue: %d articles, %d completed, %d in progress\n", stats.Total, stats.Completed, stats.InProgress)
	if active := s.session.Active(); active != "" {
		text += fmt.Sprintf("📖 Active article: %s\n", active)
	}
	cache := s.session.TextCacheStats()
	text += fmt.Sprintf("🗂️  Text cache: %d/%d documents (%d hits, %d misses)\n",
		cache.Size, cache.Capacity, cache.Hits, cache.Misses)

	text += "\n🛠️  Available Tools:\n"
	for _, t := range descriptions.Tools() {
		text += fmt.Sprintf("• %s: %s\n", t.Name, t.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", t.Parameters)
	}
	text += "\n" + descriptions.UsageGuidance

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleQueueList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	articles := s.session.Tracker().Articles()
	if len(articles) == 0 {
		return mcp.NewToolResultText("The review queue is empty"), nil
	}

	stats := s.session.Tracker().AggregateStats()
	text := fmt.Sprintf("Review queue (%d completed, %d in progress, %d total):\n",
		stats.Completed, stats.InProgress, stats.Total)
	for _, a := range articles {
		text += fmt.Sprintf("%d. %s (%s, %d fields completed)\n",
			a.Position, a.ArticleID, a.Status, a.CompletedFieldCount)
	}
	if active := s.session.Active(); active != "" {
		text += fmt.Sprintf("\nActive article: %s\n", active)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleArticleOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("articleId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.session.OpenArticle(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("%s: %s\n", res.Message, res.ArticleID)
	if res.Document != nil {
		text += fmt.Sprintf("Pages: %d\n", res.Document.PageCount)
	}
	text += fmt.Sprintf("Status: %s\n", res.Status)
	text += fmt.Sprintf("Extractions: %d\n", res.Statistics.Total)
	text += fmt.Sprintf("Filled fields: %d\n", review.CountCompleted(res.Form))
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFormGet(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	active := s.session.Active()
	if active == "" {
		return mcp.NewToolResultError("no article is open"), nil
	}

	form := s.session.FormSnapshot()
	text := fmt.Sprintf("Form for %s:\n", active)
	filled := 0
	for _, f := range s.session.Tracker().Schema().Fields() {
		v := form[f.Name]
		if strings.TrimSpace(v) == "" {
			continue
		}
		filled++
		marker := ""
		if f.Required {
			marker = " *"
		}
		text += fmt.Sprintf("• %s (%s)%s: %s\n", f.Label, f.Name, marker, v)
	}
	if filled == 0 {
		text += "No fields filled yet\n"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleFieldSet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.session.SetField(field, value); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Set %s = %q", field, value)), nil
}

func (s *Server) handleExtractionAdd(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := request.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	method, err := extraction.ParseMethod(request.GetString("method", string(extraction.MethodManual)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.session.Extract(extraction.Draft{
		FieldName: field,
		Text:      text,
		Page:      page,
		Coordinates: extraction.Coordinates{
			X:      request.GetFloat("x", 0),
			Y:      request.GetFloat("y", 0),
			Width:  request.GetFloat("width", 0),
			Height: request.GetFloat("height", 0),
		},
		Method: method,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRecord("Extracted", rec)), nil
}

func (s *Server) handleExtractionAddSpan(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := request.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := request.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := request.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	method, err := extraction.ParseMethod(request.GetString("method", string(extraction.MethodManual)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.session.ExtractSpan(field, page, index, method)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRecord("Extracted", rec)), nil
}

func (s *Server) handleExtractionUndo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.session.Undo()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := formatRecord("Removed", rec)
	if v, ok := s.session.FormSnapshot()[rec.FieldName]; ok && v != "" {
		text += fmt.Sprintf("%s is now %q\n", rec.FieldName, v)
	} else {
		text += fmt.Sprintf("%s is now empty\n", rec.FieldName)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExtractionClear(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.ClearExtractions(request.GetBool("confirm", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("All extractions cleared"), nil
}

func (s *Server) handleExtractionStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.session.Statistics()
	text := "Extraction Statistics\n"
	if active := s.session.Active(); active != "" {
		text += fmt.Sprintf("Article: %s\n", active)
	}
	text += fmt.Sprintf("Total: %d\n", st.Total)
	text += fmt.Sprintf("Manual: %d\n", st.ByMethod.Manual)
	text += fmt.Sprintf("AI: %d\n", st.ByMethod.AI)
	text += fmt.Sprintf("Pages with data: %d\n", st.DistinctPagesWithData)
	return mcp.NewToolResultText(text), nil
}

// fieldLocation is one extraction of a field on the coordinate map
type fieldLocation struct {
	ID          string                 `json:"id"`
	Page        int                    `json:"page"`
	Coordinates extraction.Coordinates `json:"coordinates"`
	Method      extraction.Method      `json:"method"`
}

func (s *Server) handleExtractionCoordinates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	byField := make(map[string][]fieldLocation)
	for _, rec := range s.session.Records() {
		byField[rec.FieldName] = append(byField[rec.FieldName], fieldLocation{
			ID:          rec.ID,
			Page:        rec.Page,
			Coordinates: rec.Coordinates,
			Method:      rec.Method,
		})
	}

	data, err := json.MarshalIndent(byField, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handlePDFTextSpans(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := request.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.session.PageSpans(page)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Page %d of %d: %d text span(s)\n", res.Page, res.PageCount, len(res.Spans))
	if len(res.Spans) == 0 {
		text += "No text layer on this page\n"
	}
	for _, sp := range res.Spans {
		c := sp.Coordinates
		text += fmt.Sprintf("[%d] (x=%.1f y=%.1f w=%.1f h=%.1f) %s\n", sp.Index, c.X, c.Y, c.Width, c.Height, sp.Text)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProgressSave(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.session.Save(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("%s: %s\n", res.Message, res.ArticleID)
	text += fmt.Sprintf("Status: %s (was %s)\n", res.Status, res.PreviousStatus)
	text += fmt.Sprintf("Completed fields: %d\n", res.CompletedFieldCount)
	if len(res.MissingRequired) > 0 {
		text += fmt.Sprintf("Missing required fields: %s\n", strings.Join(res.MissingRequired, ", "))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProgressStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.session.Tracker().AggregateStats()
	text := "Review Progress\n"
	text += fmt.Sprintf("Completed: %d\n", st.Completed)
	text += fmt.Sprintf("In progress: %d\n", st.InProgress)
	text += fmt.Sprintf("Total: %d\n", st.Total)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProgressClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.session.Tracker().ClearAllProgress(ctx, request.GetBool("confirm", false)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("All review progress cleared"), nil
}

func (s *Server) articleExport(fn func(export.ArticleData) (*export.Result, error)) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data := export.ArticleData{
			ArticleID:  s.session.Active(),
			Form:       s.session.FormSnapshot(),
			Records:    s.session.Records(),
			Statistics: s.session.Statistics(),
		}
		if doc := s.session.Document(); doc != nil {
			data.PDFPath = doc.Path
		}

		res, err := fn(data)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatExport(res)), nil
	}
}

func (s *Server) reviewExport(fn func(context.Context) (*export.Result, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := fn(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatExport(res)), nil
	}
}

// Formatting methods
func formatRecord(verb string, rec extraction.Record) string {
	c := rec.Coordinates
	text := fmt.Sprintf("%s %s = %q\n", verb, rec.FieldName, rec.Text)
	text += fmt.Sprintf("ID: %s\n", rec.ID)
	text += fmt.Sprintf("Page: %d at (x=%.1f y=%.1f w=%.1f h=%.1f)\n", rec.Page, c.X, c.Y, c.Width, c.Height)
	text += fmt.Sprintf("Method: %s\n", rec.Method)
	return text
}

func formatExport(res *export.Result) string {
	return fmt.Sprintf("Exported %s (%d rows)\nPath: %s\n", strings.ToUpper(res.Format), res.Rows, res.Path)
}
