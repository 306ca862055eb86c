package mcp

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/matheus-rech/clinical-study-extraction/internal/config"
	"github.com/matheus-rech/clinical-study-extraction/internal/descriptions"
	"github.com/matheus-rech/clinical-study-extraction/internal/export"
	"github.com/matheus-rech/clinical-study-extraction/internal/session"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	session   *session.Session
	exports   *export.Service
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, sess *session.Session, exports *export.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if sess == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if exports == nil {
		return nil, fmt.Errorf("export service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(descriptions.UsageGuidance),
	)

	s := &Server{
		config:    cfg,
		session:   sess,
		exports:   exports,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

func tool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Queue and article
	s.mcpServer.AddTool(tool("server_info", mcp.WithReadOnlyHintAnnotation(true)), s.handleServerInfo)
	s.mcpServer.AddTool(tool("queue_list", mcp.WithReadOnlyHintAnnotation(true)), s.handleQueueList)
	s.mcpServer.AddTool(tool("article_open",
		mcp.WithString("articleId", mcp.Required(), mcp.Description("Article id as listed by queue_list")),
	), s.handleArticleOpen)
	s.mcpServer.AddTool(tool("form_get", mcp.WithReadOnlyHintAnnotation(true)), s.handleFormGet)
	s.mcpServer.AddTool(tool("field_set",
		mcp.WithString("field", mcp.Required(), mcp.Description("Form field name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Value to enter")),
	), s.handleFieldSet)

	// Extraction
	s.mcpServer.AddTool(tool("extraction_add",
		mcp.WithString("field", mcp.Required(), mcp.Description("Form field the value belongs to")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Captured text")),
		mcp.WithNumber("page", mcp.Required(), mcp.Min(1), mcp.Description("1-based page number")),
		mcp.WithNumber("x", mcp.Min(0), mcp.Description("Left edge in points")),
		mcp.WithNumber("y", mcp.Min(0), mcp.Description("Baseline in points from the bottom of the page")),
		mcp.WithNumber("width", mcp.Min(0), mcp.Description("Width in points")),
		mcp.WithNumber("height", mcp.Min(0), mcp.Description("Height in points")),
		mcp.WithString("method", mcp.Enum("manual", "ai"), mcp.DefaultString("manual"),
			mcp.Description("How the value was captured")),
	), s.handleExtractionAdd)
	s.mcpServer.AddTool(tool("extraction_add_span",
		mcp.WithString("field", mcp.Required(), mcp.Description("Form field the value belongs to")),
		mcp.WithNumber("page", mcp.Required(), mcp.Min(1), mcp.Description("1-based page number")),
		mcp.WithNumber("index", mcp.Required(), mcp.Min(0), mcp.Description("Span index from pdf_text_spans")),
		mcp.WithString("method", mcp.Enum("manual", "ai"), mcp.DefaultString("manual"),
			mcp.Description("How the value was captured")),
	), s.handleExtractionAddSpan)
	s.mcpServer.AddTool(tool("extraction_undo"), s.handleExtractionUndo)
	s.mcpServer.AddTool(tool("extraction_clear",
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to clear")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handleExtractionClear)
	s.mcpServer.AddTool(tool("extraction_stats", mcp.WithReadOnlyHintAnnotation(true)), s.handleExtractionStats)
	s.mcpServer.AddTool(tool("extraction_coordinates", mcp.WithReadOnlyHintAnnotation(true)),
		s.handleExtractionCoordinates)
	s.mcpServer.AddTool(tool("pdf_text_spans",
		mcp.WithNumber("page", mcp.Required(), mcp.Min(1), mcp.Description("1-based page number")),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handlePDFTextSpans)

	// Progress
	s.mcpServer.AddTool(tool("progress_save"), s.handleProgressSave)
	s.mcpServer.AddTool(tool("progress_stats", mcp.WithReadOnlyHintAnnotation(true)), s.handleProgressStats)
	s.mcpServer.AddTool(tool("progress_clear",
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to delete all progress")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.handleProgressClear)

	// Export
	s.mcpServer.AddTool(tool("export_json"), s.articleExport(s.exports.JSON))
	s.mcpServer.AddTool(tool("export_csv"), s.articleExport(s.exports.CSV))
	s.mcpServer.AddTool(tool("export_audit_html"), s.articleExport(s.exports.AuditHTML))
	s.mcpServer.AddTool(tool("export_annotated_pdf"), s.articleExport(s.exports.AnnotatedPDF))
	s.mcpServer.AddTool(tool("export_sr_main_csv"), s.reviewExport(s.exports.MainCSV))
	s.mcpServer.AddTool(tool("export_sr_trace_csv"), s.reviewExport(s.exports.TraceCSV))
	s.mcpServer.AddTool(tool("export_sr_complete_json"), s.reviewExport(s.exports.CompleteJSON))
	s.mcpServer.AddTool(tool("export_sr_workbook"), s.reviewExport(s.exports.Workbook))
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.logger.Info("starting MCP server in stdio mode",
		zap.String("directory", s.config.PDFDirectory),
		zap.String("storage", s.config.Storage))

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	s.logger.Info("starting MCP server in SSE mode",
		zap.String("address", addr),
		zap.String("directory", s.config.PDFDirectory))

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down SSE server")
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		return nil
	}
}
