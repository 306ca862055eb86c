package descriptions

// Tool descriptions with practical examples and reviewer workflows

const (
	// Queue and article tools
	QueueListDescription = `List the review queue with the status of every article.

**When to use:** At the start of a session, or after saving, to pick the next article to review.

**Why it's useful:** Shows queue position, derived status (not-started, in-progress, completed) and how many form fields each article already has.

**Examples:**
• "Which articles are still not started?"
• "How far along is Study_007.pdf?"

**Best practices:** Article ids are listed exactly as article_open expects them.`

	ArticleOpenDescription = `Open a queued article for extraction.

**When to use:** Before any extraction, field entry, text-span lookup or per-article export.

**Why it's useful:** Loads the PDF, reports its page count and restores previously saved form values and extraction history.

**Examples:**
• "Open Study_003.pdf"
• Resume work: article_open → extraction_stats → continue where the log ends

**Best practices:** Save the current article with progress_save before opening another one; unsaved changes are discarded.`

	FormGetDescription = `Show the current form values of the active article.

**When to use:** To review what has been entered so far, including values typed manually and values captured from the PDF.

**Best practices:** Empty fields are omitted; use progress_save to see which required fields are still missing.`

	FieldSetDescription = `Type a value into a form field without recording an extraction.

**When to use:** For values that are not copied from the PDF text, such as computed totals or reviewer judgements.

**Examples:**
• "Set eligibility-type to RCT"
• "Set totalN to 240 (sum of both arms)"

**Best practices:** Prefer extraction_add or extraction_add_span when the value comes from the document, so it keeps its provenance.`

	// Extraction tools
	ExtractionAddDescription = `Record a value captured from the PDF together with its page and coordinates.

**When to use:** When text has been selected in the document, manually or by an AI suggestion.

**Why it's useful:** Every extraction keeps field, text, page, bounding box, method and timestamp, so the final dataset can be traced back to the source.

**Examples:**
• "Extract '120 patients' from page 3 at x=72 y=540 into totalN"
• "Record the AI-suggested DOI from page 1"

**Best practices:** Coordinates are PDF points with the origin at the bottom-left of the page; use pdf_text_spans to get them.`

	ExtractionAddSpanDescription = `Extract a text span of the open PDF into a form field by page and span index.

**When to use:** After pdf_text_spans, to capture a span exactly as it appears on the page, the equivalent of clicking it.

**Examples:**
• "Extract span 4 of page 2 into citation"

**Common workflows:**
1. pdf_text_spans page=2 → find the span → extraction_add_span page=2 index=4 field=citation`

	ExtractionUndoDescription = `Remove the most recent extraction.

**When to use:** After capturing the wrong text or the wrong field.

**Why it's useful:** The field reverts to its previous extracted value, or to empty when there was none. Manual entries are not affected.`

	ExtractionClearDescription = `Remove every extraction of the active article.

**When to use:** To restart an article from scratch.

**Best practices:** Requires confirm=true. Manual form entries are kept; the saved progress is not touched until the next progress_save.`

	ExtractionStatsDescription = `Count the extractions of the active article.

**When to use:** To check how much has been captured and how it splits between manual and AI extractions.

**Why it's useful:** Reports the total, per-method counts and the number of distinct pages with data.`

	ExtractionCoordinatesDescription = `List where each field was extracted: page and bounding box per extraction, grouped by field.

**When to use:** To highlight extracted regions on the PDF or to check that a value came from the expected page.`

	PDFTextSpansDescription = `List the clickable text spans of one page of the open PDF.

**When to use:** Before extraction_add_span, or to locate a value and its coordinates on a page.

**Why it's useful:** Each span carries its index, text and bounding box in PDF points.

**Best practices:** Scanned pages have no text layer and return no spans.`

	// Progress tools
	ProgressSaveDescription = `Save the form and extraction history of the active article.

**When to use:** Before switching articles, and regularly during long extractions.

**Why it's useful:** Derives the article status from the required fields and reports which ones are still missing. Saved progress survives server restarts.`

	ProgressStatsDescription = `Summarize review progress across the queue.

**When to use:** To report how many articles are completed, in progress and in the queue overall.`

	ProgressClearDescription = `Delete all saved review progress.

**When to use:** Only to restart a review from scratch.

**Best practices:** Requires confirm=true. The queue itself is kept and every article returns to not-started.`

	// Export tools
	ExportJSONDescription = `Export the active article's form values and extraction history as JSON.

**Why it's useful:** Machine-readable record of every value with its provenance.`

	ExportCSVDescription = `Export the active article's extraction history as CSV, one row per extraction.

**Why it's useful:** Opens directly in spreadsheets and statistical tools.`

	ExportAuditHTMLDescription = `Write an HTML audit report of the active article: counters, form values and the full extraction trail.

**When to use:** For second-reviewer checks and to archive how each value was obtained.`

	ExportAnnotatedPDFDescription = `Write a copy of the active article's PDF with every extraction stamped at its page position.

**When to use:** To visually verify extractions against the source document.

**Best practices:** Extractions on pages beyond the end of the document are skipped.`

	ExportSRMainCSVDescription = `Export one row per completed article with every form field as a column.

**When to use:** To build the systematic-review dataset for meta-analysis.

**Best practices:** Fails with "No completed articles" until at least one article is completed.`

	ExportSRTraceCSVDescription = `Export every extraction of every completed article, tagged with its article id.

**When to use:** To audit the complete review dataset.`

	ExportSRCompleteJSONDescription = `Export review statistics, main data and trace data as one JSON document.

**When to use:** To archive or hand over the complete review.`

	ExportSRWorkbookDescription = `Export main data and trace data as an Excel workbook with "Main Data" and "Trace Data" sheets.

**When to use:** When collaborators work in spreadsheets.`

	ServerInfoDescription = `Get server information, the review queue summary, storage backend and usage guidance.

**When to use:** First call in a new session to understand what the server offers.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"queue_list":              QueueListDescription,
	"article_open":            ArticleOpenDescription,
	"form_get":                FormGetDescription,
	"field_set":               FieldSetDescription,
	"extraction_add":          ExtractionAddDescription,
	"extraction_add_span":     ExtractionAddSpanDescription,
	"extraction_undo":         ExtractionUndoDescription,
	"extraction_clear":        ExtractionClearDescription,
	"extraction_stats":        ExtractionStatsDescription,
	"extraction_coordinates":  ExtractionCoordinatesDescription,
	"pdf_text_spans":          PDFTextSpansDescription,
	"progress_save":           ProgressSaveDescription,
	"progress_stats":          ProgressStatsDescription,
	"progress_clear":          ProgressClearDescription,
	"export_json":             ExportJSONDescription,
	"export_csv":              ExportCSVDescription,
	"export_audit_html":       ExportAuditHTMLDescription,
	"export_annotated_pdf":    ExportAnnotatedPDFDescription,
	"export_sr_main_csv":      ExportSRMainCSVDescription,
	"export_sr_trace_csv":     ExportSRTraceCSVDescription,
	"export_sr_complete_json": ExportSRCompleteJSONDescription,
	"export_sr_workbook":      ExportSRWorkbookDescription,
	"server_info":             ServerInfoDescription,
}

// ToolInfo summarizes one tool for the server info listing
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// Catalog lists the tools in the order a reviewer typically uses them
var Catalog = []ToolInfo{
	{Name: "server_info", Usage: "Overview of the server and the queue", Parameters: "none"},
	{Name: "queue_list", Usage: "Show every queued article with its status", Parameters: "none"},
	{Name: "article_open", Usage: "Open an article and restore saved progress", Parameters: "articleId (required)"},
	{Name: "form_get", Usage: "Show current form values", Parameters: "none"},
	{Name: "field_set", Usage: "Type a manual form value", Parameters: "field (required), value (required)"},
	{
		Name:       "extraction_add",
		Usage:      "Record a captured value with its location",
		Parameters: "field, text, page (required); x, y, width, height (points); method (manual|ai)",
	},
	{
		Name:       "extraction_add_span",
		Usage:      "Extract a text span by page and index",
		Parameters: "field, page, index (required); method (manual|ai)",
	},
	{Name: "extraction_undo", Usage: "Remove the latest extraction", Parameters: "none"},
	{Name: "extraction_clear", Usage: "Remove all extractions", Parameters: "confirm (required, true)"},
	{Name: "extraction_stats", Usage: "Extraction counters", Parameters: "none"},
	{Name: "extraction_coordinates", Usage: "Extraction locations grouped by field", Parameters: "none"},
	{Name: "pdf_text_spans", Usage: "Clickable text spans of a page", Parameters: "page (required)"},
	{Name: "progress_save", Usage: "Persist the active article", Parameters: "none"},
	{Name: "progress_stats", Usage: "Completed / in-progress / total", Parameters: "none"},
	{Name: "progress_clear", Usage: "Delete all saved progress", Parameters: "confirm (required, true)"},
	{Name: "export_json", Usage: "Active article as JSON", Parameters: "none"},
	{Name: "export_csv", Usage: "Active article extractions as CSV", Parameters: "none"},
	{Name: "export_audit_html", Usage: "Active article audit report", Parameters: "none"},
	{Name: "export_annotated_pdf", Usage: "Active article PDF with stamps", Parameters: "none"},
	{Name: "export_sr_main_csv", Usage: "Completed articles, one row each", Parameters: "none"},
	{Name: "export_sr_trace_csv", Usage: "All extractions of completed articles", Parameters: "none"},
	{Name: "export_sr_complete_json", Usage: "Stats, main and trace data", Parameters: "none"},
	{Name: "export_sr_workbook", Usage: "Main and trace data as XLSX", Parameters: "none"},
}

// UsageGuidance is appended to the server info output
const UsageGuidance = `💡 Typical workflow:
1. queue_list to pick an article, then article_open
2. pdf_text_spans to find values, extraction_add_span (or extraction_add) to capture them
3. field_set for values that are not in the text
4. progress_save; repeat with the next article
5. export_sr_main_csv / export_sr_workbook once articles are completed`

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}

// Tools returns the catalog with descriptions filled in
func Tools() []ToolInfo {
	out := make([]ToolInfo, len(Catalog))
	for i, t := range Catalog {
		t.Description = GetToolDescription(t.Name)
		out[i] = t
	}
	return out
}
