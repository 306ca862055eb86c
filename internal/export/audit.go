package export

import (
	"bytes"
	"html/template"
	"time"

	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
	"github.com/matheus-rech/clinical-study-extraction/internal/review"
)

// AuditInput is everything the audit report shows for one article
type AuditInput struct {
	ArticleID   string
	Schema      *review.Schema
	Form        map[string]string
	Records     []extraction.Record
	Statistics  extraction.Statistics
	GeneratedAt time.Time
}

type auditField struct {
	Label string
	Name  string
	Value string
}

type auditView struct {
	ArticleID   string
	GeneratedAt string
	Statistics  extraction.Statistics
	Fields      []auditField
	Records     []extraction.Record
}

var auditTemplate = template.Must(template.New("audit").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Extraction audit: {{.ArticleID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
th { background: #f0f0f0; }
.ai { color: #6a1b9a; }
.manual { color: #1565c0; }
</style>
</head>
<body>
<h1>Extraction audit</h1>
<p>Article: <strong>{{.ArticleID}}</strong><br>Generated: {{.GeneratedAt}}</p>
<h2>Summary</h2>
<table>
<tr><th>Total extractions</th><td>{{.Statistics.Total}}</td></tr>
<tr><th>Manual</th><td>{{.Statistics.ByMethod.Manual}}</td></tr>
<tr><th>AI</th><td>{{.Statistics.ByMethod.AI}}</td></tr>
<tr><th>Pages with data</th><td>{{.Statistics.DistinctPagesWithData}}</td></tr>
</table>
<h2>Form</h2>
<table>
<tr><th>Field</th><th>Name</th><th>Value</th></tr>
{{range .Fields}}<tr><td>{{.Label}}</td><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
<h2>Extraction trail</h2>
<table>
<tr><th>#</th><th>Field</th><th>Text</th><th>Page</th><th>x</th><th>y</th><th>w</th><th>h</th><th>Method</th><th>Timestamp</th></tr>
{{range $i, $r := .Records}}<tr class="{{$r.Method}}"><td>{{$i}}</td><td>{{$r.FieldName}}</td><td>{{$r.Text}}</td><td>{{$r.Page}}</td><td>{{$r.Coordinates.X}}</td><td>{{$r.Coordinates.Y}}</td><td>{{$r.Coordinates.Width}}</td><td>{{$r.Coordinates.Height}}</td><td>{{$r.Method}}</td><td>{{$r.Timestamp}}</td></tr>
{{else}}<tr><td colspan="10">No extractions recorded</td></tr>
{{end}}</table>
</body>
</html>
`))

// AuditHTML renders a standalone report of one article's form and extraction trail
func AuditHTML(in AuditInput) ([]byte, error) {
	view := auditView{
		ArticleID:   in.ArticleID,
		GeneratedAt: in.GeneratedAt.UTC().Format(extraction.TimestampLayout),
		Statistics:  in.Statistics,
		Records:     in.Records,
	}
	if in.Schema != nil {
		for _, f := range in.Schema.Fields() {
			view.Fields = append(view.Fields, auditField{Label: f.Label, Name: f.Name, Value: in.Form[f.Name]})
		}
	}

	var buf bytes.Buffer
	if err := auditTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
