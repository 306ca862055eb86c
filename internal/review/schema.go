package review

import (
	"fmt"
	"strings"

	"github.com/matheus-rech/clinical-study-extraction/internal/extraction"
)

// Form steps of the clinical-study schema
const (
	StepStudy       = "study"
	StepEligibility = "eligibility"
	StepBaseline    = "baseline"
)

// Field describes one form field of the extraction schema
type Field struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Step       string `json:"step"`
	Required   bool   `json:"required"`
	AllowEmpty bool   `json:"allowEmpty,omitempty"`
}

// Schema is the ordered set of form fields and the subset required for completion
type Schema struct {
	Name   string
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema, rejecting blank or duplicate field names
func NewSchema(name string, fields []Field) (*Schema, error) {
	s := &Schema{Name: name, index: make(map[string]int, len(fields))}
	for _, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field name cannot be empty", name)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// DefaultSchema returns the clinical-study extraction form
func DefaultSchema() *Schema {
	s, err := NewSchema("clinical-study", []Field{
		{Name: "citation", Label: "Citation", Step: StepStudy, Required: true},
		{Name: "doi", Label: "DOI", Step: StepStudy, Required: true},
		{Name: "pmid", Label: "PMID", Step: StepStudy},
		{Name: "journal", Label: "Journal", Step: StepStudy, Required: true},
		{Name: "year", Label: "Year", Step: StepStudy, Required: true},
		{Name: "country", Label: "Country", Step: StepStudy},
		{Name: "centers", Label: "Centers", Step: StepStudy},
		{Name: "funding", Label: "Funding", Step: StepStudy},
		{Name: "conflicts", Label: "Conflicts of interest", Step: StepStudy},
		{Name: "registration", Label: "Trial registration", Step: StepStudy},
		{Name: "eligibility-population", Label: "Population", Step: StepEligibility, Required: true},
		{Name: "eligibility-intervention", Label: "Intervention", Step: StepEligibility, Required: true},
		{Name: "eligibility-comparator", Label: "Comparator", Step: StepEligibility, Required: true},
		{Name: "eligibility-outcomes", Label: "Outcomes", Step: StepEligibility, Required: true},
		{Name: "eligibility-timing", Label: "Timing", Step: StepEligibility},
		{Name: "eligibility-type", Label: "Study type", Step: StepEligibility},
		{Name: "totalN", Label: "Total N", Step: StepBaseline, Required: true},
		{Name: "surgicalN", Label: "Surgical N", Step: StepBaseline},
		{Name: "controlN", Label: "Control N", Step: StepBaseline},
		{Name: "ageMean", Label: "Age mean", Step: StepBaseline},
		{Name: "ageSD", Label: "Age SD", Step: StepBaseline},
		{Name: "maleN", Label: "Male N", Step: StepBaseline},
		{Name: "femaleN", Label: "Female N", Step: StepBaseline},
		{Name: "nihssMean", Label: "NIHSS mean", Step: StepBaseline},
		{Name: "gcsMean", Label: "GCS mean", Step: StepBaseline},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// WithRequired returns a copy of the schema whose required set is exactly names
func (s *Schema) WithRequired(names []string) (*Schema, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := s.index[n]; !ok {
			return nil, fmt.Errorf("schema %s: unknown required field %q", s.Name, n)
		}
		want[n] = true
	}
	if len(want) == 0 {
		return nil, fmt.Errorf("schema %s: required field list cannot be empty", s.Name)
	}

	fields := make([]Field, len(s.fields))
	for i, f := range s.fields {
		f.Required = want[f.Name]
		fields[i] = f
	}
	return NewSchema(s.Name, fields)
}

// Fields returns the schema fields in form order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames returns every field name in form order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// RequiredFields returns the names of the required fields in form order
func (s *Schema) RequiredFields() []string {
	var names []string
	for _, f := range s.fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// AllowEmpty reports whether the field accepts an empty extracted value
func (s *Schema) AllowEmpty(name string) bool {
	f, ok := s.Field(name)
	return ok && f.AllowEmpty
}

// MissingRequired returns the required fields with no non-empty value in values
func (s *Schema) MissingRequired(values map[string]string) []string {
	var missing []string
	for _, f := range s.fields {
		if f.Required && strings.TrimSpace(values[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// MergeValues builds the effective field values of an article: the latest log value
// per field, overridden by explicit snapshot entries.
func MergeValues(snapshot map[string]string, log []extraction.Record) map[string]string {
	merged := make(map[string]string, len(snapshot)+len(log))
	for _, rec := range log {
		merged[rec.FieldName] = rec.Text
	}
	for k, v := range snapshot {
		merged[k] = v
	}
	return merged
}

// CountCompleted returns the number of distinct fields with a non-empty value
func CountCompleted(values map[string]string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}
