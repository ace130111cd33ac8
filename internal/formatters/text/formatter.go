// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"passport-crosscheck/internal/crosscheck"
	"passport-crosscheck/internal/formatters"
	"passport-crosscheck/internal/passport"
)

// Formatter implements human-readable output with colors and tables
type Formatter struct{}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) MediaType() string {
	return "text/plain"
}

// palette holds the colors for one Format call so concurrent callers with
// different NoColor settings do not interfere.
type palette struct {
	bold, dim, green, yellow, red, blue *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		bold:   color.New(color.Bold),
		dim:    color.New(color.Faint),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		blue:   color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.bold, p.dim, p.green, p.yellow, p.red, p.blue} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

func (p palette) status(s crosscheck.Status) *color.Color {
	switch s {
	case crosscheck.StatusSuccess:
		return p.green
	case crosscheck.StatusPartial:
		return p.yellow
	default:
		return p.red
	}
}

func (p palette) severity(s crosscheck.Severity) *color.Color {
	switch s {
	case crosscheck.SeverityCritical:
		return p.red
	case crosscheck.SeverityWarning:
		return p.yellow
	default:
		return p.blue
	}
}

// displayOrder is the row order of the fields table.
var displayOrder = []crosscheck.Field{
	crosscheck.FieldSurname,
	crosscheck.FieldGivenNames,
	crosscheck.FieldPassportNumber,
	crosscheck.FieldNationality,
	crosscheck.FieldDateOfBirth,
	crosscheck.FieldExpiryDate,
	crosscheck.FieldSex,
	crosscheck.FieldPlaceOfBirth,
}

func (f *Formatter) Format(result *crosscheck.CrossCheckResult, options formatters.FormatterOptions) (string, error) {
	p := newPalette(options.NoColor)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s %s\n", p.bold.Sprint("Status:"), p.status(result.Status).Sprint(result.Status))
	if len(result.SourcesUsed) > 0 {
		sources := make([]string, len(result.SourcesUsed))
		for i, s := range result.SourcesUsed {
			sources[i] = string(s)
		}
		fmt.Fprintf(&b, "%s %s\n", p.bold.Sprint("Sources:"), strings.Join(sources, ", "))
	}

	if result.Status == crosscheck.StatusError {
		fmt.Fprintf(&b, "\n%s %s\n", p.red.Sprint("Error:"), deref(result.Error))
		if result.MRZError != nil {
			fmt.Fprintf(&b, "  MRZ: %s\n", *result.MRZError)
		}
		if result.VLMError != nil {
			fmt.Fprintf(&b, "  VLM: %s\n", *result.VLMError)
		}
		return b.String(), nil
	}

	if result.DocumentConfidence != nil {
		fmt.Fprintf(&b, "%s %.1f%%\n", p.bold.Sprint("Document Confidence:"), *result.DocumentConfidence*100)
	}
	if options.Verbose {
		if result.MRZError != nil {
			fmt.Fprintf(&b, "%s %s\n", p.yellow.Sprint("MRZ:"), *result.MRZError)
		}
		if result.VLMError != nil {
			fmt.Fprintf(&b, "%s %s\n", p.yellow.Sprint("VLM:"), *result.VLMError)
		}
	}

	if result.PassportData != nil {
		fmt.Fprintf(&b, "\n%s\n", p.bold.Sprint("Extracted Fields:"))
		f.fieldsTable(&b, p, result)
	}

	if len(result.Discrepancies) > 0 {
		fmt.Fprintf(&b, "\n%s\n", p.bold.Sprintf("Discrepancies (%d):", len(result.Discrepancies)))
		f.discrepancyTable(&b, p, result.Discrepancies)
	} else {
		fmt.Fprintf(&b, "\n%s\n", p.green.Sprint("No discrepancies found - sources agree."))
	}

	if options.Verbose && result.Metadata != nil {
		fmt.Fprintf(&b, "\n%s\n", p.bold.Sprint("Metadata:"))
		f.metadataTable(&b, p, result.Metadata)
	}
	return b.String(), nil
}

func (f *Formatter) fieldsTable(b *strings.Builder, p palette, result *crosscheck.CrossCheckResult) {
	t := newTable(p, "Field", "Value", "Confidence")
	pd := result.PassportData
	for _, field := range displayOrder {
		conf := "-"
		if c, ok := result.FieldConfidences[field]; ok {
			conf = fmt.Sprintf("%.0f%%", c*100)
		}
		t.row(plain(field.Label()), valueCell(passportValue(pd, field)), plain(conf))
	}
	t.render(b)
}

func (f *Formatter) discrepancyTable(b *strings.Builder, p palette, discrepancies []crosscheck.FieldDiscrepancy) {
	t := newTable(p, "Field", "Severity", "MRZ Value", "VLM Value", "Recommended")
	for _, d := range discrepancies {
		t.row(
			plain(d.FieldName.String()),
			cell{text: string(d.Severity), color: p.severity(d.Severity)},
			valueCell(d.MRZValue),
			valueCell(d.VLMValue),
			valueCell(d.RecommendedValue),
		)
	}
	t.render(b)
}

func (f *Formatter) metadataTable(b *strings.Builder, p palette, md *crosscheck.ProcessingMetadata) {
	t := newTable(p, "Property", "Value")
	t.row(plain("Total Duration"), plain(fmt.Sprintf("%dms", md.ExtractionDurationMs)))
	if md.MRZDurationMs != nil {
		t.row(plain("MRZ Duration"), plain(fmt.Sprintf("%dms", *md.MRZDurationMs)))
	}
	if md.VLMDurationMs != nil {
		t.row(plain("VLM Duration"), plain(fmt.Sprintf("%dms", *md.VLMDurationMs)))
	}
	if md.VLMModel != "" {
		t.row(plain("VLM Model"), plain(md.VLMModel))
	}
	t.row(plain("Timestamp"), plain(md.Timestamp.UTC().Format(time.RFC3339Nano)))
	t.render(b)
}

func passportValue(pd *passport.PassportData, field crosscheck.Field) *string {
	switch field {
	case crosscheck.FieldSurname:
		return pd.Surname
	case crosscheck.FieldGivenNames:
		return pd.GivenNames
	case crosscheck.FieldDateOfBirth:
		return isoDate(pd.DateOfBirth)
	case crosscheck.FieldNationality:
		return pd.Nationality
	case crosscheck.FieldPassportNumber:
		return pd.PassportNumber
	case crosscheck.FieldExpiryDate:
		return isoDate(pd.ExpiryDate)
	case crosscheck.FieldSex:
		return pd.Sex
	case crosscheck.FieldPlaceOfBirth:
		return pd.PlaceOfBirth
	default:
		return nil
	}
}

func isoDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// cell is one table cell. Widths are computed on the plain text so color
// codes do not skew alignment.
type cell struct {
	text  string
	color *color.Color
	dim   bool
}

func plain(s string) cell {
	return cell{text: s}
}

func valueCell(s *string) cell {
	if s == nil || *s == "" {
		return cell{text: "-", dim: true}
	}
	return cell{text: *s}
}

type table struct {
	p      palette
	header []string
	rows   [][]cell
}

func newTable(p palette, header ...string) *table {
	return &table{p: p, header: header}
}

func (t *table) row(cells ...cell) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(b *strings.Builder) {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range t.rows {
		for i, c := range r {
			widths[i] = max(widths[i], utf8.RuneCountInString(c.text))
		}
	}

	for i, h := range t.header {
		b.WriteString(t.p.bold.Sprint(t.padCol(h, widths, i)))
		b.WriteString(sep(i, len(widths)))
	}
	for i, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		b.WriteString(sep(i, len(widths)))
	}
	for _, r := range t.rows {
		for i, c := range r {
			text := t.padCol(c.text, widths, i)
			switch {
			case c.color != nil:
				text = c.color.Sprint(text)
			case c.dim:
				text = t.p.dim.Sprint(text)
			}
			b.WriteString(text)
			b.WriteString(sep(i, len(widths)))
		}
	}
}

func pad(s string, width int) string {
	if width <= 0 {
		return s
	}
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}

func (t *table) padCol(s string, widths []int, i int) string {
	if i == len(widths)-1 {
		return s
	}
	return pad(s, widths[i])
}

func sep(i, n int) string {
	if i == n-1 {
		return "\n"
	}
	return "  "
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
