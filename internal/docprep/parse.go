// Package docprep implements C2: parse source documents into plain text,
// then chunk and tag them with RBAC metadata (spec §4.2).
package docprep

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/ledongthuc/pdf"
)

// Format identifies a supported source document format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
)

// Parse flattens a source document of the given format to plain text.
// CSV is flattened to row-delimited sentences, matching spec §4.2's
// "table-oriented CSV... row-delimited sentences for CSV".
func Parse(format Format, raw []byte) (string, error) {
	switch format {
	case FormatText:
		return string(raw), nil
	case FormatCSV:
		return parseCSV(raw)
	case FormatMarkdown:
		return parseMarkdown(raw), nil
	case FormatPDF:
		return parsePDF(raw)
	default:
		return "", fmt.Errorf("docprep: unsupported format %q", format)
	}
}

func parseCSV(raw []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("docprep: parse csv: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	header := rows[0]
	var b strings.Builder
	for _, row := range rows[1:] {
		var fields []string
		for i, cell := range row {
			name := fmt.Sprintf("field_%d", i)
			if i < len(header) {
				name = header[i]
			}
			fields = append(fields, fmt.Sprintf("%s: %s", name, cell))
		}
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString(".\n")
	}
	return b.String(), nil
}

func parseMarkdown(raw []byte) string {
	doc := markdown.Parse(raw, nil)
	var b strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf, ok := node.(*ast.Text); ok {
			b.Write(leaf.Literal)
			b.WriteString(" ")
		}
		if _, ok := node.(*ast.Paragraph); ok {
			b.WriteString("\n\n")
		}
		return ast.GoToNext
	})
	return b.String()
}

func parsePDF(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("docprep: parse pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}
