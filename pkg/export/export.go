package export

import (
	"fmt"
	"strings"
)

// Format names an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts a case-insensitive format name, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Document is a titled dataset with free-form summary lines.
type Document struct {
	Title   string
	Summary []string
	Data    Dataset
	// Highlight marks rows rendered shaded in PDF output.
	Highlight func(row map[string]string) bool
}

// Render encodes doc in the requested format.
func Render(format Format, doc Document) ([]byte, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter().Render(doc.Data)
	case FormatPDF:
		return NewPDFExporter().Render(doc)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
