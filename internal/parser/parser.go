// Package parser loads documents from disk or uploads into plain text for
// summarization. Headings are kept as section boundaries.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/localrivet/recursum/internal/errortypes"
)

// Document is a parsed file.
type Document struct {
	Title    string
	Sections []Section
}

// Section is a run of text under one heading. Heading is empty for text
// that precedes the first heading.
type Section struct {
	Heading string
	Text    string
	Page    int // 0 if N/A
}

// Text flattens the document, putting each heading on its own paragraph.
func (d *Document) Text() string {
	var parts []string
	for _, s := range d.Sections {
		if s.Heading != "" {
			parts = append(parts, s.Heading)
		}
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, errortypes.ValidationError(fmt.Errorf("unsupported file extension: %q", ext), "cannot parse file").
			WithField("filename", filename)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Parse picks a parser by filename and reads r with it.
func Parse(r io.Reader, filename string) (*Document, error) {
	p, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(r, filepath.Base(filename))
	if err != nil {
		return nil, errortypes.ValidationError(err, "failed to parse document").WithField("filename", filename)
	}
	return doc, nil
}

// ParseFile opens path and parses it by extension.
func ParseFile(path string) (*Document, error) {
	if _, err := ForFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errortypes.ValidationError(err, "failed to open document").WithField("path", path)
	}
	defer f.Close()
	return Parse(f, path)
}

// titleFromFilename strips the directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sectionBuilder accumulates paragraphs into sections, starting a new
// section at every heading.
type sectionBuilder struct {
	sections []Section
	current  Section
	text     strings.Builder
}

func (b *sectionBuilder) heading(title string, page int) {
	b.flush()
	b.current = Section{Heading: strings.TrimSpace(title), Page: page}
}

func (b *sectionBuilder) paragraph(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(t)
}

func (b *sectionBuilder) flush() {
	b.current.Text = b.text.String()
	if b.current.Heading != "" || b.current.Text != "" {
		b.sections = append(b.sections, b.current)
	}
	b.current = Section{}
	b.text.Reset()
}

func (b *sectionBuilder) document(title string) *Document {
	b.flush()
	return &Document{Title: title, Sections: b.sections}
}
