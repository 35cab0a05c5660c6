package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/localrivet/recursum/internal/errortypes"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     Parser
	}{
		{"notes.txt", &TextParser{}},
		{"README.MD", &MarkdownParser{}},
		{"data.csv", &CSVParser{}},
		{"page.htm", &HTMLParser{}},
		{"paper.pdf", &PDFParser{}},
		{"report.docx", &DOCXParser{}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p, err := ForFile(tt.filename)
			if err != nil {
				t.Fatalf("ForFile() error = %v", err)
			}
			if got, want := typeName(p), typeName(tt.want); got != want {
				t.Errorf("ForFile(%q) = %s, want %s", tt.filename, got, want)
			}
			if !IsSupportedExtension(tt.filename) {
				t.Errorf("expected %q to be supported", tt.filename)
			}
		})
	}

	if _, err := ForFile("image.png"); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for unsupported extension, got %v", err)
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *TextParser:
		return "text"
	case *MarkdownParser:
		return "markdown"
	case *CSVParser:
		return "csv"
	case *HTMLParser:
		return "html"
	case *PDFParser:
		return "pdf"
	case *DOCXParser:
		return "docx"
	}
	return "unknown"
}

func TestTextParser(t *testing.T) {
	input := "First paragraph\ncontinues here.\n\n\n  \nSecond paragraph.\n"

	doc, err := (&TextParser{}).Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}

	want := "First paragraph\ncontinues here.\n\nSecond paragraph."
	if got := doc.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestTextParser_Empty(t *testing.T) {
	doc, err := (&TextParser{}).Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 0 || doc.Text() != "" {
		t.Errorf("expected empty document, got %+v", doc)
	}
}

func TestMarkdownParser(t *testing.T) {
	input := `# Title

Intro with **bold** text.

## Section A

- one
- two

## Section B

` + "```" + `
code line
` + "```" + `
`
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Title" {
		t.Errorf("expected title from first heading, got %q", doc.Title)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %+v", len(doc.Sections), doc.Sections)
	}

	tests := []struct {
		heading string
		text    string
	}{
		{"Title", "Intro with bold text."},
		{"Section A", "one\ntwo"},
		{"Section B", "code line"},
	}
	for i, tt := range tests {
		s := doc.Sections[i]
		if s.Heading != tt.heading || s.Text != tt.text {
			t.Errorf("section %d = {%q %q}, want {%q %q}", i, s.Heading, s.Text, tt.heading, tt.text)
		}
	}

	if strings.Count(doc.Text(), "Intro with bold text.") != 1 {
		t.Errorf("expected paragraph text exactly once, got %q", doc.Text())
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	doc, err := (&MarkdownParser{}).Parse(strings.NewReader("Just text.\n\nMore text."), "plain.markdown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "plain" {
		t.Errorf("expected filename title, got %q", doc.Title)
	}
	if got := doc.Text(); got != "Just text.\n\nMore text." {
		t.Errorf("Text() = %q", got)
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>Page Title</title><style>p{}</style></head>
<body>
<nav><p>menu</p></nav>
<h1>Heading</h1>
<p>First   paragraph
 text.</p>
<script>var x = 1;</script>
<ul><li>item</li></ul>
</body></html>`

	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Page Title" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}

	want := "Heading\n\nFirst paragraph text.\n\nitem"
	if got := doc.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestCSVParser(t *testing.T) {
	var input strings.Builder
	input.WriteString("name,age\n")
	for i := 0; i < 25; i++ {
		input.WriteString("alice,30\n")
	}

	doc, err := (&CSVParser{}).Parse(strings.NewReader(input.String()), "people.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[0].Heading != "Rows 2-21" || doc.Sections[1].Heading != "Rows 22-26" {
		t.Errorf("unexpected headings %q, %q", doc.Sections[0].Heading, doc.Sections[1].Heading)
	}
	if !strings.HasPrefix(doc.Sections[0].Text, "name: alice, age: 30") {
		t.Errorf("unexpected row rendering %q", doc.Sections[0].Text)
	}
}

func TestBinaryParsers_RejectGarbage(t *testing.T) {
	for _, name := range []string{"broken.pdf", "broken.docx"} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader("definitely not a binary document"), name)
			if !errortypes.IsValidationError(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.md")
	if err := os.WriteFile(path, []byte("# Doc\n\nBody."), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if doc.Text() != "Doc\n\nBody." {
		t.Errorf("Text() = %q", doc.Text())
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.txt")); !errortypes.IsValidationError(err) {
		t.Errorf("expected validation error for missing file, got %v", err)
	}
}
