package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvBatchSize is how many data rows go into one section.
const csvBatchSize = 20

// CSVParser handles CSV files. Rows are rendered as "header: value" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var b sectionBuilder
	if len(records) == 0 {
		return b.document(titleFromFilename(filename)), nil
	}

	headers := records[0]
	dataRows := records[1:]

	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}

		b.heading(fmt.Sprintf("Rows %d-%d", i+2, end+1), 0) // 1-indexed, skip header
		b.paragraph(text.String())
	}

	return b.document(titleFromFilename(filename)), nil
}
