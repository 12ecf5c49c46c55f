package loaders

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/scribehq/scribe/internal/core/domain"
)

// csvBatchSize groups data rows so sections stay a manageable size.
const csvBatchSize = 20

// CSVLoader handles CSV files. The first row is treated as headers and
// each batch of rows becomes one section of "header: value" lines.
type CSVLoader struct{}

func (*CSVLoader) Load(content []byte, _ string) ([]domain.Section, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w: %w", domain.ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv document: %w", domain.ErrInvalidInput)
	}

	headers := records[0]
	dataRows := records[1:]

	if len(dataRows) == 0 {
		return []domain.Section{
			{
				Content:  "Headers: " + strings.Join(headers, ", "),
				Metadata: map[string]any{"page": 1},
			},
		}, nil
	}

	var sections []domain.Section
	for start := 0; start < len(dataRows); start += csvBatchSize {
		end := min(start+csvBatchSize, len(dataRows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")
		for _, row := range dataRows[start:end] {
			for j, cell := range row {
				if j > 0 {
					text.WriteString(", ")
				}
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
			}
			text.WriteString("\n")
		}

		sections = append(sections, domain.Section{
			Content: text.String(),
			Metadata: map[string]any{
				"page": len(sections) + 1,
				// 1-indexed data row positions, header excluded.
				"row_start": start + 1,
				"row_end":   end,
			},
		})
	}

	return sections, nil
}
