package loaders

import (
	"fmt"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/scribehq/scribe/internal/core/domain"
)

// PDFLoader handles PDF files, producing one section per page.
type PDFLoader struct{}

func (*PDFLoader) Load(content []byte, _ string) ([]domain.Section, error) {
	// The pdf library wants a ReadSeeker with a known size, so the
	// upload goes through a temp file.
	tmp, err := os.CreateTemp("", "scribe-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w: %w", domain.ErrInvalidInput, err)
	}
	defer f.Close()

	var sections []domain.Section
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // Skip pages the extractor cannot read
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sections = append(sections, domain.Section{
			Content:  text,
			Metadata: map[string]any{"page": i},
		})
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("pdf has no extractable text: %w", domain.ErrInvalidInput)
	}
	return sections, nil
}
