package loaders

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/scribehq/scribe/internal/core/domain"
)

// DOCXLoader handles Word documents, producing one section of
// paragraph text.
type DOCXLoader struct{}

func (*DOCXLoader) Load(content []byte, _ string) ([]domain.Section, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parsing docx: %w: %w", domain.ErrInvalidInput, err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := paragraphText(para); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	text := strings.Join(paragraphs, "\n\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("docx has no text content: %w", domain.ErrInvalidInput)
	}

	return []domain.Section{
		{
			Content:  text,
			Metadata: map[string]any{"page": 1},
		},
	}, nil
}

// paragraphText concatenates the text runs of one paragraph.
func paragraphText(para *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
