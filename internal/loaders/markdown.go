package loaders

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/scribehq/scribe/internal/core/domain"
)

// MarkdownLoader handles Markdown using the goldmark AST. Headings
// delimit sections; a document without headings yields one section.
type MarkdownLoader struct{}

func (*MarkdownLoader) Load(content []byte, _ string) ([]domain.Section, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(content))

	type region struct {
		title string
		parts []string
	}

	current := &region{}
	var regions []*region

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok {
			if current.title != "" || len(current.parts) > 0 {
				regions = append(regions, current)
			}
			current = &region{title: markdownText(heading, content)}
			continue
		}
		if t := markdownText(n, content); t != "" {
			current.parts = append(current.parts, t)
		}
	}
	if current.title != "" || len(current.parts) > 0 {
		regions = append(regions, current)
	}

	var sections []domain.Section
	for _, reg := range regions {
		text := strings.Join(reg.parts, "\n\n")
		if reg.title != "" {
			if text == "" {
				text = reg.title
			} else {
				text = reg.title + "\n\n" + text
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		metadata := map[string]any{"page": len(sections) + 1}
		if reg.title != "" {
			metadata["section"] = reg.title
		}
		sections = append(sections, domain.Section{Content: text, Metadata: metadata})
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("markdown document has no text content: %w", domain.ErrInvalidInput)
	}
	return sections, nil
}

// markdownText extracts the plain text of a goldmark AST node.
func markdownText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	if buf.Len() == 0 {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			} else {
				buf.WriteString(markdownText(c, src))
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
