package loaders

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/scribehq/scribe/internal/core/domain"
)

// HTMLLoader handles HTML documents, extracting readable text and the
// page title while skipping script, style, and navigation chrome.
type HTMLLoader struct{}

func (*HTMLLoader) Load(content []byte, _ string) ([]domain.Section, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w: %w", domain.ErrInvalidInput, err)
	}

	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}

	var paragraphs []string
	collectHTMLText(root, &paragraphs)

	text := strings.Join(paragraphs, "\n\n")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("html document has no text content: %w", domain.ErrInvalidInput)
	}

	metadata := map[string]any{"page": 1}
	if title := findElement(doc, "title"); title != nil {
		if t := nodeText(title); t != "" {
			metadata["title"] = t
		}
	}

	return []domain.Section{{Content: text, Metadata: metadata}}, nil
}

// collectHTMLText walks the node tree gathering block-level text.
func collectHTMLText(n *html.Node, paragraphs *[]string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "nav", "footer", "header":
			return
		case "p", "li", "td", "th", "blockquote", "pre",
			"h1", "h2", "h3", "h4", "h5", "h6":
			if t := nodeText(n); t != "" {
				*paragraphs = append(*paragraphs, t)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectHTMLText(c, paragraphs)
	}
}

// nodeText returns the concatenated text content of a node.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(sb.String())
}

// findElement returns the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
