package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor converts markdown payloads into pages using goldmark
// AST parsing. Each level-1 or level-2 heading starts a new page, which keeps
// guideline sections (logo usage, color palette, typography) separately
// addressable in search results.
type MarkdownExtractor struct {
	parser goldmark.Markdown
}

// NewMarkdownExtractor creates a markdown extractor with table support.
func NewMarkdownExtractor() *MarkdownExtractor {
	return &MarkdownExtractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Extract parses markdown content and returns one page per top-level section.
// Content before the first heading becomes its own page. Empty content
// returns no pages.
func (e *MarkdownExtractor) Extract(content []byte) []Page {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil
	}

	reader := text.NewReader(content)
	doc := e.parser.Parser().Parse(reader)

	var sections []string
	var current strings.Builder

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			sections = append(sections, current.String())
		}
		current.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level <= 2 {
				flush()
			}
			current.WriteString(extractTextFromNode(node, content))
			current.WriteString("\n")
			return ast.WalkSkipChildren, nil

		case *ast.Text:
			segment := node.Segment
			current.Write(segment.Value(content))
			return ast.WalkContinue, nil

		case *ast.String:
			current.Write(node.Value)
			return ast.WalkContinue, nil

		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				current.Write(line.Value(content))
			}
			return ast.WalkContinue, nil

		case *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				current.Write(line.Value(content))
			}
			return ast.WalkContinue, nil

		case *ast.Paragraph, *ast.List, *ast.ListItem:
			if current.Len() > 0 && !strings.HasSuffix(current.String(), "\n") {
				current.WriteString("\n")
			}
			return ast.WalkContinue, nil

		default:
			// Table extension nodes are identified by kind name since
			// goldmark registers them outside the core ast package.
			kindName := n.Kind().String()
			if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
				if current.Len() > 0 && !strings.HasSuffix(current.String(), "\n") {
					current.WriteString("\n")
				}
				current.WriteString(extractTableRowText(n, content))
				current.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}
	})

	flush()

	pages := make([]Page, 0, len(sections))
	for i, section := range sections {
		pages = append(pages, Page{Text: strings.TrimSpace(section), Number: i + 1})
	}
	return pages
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			segment := v.Segment
			textBuilder.Write(segment.Value(content))
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(textBuilder.String())
}

// extractTableRowText extracts text from a table row, joining cells with pipes.
func extractTableRowText(row ast.Node, content []byte) string {
	var rowBuilder strings.Builder
	cellCount := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if strings.Contains(node.Kind().String(), "TableCell") {
			cellText := extractTextFromNode(node, content)
			if cellCount > 0 {
				rowBuilder.WriteString(" | ")
			}
			rowBuilder.WriteString(cellText)
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return rowBuilder.String()
}
