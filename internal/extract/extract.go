// Package extract converts uploaded document payloads into page-numbered text.
//
// Binary formats (PDF, PPTX, DOCX) are extracted by an upstream collaborator;
// this package only handles payloads the service can read directly and the
// pre-extracted page form those collaborators deliver.
package extract

import "strings"

// Page is a unit of extracted document text with its page or slide number.
type Page struct {
	Text   string `json:"text"`
	Number int    `json:"page_number"`
}

// FromText wraps a plain-text payload as a single page.
// Whitespace-only payloads produce no pages.
func FromText(text string) []Page {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []Page{{Text: trimmed, Number: 1}}
}

// Normalize drops empty pages and assigns sequential numbers to pages
// that arrived without one. Page order is preserved.
func Normalize(pages []Page) []Page {
	result := make([]Page, 0, len(pages))
	next := 1
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		number := p.Number
		if number <= 0 {
			number = next
		}
		result = append(result, Page{Text: text, Number: number})
		if number >= next {
			next = number + 1
		}
	}
	return result
}
