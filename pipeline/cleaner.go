package pipeline

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/quickrag/core"
	"golang.org/x/text/unicode/norm"
)

// Passage and page separators produced by the cleaner and consumed by the splitter.
const (
	PassageSeparator = "\n\n"
	PageSeparator    = "\f"
)

// DocumentCleaner normalizes extracted text:
//   - Unicode is converted to NFC
//   - runs of horizontal whitespace collapse to one space and lines are trimmed
//   - empty lines are removed; a run of them becomes one passage break
//   - pages (form feeds) are kept, empty pages dropped
//
// The result is a pure function of the input. Documents that end up empty
// are dropped.
type DocumentCleaner struct{}

var _ Processor = DocumentCleaner{}

// NewDocumentCleaner creates a cleaner.
func NewDocumentCleaner() DocumentCleaner {
	return DocumentCleaner{}
}

// Spec implements Component.
func (DocumentCleaner) Spec() ComponentSpec {
	return ComponentSpec{
		Type: "pipeline.DocumentCleaner",
		Params: map[string]any{
			"remove_empty_lines":       true,
			"remove_extra_whitespaces": true,
			"unicode_normalization":    "NFC",
		},
	}
}

// Process implements Processor.
func (c DocumentCleaner) Process(ctx context.Context, docs []*core.Document) ([]*core.Document, error) {
	out := make([]*core.Document, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := CleanText(doc.Content)
		if text == "" {
			continue
		}
		cleaned := doc.Clone()
		cleaned.Content = text
		cleaned.Embedding = nil
		cleaned.ID = core.DocumentID(cleaned.Content, cleaned.Meta)
		out = append(out, cleaned)
	}
	return out, nil
}

// CleanText applies the cleaner rules to a single text.
func CleanText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var pages []string
	for _, page := range strings.Split(text, PageSeparator) {
		if cleaned := cleanPage(page); cleaned != "" {
			pages = append(pages, cleaned)
		}
	}
	return strings.Join(pages, PageSeparator)
}

func cleanPage(page string) string {
	var (
		passages []string
		current  []string
	)
	flush := func() {
		if len(current) > 0 {
			passages = append(passages, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(page, "\n") {
		line = collapseSpaces(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return strings.Join(passages, PassageSeparator)
}

// collapseSpaces trims line and replaces each run of whitespace with one space.
func collapseSpaces(line string) string {
	return strings.Join(strings.FieldsFunc(line, unicode.IsSpace), " ")
}
