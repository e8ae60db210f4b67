// Package segment splits policy text into candidate clauses. Both the
// ingestion pipeline and the comparison engine use it, so a document
// compared against itself always segments identically.
package segment

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// Paragraphs splits text on blank lines and drops empty blocks.
func Paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(strings.ReplaceAll(block, "\n", " "))
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}

// Segments returns sentence-level segments in document order. Paragraph
// boundaries are honored first, then sentences within each paragraph.
func Segments(text string) ([]string, error) {
	var segments []string
	for _, para := range Paragraphs(text) {
		doc, err := prose.NewDocument(para,
			prose.WithTagging(false),
			prose.WithExtraction(false),
		)
		if err != nil {
			return nil, err
		}
		for _, sent := range doc.Sentences() {
			s := strings.TrimSpace(sent.Text)
			if s != "" {
				segments = append(segments, s)
			}
		}
	}
	return segments, nil
}
