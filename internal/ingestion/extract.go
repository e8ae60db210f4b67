package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arca-compliance/backend/internal/domain"
)

// Extractor turns a raw upload into plain policy text. Implementations are
// selected by filename extension.
type Extractor interface {
	Extract(filename string, content []byte) (string, error)
}

var whitespaceRE = regexp.MustCompile(`[ \t]+`)

// TextExtractor handles .txt uploads. Exported policy text frequently
// arrives with embedded HTML markup; when the blob looks like markup the
// extractor strips it before normalization.
type TextExtractor struct{}

func (TextExtractor) Extract(_ string, content []byte) (string, error) {
	text := string(content)
	if looksLikeHTML(text) {
		stripped, err := stripHTML(text)
		if err == nil && stripped != "" {
			text = stripped
		}
	}
	return normalizeText(text), nil
}

func looksLikeHTML(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<html") ||
		strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<p>") ||
		strings.Contains(lower, "<div")
}

func stripHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var sb strings.Builder
	doc.Find("p, li, h1, h2, h3, h4, td").Each(func(i int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" {
			sb.WriteString(t)
			sb.WriteString("\n\n")
		}
	})
	if sb.Len() == 0 {
		return strings.TrimSpace(doc.Find("body").Text()), nil
	}
	return strings.TrimSpace(sb.String()), nil
}

// DocxExtractor reads word/document.xml out of the DOCX zip container and
// joins paragraph runs with blank lines so paragraph boundaries survive
// segmentation.
type DocxExtractor struct{}

type docxDocument struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxText `xml:"t"`
}

type docxText struct {
	Content string `xml:",chardata"`
}

func (DocxExtractor) Extract(filename string, content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a valid docx archive", domain.ErrValidation, filename)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: opening document.xml: %v", domain.ErrTransientIngest, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: reading document.xml: %v", domain.ErrTransientIngest, err)
		}

		var doc docxDocument
		if err := xml.Unmarshal(raw, &doc); err != nil {
			return "", fmt.Errorf("%w: %s has malformed document.xml", domain.ErrValidation, filename)
		}

		var sb strings.Builder
		for i, para := range doc.Body.Paragraphs {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			for _, run := range para.Runs {
				for _, t := range run.Text {
					sb.WriteString(t.Content)
				}
			}
		}
		return normalizeText(sb.String()), nil
	}

	return "", fmt.Errorf("%w: %s contains no document.xml", domain.ErrValidation, filename)
}

// PdfExtractor pulls literal text strings out of uncompressed PDF content
// streams. It is best effort: compressed streams yield no text, which
// surfaces as an empty-document failure rather than a crash.
type PdfExtractor struct{}

var pdfTextRE = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*T[jJ]`)

func (PdfExtractor) Extract(filename string, content []byte) (string, error) {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return "", fmt.Errorf("%w: %s is not a valid pdf", domain.ErrValidation, filename)
	}

	var sb strings.Builder
	for _, m := range pdfTextRE.FindAllSubmatch(content, -1) {
		sb.WriteString(unescapePDFString(string(m[1])))
		sb.WriteString(" ")
	}
	return normalizeText(sb.String()), nil
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "",
	)
	return replacer.Replace(s)
}

// normalizeText collapses runs of spaces and trims each line while keeping
// blank lines, which the segmenter treats as paragraph boundaries.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRE.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractorFor maps an already-validated extension to its extractor.
func extractorFor(ext string) Extractor {
	switch ext {
	case "pdf":
		return PdfExtractor{}
	case "docx":
		return DocxExtractor{}
	default:
		return TextExtractor{}
	}
}
