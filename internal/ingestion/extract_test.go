package ingestion

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arca-compliance/backend/internal/domain"
)

func TestTextExtractor_PlainText(t *testing.T) {
	text, err := TextExtractor{}.Extract("policy.txt", []byte("  First   line.  \n\nSecond line.\n"))
	require.NoError(t, err)
	assert.Equal(t, "First line.\n\nSecond line.", text)
}

func TestTextExtractor_StripsHTML(t *testing.T) {
	html := `<html><head><style>p { color: red; }</style></head>
<body>
<nav>Home | About</nav>
<p>Personal data is retained for 12 months.</p>
<p>You may withdraw consent at any time.</p>
<footer>Copyright</footer>
</body></html>`

	text, err := TextExtractor{}.Extract("policy.txt", []byte(html))
	require.NoError(t, err)

	assert.Contains(t, text, "retained for 12 months")
	assert.Contains(t, text, "withdraw consent")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "Home | About")
	assert.NotContains(t, text, "Copyright")
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDocxExtractor_ParagraphsAndRuns(t *testing.T) {
	content := buildDocx(t, `<?xml version="1.0"?>
<document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <body>
    <p><r><t>We retain personal data </t></r><r><t>for six months.</t></r></p>
    <p><r><t>Consent may be withdrawn at any time.</t></r></p>
  </body>
</document>`)

	text, err := DocxExtractor{}.Extract("policy.docx", content)
	require.NoError(t, err)
	assert.Equal(t, "We retain personal data for six months.\n\nConsent may be withdrawn at any time.", text)
}

func TestDocxExtractor_NotAZip(t *testing.T) {
	_, err := DocxExtractor{}.Extract("policy.docx", []byte("not an archive"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDocxExtractor_MissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = DocxExtractor{}.Extract("policy.docx", buf.Bytes())
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPdfExtractor_LiteralStrings(t *testing.T) {
	pdf := []byte(`%PDF-1.4
1 0 obj << /Length 80 >> stream
BT /F1 12 Tf (Data is retained for 24 months.) Tj ET
BT (Withdrawal of consent \(written\).) Tj ET
endstream endobj
%%EOF`)

	text, err := PdfExtractor{}.Extract("policy.pdf", pdf)
	require.NoError(t, err)
	assert.Contains(t, text, "retained for 24 months")
	assert.Contains(t, text, "Withdrawal of consent (written)")
}

func TestPdfExtractor_BadHeader(t *testing.T) {
	_, err := PdfExtractor{}.Extract("policy.pdf", []byte("plain text"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExtractorFor(t *testing.T) {
	assert.IsType(t, PdfExtractor{}, extractorFor("pdf"))
	assert.IsType(t, DocxExtractor{}, extractorFor("docx"))
	assert.IsType(t, TextExtractor{}, extractorFor("txt"))
}

func TestExtractAuthority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"gdpr article", "Per GDPR Article 17 you may request erasure.", "GDPR Article 17"},
		{"sentence-final citation", "Breaches are reported per GDPR Article 33.", "GDPR Article 33"},
		{"parenthesized subsection", "Storage limits follow GDPR Article 5(1)(e).", "GDPR Article 5(1)(e)"},
		{"sentence-final decimal", "Deletion rights per CCPA Section 1798.105.", "CCPA Section 1798.105"},
		{"gdpr art abbrev", "See GDPR Art. 33 for breach notification.", "GDPR Article 33"},
		{"ccpa section", "Under CCPA Section 1798.105 deletion applies.", "CCPA Section 1798.105"},
		{"section sign", "HIPAA § 164.404 requires notice.", "HIPAA Section 164.404"},
		{"bare regulation", "This policy follows LGPD requirements.", "LGPD"},
		{"no citation", "We keep data as long as needed.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAuthority(tt.text))
		})
	}
}
