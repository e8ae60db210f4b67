package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/arca-compliance/backend/internal/classify"
	"github.com/arca-compliance/backend/internal/domain"
)

// authorityRE recognizes regulation citations inside clause text. The
// citation, when present, is what a comparison conflict later cites.
// The number tail never consumes a bare trailing "." so sentence-final
// citations stay clean ("per GDPR Article 33." cites "GDPR Article 33").
var authorityRE = regexp.MustCompile(`(?i)\b(GDPR|CCPA|HIPAA|LGPD|PIPEDA|ISO[ /]?27001)\b(?:[ ,]*(Article|Art\.?|Section|Sec\.?|§)\s*([0-9]+(?:[.()]?[0-9a-zA-Z()]+)*))?`)

// categorySeverity grades how serious a contradiction of a reference clause
// in this category is. Unlisted categories default to low.
var categorySeverity = map[string]domain.Severity{
	"data-retention":      domain.SeverityMedium,
	"consent":             domain.SeverityHigh,
	"consent-withdrawal":  domain.SeverityMedium,
	"breach-notification": domain.SeverityHigh,
	"data-erasure":        domain.SeverityHigh,
	"data-sharing":        domain.SeverityMedium,
	"security":            domain.SeverityMedium,
	"dpo-contact":         domain.SeverityLow,
}

// buildClauses classifies extracted segments into reference clause records.
// Segments the classifier cannot place are dropped: an uncategorized clause
// can never be matched by a category lookup.
func buildClauses(documentID string, segments []string, classifier classify.Classifier) []domain.ClauseRecord {
	var clauses []domain.ClauseRecord
	for _, seg := range segments {
		category := classifier.Classify(seg)
		if category == domain.CategoryUncategorized {
			continue
		}

		severity, ok := categorySeverity[category]
		if !ok {
			severity = domain.SeverityLow
		}

		clauses = append(clauses, domain.ClauseRecord{
			ClauseID:         uuid.New().String(),
			SourceDocumentID: documentID,
			Category:         category,
			NormalizedText:   normalizeClauseText(seg),
			Authority:        extractAuthority(seg),
			Severity:         severity,
		})
	}
	return clauses
}

func extractAuthority(text string) string {
	m := authorityRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	regulation := strings.ToUpper(m[1])
	if m[3] == "" {
		return regulation
	}

	unit := "Section"
	if strings.HasPrefix(strings.ToLower(m[2]), "art") {
		unit = "Article"
	}
	return fmt.Sprintf("%s %s %s", regulation, unit, m[3])
}

func normalizeClauseText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
