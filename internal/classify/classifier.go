// Package classify maps policy text segments onto clause categories.
// Classification is deterministic and total: every segment maps to exactly
// one category or to domain.CategoryUncategorized.
package classify

import (
	"strings"

	"github.com/arca-compliance/backend/internal/domain"
)

// Classifier is the pluggable segment classification capability.
// Implementations must be deterministic: identical input always yields an
// identical category.
type Classifier interface {
	Classify(segment string) string
}

// rule matches a segment when any of its keywords occurs in the lowercased
// text. Rules are evaluated in declaration order; the first hit wins, which
// keeps classification deterministic.
type rule struct {
	category string
	keywords []string
}

// KeywordClassifier is the default Classifier. It recognizes the
// GDPR-flavored categories the comparison rule table ships with; categories
// are an open enumeration, so callers may extend the rule list.
type KeywordClassifier struct {
	rules []rule
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		rules: []rule{
			{"dpo-contact", []string{"data protection officer", "dpo"}},
			{"consent-withdrawal", []string{"withdraw consent", "withdrawal of consent", "revoke consent"}},
			{"consent", []string{"consent", "opt-in", "opt-out"}},
			{"data-retention", []string{"retention", "retain", "stored for", "storage period"}},
			{"breach-notification", []string{"breach", "security incident", "notify the supervisory"}},
			{"data-erasure", []string{"erasure", "right to be forgotten", "delete your data", "deletion"}},
			{"data-sharing", []string{"third party", "third-party", "share your data", "processor"}},
			{"security", []string{"encryption", "encrypted", "access control", "pseudonymisation"}},
		},
	}
}

func (c *KeywordClassifier) Classify(segment string) string {
	text := strings.ToLower(segment)
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category
			}
		}
	}
	return domain.CategoryUncategorized
}
