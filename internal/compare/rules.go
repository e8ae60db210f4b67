package compare

import "regexp"

// Rule is one explicit contradiction check. It fires when a candidate
// clause of Category matches Candidate and at least one reference clause of
// the same category matches Reference. Rules are data, not inference: the
// table below is the default and callers may supply their own.
type Rule struct {
	Category    string
	Description string
	Candidate   *regexp.Regexp
	Reference   *regexp.Regexp
}

// RequiredCategory names a clause category every compliant policy must
// contain. Order is significant: missing entries are reported in the order
// declared here.
type RequiredCategory struct {
	Category    string
	Description string
}

// DefaultRules covers the GDPR-flavored contradictions the service ships
// with. Patterns match against lowercased text.
func DefaultRules() []Rule {
	return []Rule{
		{
			Category:    "data-retention",
			Description: "Candidate asserts an unbounded retention period; reference requires a retention bound.",
			Candidate:   regexp.MustCompile(`indefinite|indefinitely|permanent|forever|no (?:time )?limit|as long as we (?:deem|see)`),
			Reference:   regexp.MustCompile(`no longer than|maximum|at most|not exceed|retention period|within \d+`),
		},
		{
			Category:    "consent",
			Description: "Candidate relies on implied or default consent; reference requires explicit consent.",
			Candidate:   regexp.MustCompile(`implied consent|consent is assumed|pre-ticked|opt-out|automatically enrolled`),
			Reference:   regexp.MustCompile(`explicit consent|freely given|opt-in|unambiguous`),
		},
		{
			Category:    "breach-notification",
			Description: "Candidate disclaims or defers breach notification; reference mandates prompt notification.",
			Candidate:   regexp.MustCompile(`no obligation to notify|not (?:be )?notif|at (?:our|its) (?:sole )?discretion|when convenient`),
			Reference:   regexp.MustCompile(`72 hours|without undue delay|must notify|shall notify`),
		},
		{
			Category:    "data-erasure",
			Description: "Candidate refuses deletion; reference grants a right to erasure.",
			Candidate:   regexp.MustCompile(`cannot be deleted|will not (?:be )?delete|no deletion|retain(?:ed)? indefinitely`),
			Reference:   regexp.MustCompile(`right to erasure|right to be forgotten|must (?:be )?delete|erase`),
		},
	}
}

// DefaultRequiredCategories is the required-clause checklist applied to
// every candidate policy.
func DefaultRequiredCategories() []RequiredCategory {
	return []RequiredCategory{
		{"dpo-contact", "Data Protection Officer contact details."},
		{"consent-withdrawal", "Explicit consent withdrawal mechanism."},
		{"data-retention", "Defined data retention period."},
		{"breach-notification", "Breach notification commitment."},
	}
}
