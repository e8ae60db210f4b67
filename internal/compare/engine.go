// Package compare implements the deterministic compliance comparison
// engine. Compare is a pure function of the candidate text and a corpus
// snapshot: identical inputs always produce an identical result.
package compare

import (
	"fmt"
	"strings"

	"github.com/arca-compliance/backend/internal/classify"
	"github.com/arca-compliance/backend/internal/corpus"
	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/internal/segment"
	"github.com/arca-compliance/backend/pkg/utils"
)

type Config struct {
	MaxTextBytes       int
	SeverityWeights    map[domain.Severity]int
	MissingWeight      int
	HighThreshold      int
	MediumThreshold    int
	RequiredCategories []RequiredCategory
	Rules              []Rule
}

func DefaultConfig() Config {
	return Config{
		MaxTextBytes: 256 << 10,
		SeverityWeights: map[domain.Severity]int{
			domain.SeverityLow:    10,
			domain.SeverityMedium: 20,
			domain.SeverityHigh:   35,
		},
		MissingWeight:      8,
		HighThreshold:      70,
		MediumThreshold:    30,
		RequiredCategories: DefaultRequiredCategories(),
		Rules:              DefaultRules(),
	}
}

type Engine struct {
	cfg        Config
	classifier classify.Classifier
	rulesByCat map[string][]Rule
}

func NewEngine(cfg Config, classifier classify.Classifier) *Engine {
	def := DefaultConfig()
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = def.MaxTextBytes
	}
	if len(cfg.SeverityWeights) == 0 {
		cfg.SeverityWeights = def.SeverityWeights
	}
	if cfg.MissingWeight <= 0 {
		cfg.MissingWeight = def.MissingWeight
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = def.MediumThreshold
	}
	if cfg.RequiredCategories == nil {
		cfg.RequiredCategories = def.RequiredCategories
	}
	if cfg.Rules == nil {
		cfg.Rules = def.Rules
	}

	rulesByCat := make(map[string][]Rule)
	for _, r := range cfg.Rules {
		rulesByCat[r.Category] = append(rulesByCat[r.Category], r)
	}

	return &Engine{
		cfg:        cfg,
		classifier: classifier,
		rulesByCat: rulesByCat,
	}
}

// Compare evaluates candidateText against the corpus snapshot. The result's
// RequestID derives from the inputs, so repeated calls with the same text
// and corpus version are byte-identical.
func (e *Engine) Compare(candidateText string, snap *corpus.Snapshot) (*domain.ComparisonResult, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: no corpus snapshot", domain.ErrCorpusUnavailable)
	}
	if strings.TrimSpace(candidateText) == "" {
		return nil, fmt.Errorf("%w: candidate text is empty", domain.ErrAnalysis)
	}
	if len(candidateText) > e.cfg.MaxTextBytes {
		return nil, fmt.Errorf("%w: candidate text exceeds %d bytes", domain.ErrAnalysis, e.cfg.MaxTextBytes)
	}

	segments, err := segment.Segments(candidateText)
	if err != nil {
		return nil, fmt.Errorf("%w: segmentation: %v", domain.ErrAnalysis, err)
	}

	present := make(map[string]bool)
	fired := make(map[string]bool)
	var conflicts []domain.Conflict
	score := 0

	for _, seg := range segments {
		category := e.classifier.Classify(seg)
		if category == domain.CategoryUncategorized {
			continue
		}
		present[category] = true

		lower := strings.ToLower(seg)
		for i, rule := range e.rulesByCat[category] {
			key := fmt.Sprintf("%s/%d", category, i)
			if fired[key] || !rule.Candidate.MatchString(lower) {
				continue
			}

			cited, ok := e.citedReference(snap, rule)
			if !ok {
				continue
			}

			fired[key] = true
			conflicts = append(conflicts, domain.Conflict{
				Category:       category,
				CitedAuthority: cited.Authority,
				Description:    rule.Description,
			})
			score += e.cfg.SeverityWeights[cited.Severity]
		}
	}

	var missing []domain.MissingClause
	for _, req := range e.cfg.RequiredCategories {
		if !present[req.Category] {
			missing = append(missing, domain.MissingClause{
				Category:    req.Category,
				Description: req.Description,
			})
		}
	}
	score += e.cfg.MissingWeight * len(missing)

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	requestID := utils.HashString(fmt.Sprintf("%d:%s", snap.Version(), candidateText))[:32]

	return &domain.ComparisonResult{
		RequestID:     requestID,
		RiskScore:     score,
		RiskLevel:     e.riskLevel(score),
		Conflicts:     conflicts,
		Missing:       missing,
		CorpusVersion: snap.Version(),
	}, nil
}

// citedReference picks the reference clause a conflict cites: the matching
// clause with the highest severity, earliest inserted on ties.
func (e *Engine) citedReference(snap *corpus.Snapshot, rule Rule) (domain.ClauseRecord, bool) {
	var best domain.ClauseRecord
	found := false
	for rec := range snap.Lookup(rule.Category) {
		if rule.Reference != nil && !rule.Reference.MatchString(rec.NormalizedText) {
			continue
		}
		if !found || rec.Severity.Rank() > best.Severity.Rank() {
			best = rec
			found = true
		}
	}
	return best, found
}

func (e *Engine) riskLevel(score int) domain.RiskLevel {
	switch {
	case score >= e.cfg.HighThreshold:
		return domain.RiskHigh
	case score >= e.cfg.MediumThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
