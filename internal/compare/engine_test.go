package compare

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arca-compliance/backend/internal/classify"
	"github.com/arca-compliance/backend/internal/corpus"
	"github.com/arca-compliance/backend/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(DefaultConfig(), classify.NewKeywordClassifier())
}

// referenceCorpus builds an index holding one reference clause per rule
// category so the contradiction rules have something to cite.
func referenceCorpus(t *testing.T) *corpus.Index {
	t.Helper()
	idx := corpus.NewIndex()
	_, err := idx.Merge("ref-doc", []domain.ClauseRecord{
		{
			ClauseID:         "ref-retention",
			SourceDocumentID: "ref-doc",
			Category:         "data-retention",
			NormalizedText:   "personal data is kept for a retention period of no longer than twelve months",
			Authority:        "GDPR Article 5(1)(e)",
			Severity:         domain.SeverityMedium,
		},
		{
			ClauseID:         "ref-consent",
			SourceDocumentID: "ref-doc",
			Category:         "consent",
			NormalizedText:   "processing requires explicit consent freely given via opt-in",
			Authority:        "GDPR Article 7",
			Severity:         domain.SeverityHigh,
		},
		{
			ClauseID:         "ref-breach",
			SourceDocumentID: "ref-doc",
			Category:         "breach-notification",
			NormalizedText:   "we shall notify the supervisory authority of a breach within 72 hours",
			Authority:        "GDPR Article 33",
			Severity:         domain.SeverityHigh,
		},
	})
	require.NoError(t, err)
	return idx
}

const compliantPolicy = `Our data protection officer can be reached at dpo@example.com.

You may withdraw consent at any time through your account settings.

Personal data is stored for a retention period of no longer than six months.

In the event of a breach we shall notify the supervisory authority within 72 hours.`

func TestCompare_InputValidation(t *testing.T) {
	e := newTestEngine(t)
	snap := referenceCorpus(t).Snapshot()

	_, err := e.Compare("some policy text", nil)
	assert.ErrorIs(t, err, domain.ErrCorpusUnavailable)

	_, err = e.Compare("   \n\t ", snap)
	assert.ErrorIs(t, err, domain.ErrAnalysis)

	cfg := DefaultConfig()
	cfg.MaxTextBytes = 32
	small := NewEngine(cfg, classify.NewKeywordClassifier())
	_, err = small.Compare(strings.Repeat("data retention policy. ", 10), snap)
	assert.ErrorIs(t, err, domain.ErrAnalysis)
}

func TestCompare_CompliantPolicy(t *testing.T) {
	e := newTestEngine(t)
	snap := referenceCorpus(t).Snapshot()

	result, err := e.Compare(compliantPolicy, snap)
	require.NoError(t, err)

	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.Missing)
	assert.Equal(t, 0, result.RiskScore)
	assert.Equal(t, domain.RiskLow, result.RiskLevel)
	assert.Equal(t, snap.Version(), result.CorpusVersion)
	assert.Len(t, result.RequestID, 32)
}

func TestCompare_Deterministic(t *testing.T) {
	e := newTestEngine(t)
	snap := referenceCorpus(t).Snapshot()

	text := compliantPolicy + "\n\nWe retain backup copies indefinitely."

	first, err := e.Compare(text, snap)
	require.NoError(t, err)
	second, err := e.Compare(text, snap)
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
}

func TestCompare_RequestIDTracksCorpusVersion(t *testing.T) {
	e := newTestEngine(t)
	idx := referenceCorpus(t)

	before, err := e.Compare(compliantPolicy, idx.Snapshot())
	require.NoError(t, err)

	_, err = idx.Merge("another-doc", nil)
	require.NoError(t, err)

	after, err := e.Compare(compliantPolicy, idx.Snapshot())
	require.NoError(t, err)

	assert.NotEqual(t, before.RequestID, after.RequestID)
}

func TestCompare_RetentionConflict(t *testing.T) {
	e := newTestEngine(t)
	snap := referenceCorpus(t).Snapshot()

	policy := `Our data protection officer can be reached at dpo@example.com.

You may withdraw consent at any time.

We retain personal data indefinitely.

In the event of a breach we shall notify the supervisory authority within 72 hours.`

	result, err := e.Compare(policy, snap)
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "data-retention", result.Conflicts[0].Category)
	assert.Equal(t, "GDPR Article 5(1)(e)", result.Conflicts[0].CitedAuthority)
	assert.Empty(t, result.Missing)

	// One medium-severity reference contradicted, nothing missing.
	assert.Equal(t, 20, result.RiskScore)
	assert.Equal(t, domain.RiskLow, result.RiskLevel)
}

func TestCompare_MissingRequiredCategories(t *testing.T) {
	e := newTestEngine(t)
	snap := referenceCorpus(t).Snapshot()

	result, err := e.Compare("This website uses cookies to improve your experience.", snap)
	require.NoError(t, err)

	assert.Empty(t, result.Conflicts)
	require.Len(t, result.Missing, 4)
	assert.Equal(t, "dpo-contact", result.Missing[0].Category)
	assert.Equal(t, "consent-withdrawal", result.Missing[1].Category)
	assert.Equal(t, "data-retention", result.Missing[2].Category)
	assert.Equal(t, "breach-notification", result.Missing[3].Category)

	assert.Equal(t, 32, result.RiskScore)
	assert.Equal(t, domain.RiskMedium, result.RiskLevel)
}

func TestCompare_ScoreClampsAtHundred(t *testing.T) {
	e := newTestEngine(t)
	snap := referenceCorpus(t).Snapshot()

	policy := `We retain your data indefinitely.

Consent is assumed and boxes are pre-ticked by default.

We have no obligation to notify you of any breach.`

	result, err := e.Compare(policy, snap)
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 3)
	require.Len(t, result.Missing, 2)
	assert.Equal(t, 100, result.RiskScore)
	assert.Equal(t, domain.RiskHigh, result.RiskLevel)
}

func TestCompare_NoConflictWithoutReference(t *testing.T) {
	e := newTestEngine(t)
	empty := corpus.NewIndex().Snapshot()

	result, err := e.Compare("We retain personal data indefinitely.", empty)
	require.NoError(t, err)

	// A contradiction rule needs a reference clause to cite.
	assert.Empty(t, result.Conflicts)
	assert.Len(t, result.Missing, 3)
}

func TestCompare_CitesHighestSeverityReference(t *testing.T) {
	idx := corpus.NewIndex()
	_, err := idx.Merge("ref-doc", []domain.ClauseRecord{
		{
			ClauseID:         "ret-low",
			SourceDocumentID: "ref-doc",
			Category:         "data-retention",
			NormalizedText:   "a retention period applies to all records",
			Authority:        "Internal Policy 4",
			Severity:         domain.SeverityLow,
		},
		{
			ClauseID:         "ret-high",
			SourceDocumentID: "ref-doc",
			Category:         "data-retention",
			NormalizedText:   "retention period must not exceed six months",
			Authority:        "GDPR Article 5(1)(e)",
			Severity:         domain.SeverityHigh,
		},
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RequiredCategories = []RequiredCategory{}
	e := NewEngine(cfg, classify.NewKeywordClassifier())

	result, err := e.Compare("We retain personal data indefinitely.", idx.Snapshot())
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "GDPR Article 5(1)(e)", result.Conflicts[0].CitedAuthority)
	assert.Equal(t, 35, result.RiskScore)
}

func TestCompare_RuleFiresOncePerRequest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredCategories = []RequiredCategory{}
	e := NewEngine(cfg, classify.NewKeywordClassifier())
	snap := referenceCorpus(t).Snapshot()

	policy := `We retain personal data indefinitely.

Backups are also retained forever.`

	result, err := e.Compare(policy, snap)
	require.NoError(t, err)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, 20, result.RiskScore)
}
