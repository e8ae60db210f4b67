package corpus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arca-compliance/backend/internal/domain"
)

func clause(id, doc, category, text string, severity domain.Severity) domain.ClauseRecord {
	return domain.ClauseRecord{
		ClauseID:         id,
		SourceDocumentID: doc,
		Category:         category,
		NormalizedText:   text,
		Severity:         severity,
	}
}

func collect(snap *Snapshot, category string) []domain.ClauseRecord {
	var out []domain.ClauseRecord
	for rec := range snap.Lookup(category) {
		out = append(out, rec)
	}
	return out
}

func TestIndex_MergeVersionsStrictlyIncrease(t *testing.T) {
	idx := NewIndex()

	v1, err := idx.Merge("doc-1", []domain.ClauseRecord{clause("c1", "doc-1", "consent", "a", domain.SeverityLow)})
	require.NoError(t, err)
	v2, err := idx.Merge("doc-2", []domain.ClauseRecord{clause("c2", "doc-2", "consent", "b", domain.SeverityLow)})
	require.NoError(t, err)
	v3, err := idx.Merge("doc-3", nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), v1)
	assert.Equal(t, uint64(2), v2)
	assert.Equal(t, uint64(3), v3)
}

func TestIndex_MergeValidation(t *testing.T) {
	idx := NewIndex()

	_, err := idx.Merge("", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = idx.Merge("doc-1", []domain.ClauseRecord{{ClauseID: "", Category: "consent"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSnapshot_EmptyCorpus(t *testing.T) {
	idx := NewIndex()
	snap := idx.Snapshot()

	assert.Equal(t, uint64(0), snap.Version())
	assert.Equal(t, 0, snap.ClauseCount())
	assert.Empty(t, collect(snap, "consent"))
}

func TestSnapshot_IsolatedFromLaterMerges(t *testing.T) {
	idx := NewIndex()
	_, err := idx.Merge("doc-1", []domain.ClauseRecord{clause("c1", "doc-1", "consent", "a", domain.SeverityLow)})
	require.NoError(t, err)

	snap := idx.Snapshot()
	require.Equal(t, uint64(1), snap.Version())
	require.Len(t, collect(snap, "consent"), 1)

	_, err = idx.Merge("doc-2", []domain.ClauseRecord{clause("c2", "doc-2", "consent", "b", domain.SeverityLow)})
	require.NoError(t, err)

	// The earlier snapshot still sees exactly one clause.
	assert.Len(t, collect(snap, "consent"), 1)
	assert.Equal(t, uint64(1), snap.Version())

	fresh := idx.Snapshot()
	assert.Len(t, collect(fresh, "consent"), 2)
	assert.Equal(t, uint64(2), fresh.Version())
}

func TestSnapshot_LookupInsertionOrder(t *testing.T) {
	idx := NewIndex()
	for i := 0; i < 5; i++ {
		_, err := idx.Merge(fmt.Sprintf("doc-%d", i), []domain.ClauseRecord{
			clause(fmt.Sprintf("c%d", i), fmt.Sprintf("doc-%d", i), "data-retention", fmt.Sprintf("text %d", i), domain.SeverityLow),
		})
		require.NoError(t, err)
	}

	recs := collect(idx.Snapshot(), "data-retention")
	require.Len(t, recs, 5)
	for i, rec := range recs {
		assert.Equal(t, fmt.Sprintf("c%d", i), rec.ClauseID)
	}
}

func TestSnapshot_LookupRestartable(t *testing.T) {
	idx := NewIndex()
	_, err := idx.Merge("doc-1", []domain.ClauseRecord{
		clause("c1", "doc-1", "consent", "a", domain.SeverityLow),
		clause("c2", "doc-1", "consent", "b", domain.SeverityLow),
	})
	require.NoError(t, err)

	snap := idx.Snapshot()
	seq := snap.Lookup("consent")

	first := 0
	for range seq {
		first++
		break // early exit must not poison the sequence
	}
	second := 0
	for range seq {
		second++
	}

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestIndex_RemergeSupersedes(t *testing.T) {
	idx := NewIndex()
	_, err := idx.Merge("doc-1", []domain.ClauseRecord{clause("old", "doc-1", "consent", "old text", domain.SeverityLow)})
	require.NoError(t, err)

	before := idx.Snapshot()

	_, err = idx.Merge("doc-1", []domain.ClauseRecord{clause("new", "doc-1", "consent", "new text", domain.SeverityLow)})
	require.NoError(t, err)

	after := idx.Snapshot()
	recs := collect(after, "consent")
	require.Len(t, recs, 1)
	assert.Equal(t, "new", recs[0].ClauseID)

	// The pre-revision snapshot still serves the superseded record.
	old := collect(before, "consent")
	require.Len(t, old, 1)
	assert.Equal(t, "old", old[0].ClauseID)

	assert.Equal(t, 1, after.DocumentCount())
}
