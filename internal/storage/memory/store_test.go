package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arca-compliance/backend/internal/domain"
)

func TestStore_DocumentRoundTrip(t *testing.T) {
	s := NewStore()
	defer s.Close()

	base := time.Now()
	for i, id := range []string{"doc-b", "doc-a", "doc-c"} {
		doc := domain.Document{
			ID:          id,
			Filename:    id + ".txt",
			Status:      domain.StatusCompleted,
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.SaveDocument(&doc))
	}
	failed := domain.Document{ID: "doc-failed", Status: domain.StatusFailed, SubmittedAt: base}
	require.NoError(t, s.SaveDocument(&failed))

	docs, err := s.LoadCompletedDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// Submission order, failed documents excluded.
	assert.Equal(t, "doc-b", docs[0].ID)
	assert.Equal(t, "doc-a", docs[1].ID)
	assert.Equal(t, "doc-c", docs[2].ID)
}

func TestStore_ClausesAreCopied(t *testing.T) {
	s := NewStore()
	defer s.Close()

	clauses := []domain.ClauseRecord{
		{ClauseID: "c1", SourceDocumentID: "doc-1", Category: "consent", NormalizedText: "original"},
	}
	require.NoError(t, s.SaveClauses("doc-1", clauses))

	clauses[0].NormalizedText = "mutated"

	loaded, err := s.LoadClauses("doc-1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "original", loaded[0].NormalizedText)

	loaded[0].NormalizedText = "mutated again"
	reloaded, err := s.LoadClauses("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "original", reloaded[0].NormalizedText)
}

func TestStore_SaveDocumentOverwrites(t *testing.T) {
	s := NewStore()
	defer s.Close()

	doc := domain.Document{ID: "doc-1", Status: domain.StatusQueued, SubmittedAt: time.Now()}
	require.NoError(t, s.SaveDocument(&doc))

	doc.Status = domain.StatusCompleted
	require.NoError(t, s.SaveDocument(&doc))

	docs, err := s.LoadCompletedDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.StatusCompleted, docs[0].Status)
}

func TestStore_LoadClausesUnknownDocument(t *testing.T) {
	s := NewStore()
	loaded, err := s.LoadClauses("missing")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
