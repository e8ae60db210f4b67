// Package memory backs the storage contract with process-local maps. It is
// the default when persistence is disabled and the double used in tests.
package memory

import (
	"sort"
	"sync"

	"github.com/arca-compliance/backend/internal/domain"
)

type Store struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	clauses map[string][]domain.ClauseRecord
}

func NewStore() *Store {
	return &Store{
		docs:    make(map[string]domain.Document),
		clauses: make(map[string][]domain.ClauseRecord),
	}
}

func (s *Store) SaveDocument(doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *Store) SaveClauses(documentID string, clauses []domain.ClauseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clauses[documentID] = append([]domain.ClauseRecord(nil), clauses...)
	return nil
}

func (s *Store) LoadCompletedDocuments() ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []domain.Document
	for _, doc := range s.docs {
		if doc.Status == domain.StatusCompleted {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].SubmittedAt.Equal(docs[j].SubmittedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].SubmittedAt.Before(docs[j].SubmittedAt)
	})
	return docs, nil
}

func (s *Store) LoadClauses(documentID string) ([]domain.ClauseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ClauseRecord(nil), s.clauses[documentID]...), nil
}

func (s *Store) Close() error {
	return nil
}
