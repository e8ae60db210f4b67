// Package corpus holds the reference clause index. Records are immutable
// and append-only; all reads go through versioned snapshots so in-flight
// comparisons never observe a concurrent merge.
package corpus

import (
	"fmt"
	"iter"
	"sync"

	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/pkg/logger"
)

type Index struct {
	mu         sync.RWMutex
	version    uint64
	records    []domain.ClauseRecord
	byCategory map[string][]int
	byDocument map[string][]int
	superseded map[string]bool
	documents  map[string]bool
}

func NewIndex() *Index {
	return &Index{
		byCategory: make(map[string][]int),
		byDocument: make(map[string][]int),
		superseded: make(map[string]bool),
		documents:  make(map[string]bool),
	}
}

// Merge atomically adds all clauses extracted from one document and returns
// the new corpus version. Versions increase strictly; a re-merge of the same
// document supersedes its earlier records in the live view without mutating
// them. Either all clauses become visible or none.
func (idx *Index) Merge(documentID string, clauses []domain.ClauseRecord) (uint64, error) {
	if documentID == "" {
		return 0, fmt.Errorf("%w: document id is empty", domain.ErrValidation)
	}
	for _, c := range clauses {
		if c.ClauseID == "" || c.Category == "" {
			return 0, fmt.Errorf("%w: clause record missing id or category", domain.ErrValidation)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, i := range idx.byDocument[documentID] {
		idx.superseded[idx.records[i].ClauseID] = true
	}
	idx.byDocument[documentID] = nil

	for _, c := range clauses {
		i := len(idx.records)
		idx.records = append(idx.records, c)
		idx.byCategory[c.Category] = append(idx.byCategory[c.Category], i)
		idx.byDocument[documentID] = append(idx.byDocument[documentID], i)
	}
	idx.documents[documentID] = true

	idx.version++

	logger.Debug("Corpus merged",
		zap.String("document_id", documentID),
		zap.Int("clauses", len(clauses)),
		zap.Uint64("version", idx.version),
	)

	return idx.version, nil
}

// Snapshot captures an immutable view of the corpus. The returned value is
// safe for concurrent use and is never affected by later merges.
func (idx *Index) Snapshot() *Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	byCategory := make(map[string][]int, len(idx.byCategory))
	for cat, ids := range idx.byCategory {
		byCategory[cat] = ids[:len(ids):len(ids)]
	}
	superseded := make(map[string]bool, len(idx.superseded))
	for id := range idx.superseded {
		superseded[id] = true
	}

	return &Snapshot{
		version:    idx.version,
		limit:      len(idx.records),
		records:    idx.records[:len(idx.records):len(idx.records)],
		byCategory: byCategory,
		superseded: superseded,
		documents:  len(idx.documents),
	}
}

// Snapshot is a read-only, versioned view of the corpus at a point in time.
type Snapshot struct {
	version    uint64
	limit      int
	records    []domain.ClauseRecord
	byCategory map[string][]int
	superseded map[string]bool
	documents  int
}

func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) ClauseCount() int {
	n := 0
	for _, ids := range s.byCategory {
		for _, i := range ids {
			if i < s.limit && !s.superseded[s.records[i].ClauseID] {
				n++
			}
		}
	}
	return n
}

func (s *Snapshot) DocumentCount() int {
	return s.documents
}

// Lookup yields the non-superseded reference clauses of a category in
// insertion order, oldest first. The sequence is finite and restartable.
func (s *Snapshot) Lookup(category string) iter.Seq[domain.ClauseRecord] {
	return func(yield func(domain.ClauseRecord) bool) {
		for _, i := range s.byCategory[category] {
			if i >= s.limit {
				break
			}
			rec := s.records[i]
			if s.superseded[rec.ClauseID] {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}
