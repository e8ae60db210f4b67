// Package storage defines the pluggable persistence contract. The core
// pipeline and corpus operate in memory; a Store keeps completed documents
// and their clause records across restarts.
package storage

import "github.com/arca-compliance/backend/internal/domain"

type Store interface {
	SaveDocument(doc *domain.Document) error
	SaveClauses(documentID string, clauses []domain.ClauseRecord) error

	// LoadCompletedDocuments returns completed documents in submission
	// order, oldest first, so corpus reload preserves clause insertion
	// order.
	LoadCompletedDocuments() ([]domain.Document, error)
	LoadClauses(documentID string) ([]domain.ClauseRecord, error)

	Close() error
}
