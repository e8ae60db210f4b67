package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		byte_size INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		status TEXT NOT NULL,
		error_reason TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		submitted_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	CREATE INDEX IF NOT EXISTS idx_documents_submitted ON documents(submitted_at);

	CREATE TABLE IF NOT EXISTS clause_records (
		clause_id TEXT PRIMARY KEY,
		source_document_id TEXT NOT NULL,
		category TEXT NOT NULL,
		normalized_text TEXT NOT NULL,
		authority TEXT,
		severity TEXT NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (source_document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_clauses_document ON clause_records(source_document_id);
	CREATE INDEX IF NOT EXISTS idx_clauses_category ON clause_records(category);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func (c *Client) SaveDocument(doc *domain.Document) error {
	var completedAt sql.NullInt64
	if doc.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: doc.CompletedAt.Unix(), Valid: true}
	}

	_, err := c.db.Exec(`
		INSERT INTO documents (id, filename, byte_size, content_hash, status, error_reason, attempts, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error_reason = excluded.error_reason,
			attempts = excluded.attempts,
			completed_at = excluded.completed_at`,
		doc.ID, doc.Filename, doc.ByteSize, doc.ContentHash, string(doc.Status),
		doc.ErrorReason, doc.Attempts, doc.SubmittedAt.Unix(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SaveClauses replaces the stored clause set for a document in one
// transaction, mirroring the atomic corpus merge.
func (c *Client) SaveClauses(documentID string, clauses []domain.ClauseRecord) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM clause_records WHERE source_document_id = ?", documentID); err != nil {
		return fmt.Errorf("failed to clear clauses: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO clause_records (clause_id, source_document_id, category, normalized_text, authority, severity, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, clause := range clauses {
		_, err := stmt.Exec(clause.ClauseID, documentID, clause.Category,
			clause.NormalizedText, clause.Authority, string(clause.Severity), i)
		if err != nil {
			return fmt.Errorf("failed to insert clause: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clauses: %w", err)
	}
	return nil
}

func (c *Client) LoadCompletedDocuments() ([]domain.Document, error) {
	rows, err := c.db.Query(`
		SELECT id, filename, byte_size, content_hash, status, error_reason, attempts, submitted_at, completed_at
		FROM documents
		WHERE status = ?
		ORDER BY submitted_at ASC, id ASC`,
		string(domain.StatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var status string
		var errorReason sql.NullString
		var submittedAt int64
		var completedAt sql.NullInt64

		err := rows.Scan(&doc.ID, &doc.Filename, &doc.ByteSize, &doc.ContentHash,
			&status, &errorReason, &doc.Attempts, &submittedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc.Status = domain.DocumentStatus(status)
		doc.ErrorReason = errorReason.String
		doc.SubmittedAt = time.Unix(submittedAt, 0)
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0)
			doc.CompletedAt = &t
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (c *Client) LoadClauses(documentID string) ([]domain.ClauseRecord, error) {
	rows, err := c.db.Query(`
		SELECT clause_id, source_document_id, category, normalized_text, authority, severity
		FROM clause_records
		WHERE source_document_id = ?
		ORDER BY position ASC`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query clauses: %w", err)
	}
	defer rows.Close()

	var clauses []domain.ClauseRecord
	for rows.Next() {
		var clause domain.ClauseRecord
		var authority sql.NullString
		var severity string

		err := rows.Scan(&clause.ClauseID, &clause.SourceDocumentID, &clause.Category,
			&clause.NormalizedText, &authority, &severity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clause: %w", err)
		}

		clause.Authority = authority.String
		clause.Severity = domain.Severity(severity)
		clauses = append(clauses, clause)
	}

	return clauses, rows.Err()
}
