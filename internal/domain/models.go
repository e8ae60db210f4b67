package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
// Transitions are monotonic; the only backward edge is a transient-error
// retry returning the document to StatusQueued.
type DocumentStatus string

const (
	StatusQueued     DocumentStatus = "queued"
	StatusValidating DocumentStatus = "validating"
	StatusExtracting DocumentStatus = "extracting"
	StatusIndexing   DocumentStatus = "indexing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the pipeline for monotonicity checks.
func (s DocumentStatus) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusValidating:
		return 1
	case StatusExtracting:
		return 2
	case StatusIndexing:
		return 3
	case StatusCompleted, StatusFailed:
		return 4
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a legal pipeline
// edge. A retry back to StatusQueued is legal from any non-terminal
// processing state.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusQueued {
		return s == StatusValidating || s == StatusExtracting || s == StatusIndexing
	}
	if next == StatusFailed {
		return true
	}
	return next.rank() == s.rank()+1
}

type Document struct {
	ID          string
	Filename    string
	ByteSize    int64
	ContentHash string
	Status      DocumentStatus
	ErrorReason string
	Attempts    int
	SubmittedAt time.Time
	CompletedAt *time.Time
}

// Severity grades a reference clause for scoring when it is cited as
// contradicted.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; higher means more severe. Unknown values rank
// below SeverityLow so malformed records never win a citation.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// CategoryUncategorized is the sink category for segments the classifier
// cannot place. Categories are an open enumeration; any other string is a
// valid category.
const CategoryUncategorized = "uncategorized"

// ClauseRecord is an indexed reference clause. Records are immutable once
// created; a document revision supersedes old records, it never mutates them.
type ClauseRecord struct {
	ClauseID         string
	SourceDocumentID string
	Category         string
	NormalizedText   string
	Authority        string
	Severity         Severity
}

type Conflict struct {
	Category       string
	CitedAuthority string
	Description    string
}

type MissingClause struct {
	Category    string
	Description string
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ComparisonResult is the immutable outcome of one comparison request.
type ComparisonResult struct {
	RequestID     string
	RiskScore     int
	RiskLevel     RiskLevel
	Conflicts     []Conflict
	Missing       []MissingClause
	CorpusVersion uint64
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type ChatMessage struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time
}
