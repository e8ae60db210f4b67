// Package ingestion runs uploaded documents through a bounded worker pool:
// validate, extract, classify, and merge into the reference corpus.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/classify"
	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/internal/metrics"
	"github.com/arca-compliance/backend/internal/segment"
	"github.com/arca-compliance/backend/internal/storage"
	"github.com/arca-compliance/backend/pkg/logger"
	"github.com/arca-compliance/backend/pkg/utils"
)

// Merger is the corpus side of indexing. The merge is atomic: comparison
// requests never observe a half-indexed document.
type Merger interface {
	Merge(documentID string, clauses []domain.ClauseRecord) (uint64, error)
}

type Config struct {
	MaxUploadBytes    int64
	AllowedExtensions []string
	Workers           int
	QueueCapacity     int
	MaxRetries        int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxUploadBytes:    10 << 20,
		AllowedExtensions: []string{"pdf", "docx", "txt"},
		Workers:           4,
		QueueCapacity:     64,
		MaxRetries:        3,
		RetryInitialDelay: 100 * time.Millisecond,
		RetryMaxDelay:     5 * time.Second,
	}
}

type docState struct {
	doc             domain.Document
	content         []byte
	ext             string
	cancelRequested bool
}

// Pipeline owns every document until it reaches a terminal status. All
// mutation happens behind its mutex; workers pull document IDs from the
// bounded queue, at most one worker per document.
type Pipeline struct {
	cfg        Config
	merger     Merger
	classifier classify.Classifier
	store      storage.Store

	// extractors is swappable for failure-injection in tests.
	extractors func(ext string) Extractor

	mu     sync.Mutex
	docs   map[string]*docState
	byHash map[string]string

	queue  chan string
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPipeline(cfg Config, merger Merger, classifier classify.Classifier, store storage.Store) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultConfig().QueueCapacity
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = DefaultConfig().AllowedExtensions
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialDelay <= 0 {
		cfg.RetryInitialDelay = DefaultConfig().RetryInitialDelay
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = DefaultConfig().RetryMaxDelay
	}

	return &Pipeline{
		cfg:        cfg,
		merger:     merger,
		classifier: classifier,
		store:      store,
		extractors: extractorFor,
		docs:       make(map[string]*docState),
		byHash:     make(map[string]string),
		queue:      make(chan string, cfg.QueueCapacity),
	}
}

// Start launches the worker pool. Call Stop to drain and shut down.
func (p *Pipeline) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	logger.Info("Ingestion pipeline started",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("queue_capacity", p.cfg.QueueCapacity),
	)
}

func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Restore seeds a previously completed document so idempotent re-submission
// survives restarts. Only terminal documents may be restored.
func (p *Pipeline) Restore(doc domain.Document) {
	if !doc.Status.Terminal() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[doc.ID] = &docState{doc: doc, ext: extension(doc.Filename)}
	if doc.Status == domain.StatusCompleted {
		p.byHash[doc.ContentHash] = doc.ID
	}
}

// Submit validates the upload and enqueues it, returning immediately. When
// the content hash matches an already completed document the existing ID is
// returned without re-enqueueing. The queue is fail-fast: a full queue
// yields ErrBackpressure rather than blocking the caller.
func (p *Pipeline) Submit(content []byte, filename string, declaredSize int64) (string, error) {
	ext := extension(filename)
	if !p.extensionAllowed(ext) {
		metrics.DocumentsSubmitted.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w: file extension %q is not accepted", domain.ErrValidation, ext)
	}
	if declaredSize > p.cfg.MaxUploadBytes {
		metrics.DocumentsSubmitted.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w: declared size %d exceeds maximum %d", domain.ErrValidation, declaredSize, p.cfg.MaxUploadBytes)
	}
	if int64(len(content)) > p.cfg.MaxUploadBytes {
		metrics.DocumentsSubmitted.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("%w: content size %d exceeds maximum %d", domain.ErrValidation, len(content), p.cfg.MaxUploadBytes)
	}

	hash := utils.HashBytes(content)

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byHash[hash]; ok {
		metrics.DocumentsSubmitted.WithLabelValues("deduplicated").Inc()
		logger.Debug("Duplicate submission short-circuited",
			zap.String("document_id", existing),
			zap.String("filename", filename),
		)
		return existing, nil
	}

	doc := domain.Document{
		ID:          uuid.New().String(),
		Filename:    filename,
		ByteSize:    int64(len(content)),
		ContentHash: hash,
		Status:      domain.StatusQueued,
		SubmittedAt: time.Now(),
	}
	st := &docState{doc: doc, content: content, ext: ext}

	select {
	case p.queue <- doc.ID:
	default:
		metrics.DocumentsSubmitted.WithLabelValues("backpressure").Inc()
		return "", fmt.Errorf("%w: ingestion queue is full", domain.ErrBackpressure)
	}

	p.docs[doc.ID] = st
	metrics.DocumentsSubmitted.WithLabelValues("accepted").Inc()
	metrics.QueueDepth.Set(float64(len(p.queue)))

	logger.Info("Document submitted",
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int64("bytes", doc.ByteSize),
	)

	return doc.ID, nil
}

// Status returns a snapshot copy of the document.
func (p *Pipeline) Status(documentID string) (domain.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.docs[documentID]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}
	return st.doc, nil
}

// List returns snapshots of all known documents, newest first.
func (p *Pipeline) List() []domain.Document {
	p.mu.Lock()
	defer p.mu.Unlock()

	docs := make([]domain.Document, 0, len(p.docs))
	for _, st := range p.docs {
		docs = append(docs, st.doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].SubmittedAt.Equal(docs[j].SubmittedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].SubmittedAt.After(docs[j].SubmittedAt)
	})
	return docs
}

// Cancel aborts a document that has not started extraction. Queued
// documents fail immediately; validating documents are flagged and the
// worker aborts at the next stage boundary.
func (p *Pipeline) Cancel(documentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.docs[documentID]
	if !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}

	switch st.doc.Status {
	case domain.StatusQueued:
		p.finishLocked(st, domain.StatusFailed, "canceled")
		return nil
	case domain.StatusValidating:
		st.cancelRequested = true
		return nil
	default:
		return fmt.Errorf("%w: cannot cancel document in state %s", domain.ErrInvalidState, st.doc.Status)
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case id := <-p.queue:
			metrics.QueueDepth.Set(float64(len(p.queue)))
			p.process(id)
		}
	}
}

func (p *Pipeline) process(id string) {
	p.mu.Lock()
	st, ok := p.docs[id]
	if !ok || st.doc.Status != domain.StatusQueued {
		// Canceled while queued, or already terminal.
		p.mu.Unlock()
		return
	}
	st.doc.Status = domain.StatusValidating
	p.mu.Unlock()

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	err := p.runStages(st)
	if err == nil || errors.Is(err, errCanceled) {
		// Cancellation is recorded by advance; nothing more to do.
		return
	}

	if isTransient(err) {
		p.retryOrFail(st, err)
		return
	}

	p.mu.Lock()
	p.finishLocked(st, domain.StatusFailed, reason(err))
	p.mu.Unlock()
}

// runStages drives one attempt through validating, extracting, and
// indexing. Stage order is strict; a transient error at any stage unwinds
// the whole attempt.
func (p *Pipeline) runStages(st *docState) error {
	// Validating.
	start := time.Now()
	if len(st.content) == 0 {
		return fmt.Errorf("%w: document is empty", domain.ErrValidation)
	}
	metrics.StageDuration.WithLabelValues("validating").Observe(time.Since(start).Seconds())

	if !p.advance(st, domain.StatusExtracting) {
		return errCanceled
	}

	// Extracting.
	start = time.Now()
	text, err := p.extractors(st.ext).Extract(st.doc.Filename, st.content)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%w: no text content extracted", domain.ErrValidation)
	}
	segments, err := segment.Segments(text)
	if err != nil {
		return fmt.Errorf("%w: segmentation: %v", domain.ErrValidation, err)
	}
	clauses := buildClauses(st.doc.ID, segments, p.classifier)
	metrics.StageDuration.WithLabelValues("extracting").Observe(time.Since(start).Seconds())

	if !p.advance(st, domain.StatusIndexing) {
		return errCanceled
	}

	// Indexing.
	start = time.Now()
	if p.store != nil {
		if err := p.store.SaveClauses(st.doc.ID, clauses); err != nil {
			return fmt.Errorf("%w: persisting clauses: %v", domain.ErrTransientIngest, err)
		}
	}
	version, err := p.merger.Merge(st.doc.ID, clauses)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	metrics.StageDuration.WithLabelValues("indexing").Observe(time.Since(start).Seconds())
	metrics.CorpusVersion.Set(float64(version))

	p.mu.Lock()
	p.byHash[st.doc.ContentHash] = st.doc.ID
	st.content = nil
	p.finishLocked(st, domain.StatusCompleted, "")
	p.mu.Unlock()

	logger.Info("Document indexed",
		zap.String("document_id", st.doc.ID),
		zap.Int("clauses", len(clauses)),
		zap.Uint64("corpus_version", version),
	)

	return nil
}

var errCanceled = errors.New("processing canceled")

// advance moves the document to next unless cancellation was requested.
func (p *Pipeline) advance(st *docState, next domain.DocumentStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st.cancelRequested {
		p.finishLocked(st, domain.StatusFailed, "canceled")
		return false
	}
	if !st.doc.Status.CanTransition(next) {
		return false
	}
	st.doc.Status = next
	return true
}

func (p *Pipeline) retryOrFail(st *docState, cause error) {
	p.mu.Lock()

	if st.doc.Attempts >= p.cfg.MaxRetries {
		p.finishLocked(st, domain.StatusFailed, "retries-exhausted")
		p.mu.Unlock()
		return
	}

	st.doc.Attempts++
	attempt := st.doc.Attempts
	st.doc.Status = domain.StatusQueued
	p.mu.Unlock()

	metrics.IngestRetries.Inc()

	delay := p.cfg.RetryInitialDelay << (attempt - 1)
	if delay > p.cfg.RetryMaxDelay {
		delay = p.cfg.RetryMaxDelay
	}

	logger.Warn("Transient ingestion error, requeueing",
		zap.String("document_id", st.doc.ID),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-p.ctx.Done():
		case <-timer.C:
			select {
			case p.queue <- st.doc.ID:
				metrics.QueueDepth.Set(float64(len(p.queue)))
			case <-p.ctx.Done():
			}
		}
	}()
}

// finishLocked records a terminal status. Callers hold p.mu.
func (p *Pipeline) finishLocked(st *docState, status domain.DocumentStatus, errorReason string) {
	now := time.Now()
	st.doc.Status = status
	st.doc.ErrorReason = errorReason
	st.doc.CompletedAt = &now
	st.content = nil
	st.cancelRequested = false

	label := string(status)
	if errorReason == "canceled" {
		label = "canceled"
	}
	metrics.DocumentsProcessed.WithLabelValues(label).Inc()

	if status == domain.StatusFailed {
		logger.Warn("Document failed",
			zap.String("document_id", st.doc.ID),
			zap.String("reason", errorReason),
		)
	}

	if p.store != nil {
		doc := st.doc
		if err := p.store.SaveDocument(&doc); err != nil {
			logger.Warn("Failed to persist document", zap.Error(err))
		}
	}
}

func (p *Pipeline) extensionAllowed(ext string) bool {
	for _, allowed := range p.cfg.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

func isTransient(err error) bool {
	return errors.Is(err, domain.ErrTransientIngest)
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
