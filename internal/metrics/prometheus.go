package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DocumentsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arca_documents_submitted_total",
			Help: "Documents accepted by the ingestion pipeline",
		},
		[]string{"outcome"},
	)

	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arca_documents_processed_total",
			Help: "Documents that reached a terminal state",
		},
		[]string{"status"},
	)

	IngestRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arca_ingest_retries_total",
			Help: "Transient ingestion errors retried",
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arca_pipeline_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"stage"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arca_ingest_queue_depth",
			Help: "Documents waiting in the ingestion queue",
		},
	)

	ActiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arca_ingest_active_workers",
			Help: "Workers currently processing a document",
		},
	)

	CorpusClauses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arca_corpus_clauses_total",
			Help: "Live clause records in the corpus",
		},
	)

	CorpusVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arca_corpus_version",
			Help: "Current corpus version",
		},
	)

	ComparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arca_comparisons_total",
			Help: "Comparison requests processed",
		},
		[]string{"status"},
	)

	ComparisonDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arca_comparison_duration_seconds",
			Help:    "Comparison processing duration",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	RiskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arca_risk_score",
			Help:    "Risk scores produced by the comparison engine",
			Buckets: []float64{0, 10, 30, 50, 70, 85, 100},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arca_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arca_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arca_chat_messages_total",
			Help: "Chat messages appended to session logs",
		},
		[]string{"sender"},
	)

	ChatResponsesCanceled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arca_chat_responses_canceled_total",
			Help: "In-flight chat responses discarded by cancellation",
		},
	)
)

func Init() {
	prometheus.MustRegister(DocumentsSubmitted)
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(IngestRetries)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(ActiveWorkers)
	prometheus.MustRegister(CorpusClauses)
	prometheus.MustRegister(CorpusVersion)
	prometheus.MustRegister(ComparisonsTotal)
	prometheus.MustRegister(ComparisonDuration)
	prometheus.MustRegister(RiskScore)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ChatMessages)
	prometheus.MustRegister(ChatResponsesCanceled)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
