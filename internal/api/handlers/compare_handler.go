package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/cache/redis"
	"github.com/arca-compliance/backend/internal/compare"
	"github.com/arca-compliance/backend/internal/corpus"
	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/internal/metrics"
	"github.com/arca-compliance/backend/pkg/logger"
	"github.com/arca-compliance/backend/pkg/utils"
)

type CompareHandler struct {
	engine *compare.Engine
	index  *corpus.Index
	cache  *redis.Client
}

// NewCompareHandler wires the comparison engine to the HTTP surface.
// cache may be nil, in which case every request is computed.
func NewCompareHandler(engine *compare.Engine, index *corpus.Index, cache *redis.Client) *CompareHandler {
	return &CompareHandler{engine: engine, index: index, cache: cache}
}

func (h *CompareHandler) HandleCompare(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("%w: invalid request body", domain.ErrValidation))
	}

	start := time.Now()
	snap := h.index.Snapshot()
	textHash := utils.HashString(req.Text)

	if h.cache != nil {
		if result, hit, err := h.cache.GetComparison(c.Context(), textHash, snap.Version()); err == nil && hit {
			metrics.CacheHits.WithLabelValues("comparison").Inc()
			return c.JSON(comparisonJSON(result))
		}
		metrics.CacheMisses.WithLabelValues("comparison").Inc()
	}

	result, err := h.engine.Compare(req.Text, snap)
	if err != nil {
		metrics.ComparisonsTotal.WithLabelValues("error").Inc()
		return respondError(c, err)
	}

	metrics.ComparisonsTotal.WithLabelValues("ok").Inc()
	metrics.ComparisonDuration.Observe(time.Since(start).Seconds())
	metrics.RiskScore.Observe(float64(result.RiskScore))

	if h.cache != nil {
		if err := h.cache.SetComparison(c.Context(), textHash, snap.Version(), result); err != nil {
			logger.Warn("Failed to cache comparison", zap.Error(err))
		}
	}

	logger.Info("Comparison completed",
		zap.String("request_id", result.RequestID),
		zap.Int("risk_score", result.RiskScore),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("missing", len(result.Missing)),
	)

	return c.JSON(comparisonJSON(result))
}

func (h *CompareHandler) GetCorpusStats(c *fiber.Ctx) error {
	snap := h.index.Snapshot()
	metrics.CorpusClauses.Set(float64(snap.ClauseCount()))
	return c.JSON(fiber.Map{
		"corpus_version": snap.Version(),
		"clause_count":   snap.ClauseCount(),
		"document_count": snap.DocumentCount(),
	})
}

func comparisonJSON(result *domain.ComparisonResult) fiber.Map {
	conflicts := make([]fiber.Map, 0, len(result.Conflicts))
	for _, conflict := range result.Conflicts {
		conflicts = append(conflicts, fiber.Map{
			"category":        conflict.Category,
			"cited_authority": conflict.CitedAuthority,
			"description":     conflict.Description,
		})
	}
	missing := make([]fiber.Map, 0, len(result.Missing))
	for _, m := range result.Missing {
		missing = append(missing, fiber.Map{
			"category":    m.Category,
			"description": m.Description,
		})
	}
	return fiber.Map{
		"request_id":     result.RequestID,
		"risk_score":     result.RiskScore,
		"risk_level":     result.RiskLevel,
		"conflicts":      conflicts,
		"missing":        missing,
		"corpus_version": result.CorpusVersion,
	}
}
