package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/api/handlers"
	rediscache "github.com/arca-compliance/backend/internal/cache/redis"
	"github.com/arca-compliance/backend/internal/chat"
	"github.com/arca-compliance/backend/internal/classify"
	"github.com/arca-compliance/backend/internal/compare"
	"github.com/arca-compliance/backend/internal/corpus"
	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/internal/ingestion"
	"github.com/arca-compliance/backend/internal/metrics"
	"github.com/arca-compliance/backend/internal/middleware/ratelimit"
	"github.com/arca-compliance/backend/internal/middleware/security"
	"github.com/arca-compliance/backend/internal/middleware/validation"
	"github.com/arca-compliance/backend/internal/responder"
	"github.com/arca-compliance/backend/internal/storage"
	"github.com/arca-compliance/backend/internal/storage/memory"
	"github.com/arca-compliance/backend/internal/storage/sqlite"
	"github.com/arca-compliance/backend/pkg/config"
	appLogger "github.com/arca-compliance/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting ARCA Compliance API Server")

	metrics.Init()

	var store storage.Store
	if cfg.SQLite.Enabled {
		sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		store = sqliteClient
	} else {
		store = memory.NewStore()
	}
	defer store.Close()

	classifier := classify.NewKeywordClassifier()
	index := corpus.NewIndex()

	pipeline := ingestion.NewPipeline(ingestion.Config{
		MaxUploadBytes:    cfg.Ingestion.MaxUploadBytes,
		AllowedExtensions: cfg.Ingestion.AllowedExtensions,
		Workers:           cfg.Ingestion.Workers,
		QueueCapacity:     cfg.Ingestion.QueueCapacity,
		MaxRetries:        cfg.Ingestion.MaxRetries,
		RetryInitialDelay: time.Duration(cfg.Ingestion.RetryInitialMS) * time.Millisecond,
		RetryMaxDelay:     time.Duration(cfg.Ingestion.RetryMaxMS) * time.Millisecond,
	}, index, classifier, store)

	if err := reloadCorpus(store, index, pipeline); err != nil {
		appLogger.Fatal("Failed to reload corpus", zap.Error(err))
	}

	pipeline.Start(context.Background())
	defer pipeline.Stop()

	engine := compare.NewEngine(compare.Config{
		MaxTextBytes: cfg.Compare.MaxTextBytes,
		SeverityWeights: map[domain.Severity]int{
			domain.SeverityLow:    cfg.Compare.SeverityWeightLow,
			domain.SeverityMedium: cfg.Compare.SeverityWeightMed,
			domain.SeverityHigh:   cfg.Compare.SeverityWeightHigh,
		},
		MissingWeight:      cfg.Compare.MissingWeight,
		HighThreshold:      cfg.Compare.HighThreshold,
		MediumThreshold:    cfg.Compare.MediumThreshold,
		RequiredCategories: requiredCategories(cfg.Compare.RequiredCategories),
	}, classifier)

	var cache *rediscache.Client
	if cfg.Redis.Enabled {
		cache, err = rediscache.NewClient(cfg.Redis.Host, cfg.Redis.Port,
			cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Redis.CacheTTLS)*time.Second)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer cache.Close()
	}

	chatManager := chat.NewManager(
		buildResponder(cfg),
		time.Duration(cfg.Chat.ResponderTimeoutSec)*time.Second,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	documentHandler := handlers.NewDocumentHandler(pipeline)
	compareHandler := handlers.NewCompareHandler(engine, index, cache)
	chatHandler := handlers.NewChatHandler(chatManager)
	wsHandler := handlers.NewWebSocketHandler(chatManager)

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxBodyBytes: cfg.Server.BodyLimit,
		Logger:       appLogger.GetLogger(),
	}))

	api.Post("/documents", documentHandler.UploadDocument)
	api.Get("/documents", documentHandler.ListDocuments)
	api.Get("/documents/:id", documentHandler.GetDocument)
	api.Delete("/documents/:id", documentHandler.CancelDocument)

	api.Post("/compare", compareHandler.HandleCompare)
	api.Get("/corpus/stats", compareHandler.GetCorpusStats)

	api.Post("/chat/sessions", chatHandler.CreateSession)
	api.Post("/chat/:sessionId/messages", chatHandler.PostMessage)
	api.Get("/chat/:sessionId/messages", chatHandler.GetMessages)
	api.Delete("/chat/:sessionId/response", chatHandler.CancelResponse)

	api.Use("/chat/:sessionId/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/chat/:sessionId/ws", websocket.New(wsHandler.HandleSession))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// reloadCorpus replays persisted documents so the corpus and the dedup map
// survive restarts. Merge order follows submission order, preserving clause
// insertion order.
func reloadCorpus(store storage.Store, index *corpus.Index, pipeline *ingestion.Pipeline) error {
	docs, err := store.LoadCompletedDocuments()
	if err != nil {
		return err
	}

	clauseTotal := 0
	for _, doc := range docs {
		clauses, err := store.LoadClauses(doc.ID)
		if err != nil {
			return err
		}
		if _, err := index.Merge(doc.ID, clauses); err != nil {
			return err
		}
		pipeline.Restore(doc)
		clauseTotal += len(clauses)
	}

	if len(docs) > 0 {
		appLogger.Info("Corpus reloaded",
			zap.Int("documents", len(docs)),
			zap.Int("clauses", clauseTotal),
		)
	}
	return nil
}

func requiredCategories(categories []string) []compare.RequiredCategory {
	if len(categories) == 0 {
		return nil
	}

	defaults := make(map[string]string)
	for _, rc := range compare.DefaultRequiredCategories() {
		defaults[rc.Category] = rc.Description
	}

	out := make([]compare.RequiredCategory, 0, len(categories))
	for _, cat := range categories {
		desc, ok := defaults[cat]
		if !ok {
			desc = fmt.Sprintf("Required clause category %q.", cat)
		}
		out = append(out, compare.RequiredCategory{Category: cat, Description: desc})
	}
	return out
}

func buildResponder(cfg *config.Config) chat.Responder {
	if cfg.Responder.Provider == "openai" && cfg.Responder.APIKey != "" {
		return responder.NewOpenAIResponder(
			cfg.Responder.APIKey,
			cfg.Responder.Model,
			cfg.Responder.Temperature,
			cfg.Responder.MaxTokens,
		)
	}
	appLogger.Info("Using static responder; no language model configured")
	return responder.NewStaticResponder()
}
