package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"candidate-evaluator/internal/config"
	"candidate-evaluator/internal/handlers"
	"candidate-evaluator/internal/logger"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/scoring"
	"candidate-evaluator/internal/services"
	"candidate-evaluator/internal/vectorstore"
)

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	docRepo := repositories.NewDocumentRepository(db)
	refSetRepo := repositories.NewReferenceSetRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	evalRepo := repositories.NewEvaluationRepository(db)
	idemRepo := repositories.NewIdempotencyRepository(db)

	storage, err := services.NewLocalStorage(cfg.Storage.UploadPath)
	if err != nil {
		zlog.Fatal("failed to initialize storage", zap.Error(err))
	}
	extractor := services.NewTextExtractor()

	ctx := context.Background()
	gemini, err := services.NewGeminiService(
		ctx,
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		cfg.Gemini.EmbedModel,
		cfg.Gemini.Timeout,
		zlog,
	)
	if err != nil {
		zlog.Fatal("failed to initialize Gemini client", zap.Error(err))
	}

	var index vectorstore.Index
	if cfg.Qdrant.Enabled {
		qdrantIndex, err := vectorstore.NewQdrantIndex(cfg.Qdrant.URL, cfg.Qdrant.APIKey)
		if err != nil {
			zlog.Fatal("failed to initialize Qdrant", zap.Error(err))
		}
		index = qdrantIndex
		zlog.Info("vector index: qdrant", zap.String("url", cfg.Qdrant.URL))
	} else {
		index = vectorstore.NewMemoryIndex()
		zlog.Info("vector index: in-memory")
	}

	retrieval := services.NewRetrievalService(storage, extractor, gemini, index, zlog)
	reindex := services.NewReindexService(docRepo, retrieval, zlog)
	engine := scoring.NewEngine(retrieval, gemini, zlog)
	orchestrator := services.NewOrchestrator(jobRepo, evalRepo, storage, extractor, retrieval, engine, zlog)
	guard := services.NewIdempotencyGuard(idemRepo, jobRepo)

	worker := services.NewWorker(
		jobRepo,
		orchestrator,
		cfg.Worker.Concurrency,
		cfg.Worker.RetryMaxAttempts,
		cfg.Worker.RetryInitialDelay,
		zlog,
	)
	worker.Start(ctx)

	uploadHandler := handlers.NewUploadHandler(docRepo, storage, retrieval, cfg.Storage.MaxFileSize, zlog)
	referenceHandler := handlers.NewReferenceHandler(refSetRepo, uploadHandler, zlog)
	evaluateHandler := handlers.NewEvaluateHandler(jobRepo, docRepo, refSetRepo, guard, worker, zlog)
	resultHandler := handlers.NewResultHandler(jobRepo, evalRepo, zlog)
	retrieveHandler := handlers.NewRetrieveHandler(retrieval, reindex, zlog)

	app := fiber.New(fiber.Config{
		AppName:      "Candidate Evaluator API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/reference-sets", referenceHandler.HandleCreateReferenceSet)
	api.Get("/reference-sets", referenceHandler.HandleListReferenceSets)
	api.Post("/reference-sets/upload", referenceHandler.HandleUploadReference)
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Get("/retrieve", retrieveHandler.HandleRetrieve)
	api.Get("/index/stats", retrieveHandler.HandleIndexStats)
	api.Post("/reindex", retrieveHandler.HandleReindex)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Candidate Evaluator API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/reference-sets",
				"GET /api/v1/reference-sets",
				"POST /api/v1/reference-sets/upload",
				"POST /api/v1/evaluate",
				"GET /api/v1/result/:id",
				"GET /api/v1/retrieve",
				"GET /api/v1/index/stats",
				"POST /api/v1/reindex",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("shutting down server")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			zlog.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zlog.Info("server starting", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
