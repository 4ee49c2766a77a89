package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"candidate-evaluator/internal/config"
	"candidate-evaluator/internal/logger"
	"candidate-evaluator/internal/services"
	"candidate-evaluator/internal/vectorstore"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands for the candidate evaluator",
}

func main() {
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildEnv wires the subset of the service needed by admin commands:
// database, storage, embeddings and the vector index.
func buildEnv(cmd *cobra.Command) (*config.Config, *gorm.DB, *services.RetrievalService, *zap.Logger) {
	cfg := config.Load()

	zlog, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}

	storage, err := services.NewLocalStorage(cfg.Storage.UploadPath)
	if err != nil {
		zlog.Fatal("failed to initialize storage", zap.Error(err))
	}

	gemini, err := services.NewGeminiService(
		cmd.Context(),
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
	} else {
		index = vectorstore.NewMemoryIndex()
		zlog.Warn("running against the in-memory index; results will not persist")
	}

	retrieval := services.NewRetrievalService(
		storage,
		services.NewTextExtractor(),
		gemini,
		index,
		zlog,
	)
	return cfg, db, retrieval, zlog
}
