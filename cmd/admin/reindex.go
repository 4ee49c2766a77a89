package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/services"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every stored document into its vector collection",
	Run: func(cmd *cobra.Command, _ []string) {
		_, db, retrieval, zlog := buildEnv(cmd)

		docRepo := repositories.NewDocumentRepository(db)
		reindex := services.NewReindexService(docRepo, retrieval, zlog)

		report, err := reindex.ReindexAll(cmd.Context())
		if err != nil {
			zlog.Fatal("reindex failed", zap.Error(err))
		}

		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	},
}
