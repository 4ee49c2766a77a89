package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-collection chunk counts from the vector index",
	Run: func(cmd *cobra.Command, _ []string) {
		_, _, retrieval, zlog := buildEnv(cmd)

		stats, err := retrieval.Stats(cmd.Context())
		if err != nil {
			zlog.Fatal("failed to collect index stats", zap.Error(err))
		}

		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
	},
}
