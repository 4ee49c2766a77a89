package scoring

import (
	"fmt"
	"math"
	"strings"
)

// bucket is one dimension of the deterministic project baseline: a keyword
// vocabulary and its weight in the blended score.
type bucket struct {
	name     string
	keywords []string
	weight   float64
}

var projectBuckets = []bucket{
	{
		name:     "correctness",
		keywords: []string{"prompt", "chain", "rag", "retrieval", "embedding", "context", "grounding"},
		weight:   0.30,
	},
	{
		name:     "quality",
		keywords: []string{"modular", "clean", "refactor", "test", "pytest", "rspec", "coverage"},
		weight:   0.25,
	},
	{
		name:     "resilience",
		keywords: []string{"retry", "backoff", "timeout", "idempotency", "circuit", "worker", "async", "queue"},
		weight:   0.20,
	},
	{
		name:     "docs",
		keywords: []string{"readme", "setup", "instruction", "trade-off", "explain", "design"},
		weight:   0.15,
	},
	{
		name:     "creativity",
		keywords: []string{"bonus", "extra", "improve", "enhancement"},
		weight:   0.10,
	},
}

func init() {
	var sum float64
	for _, b := range projectBuckets {
		sum += b.weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		panic(fmt.Sprintf("project bucket weights sum to %.4f, want 1.0", sum))
	}
}

// Baseline computes the deterministic project floor score in [1,5] from the
// report hints alone. Each bucket's keyword match ratio maps to a 1-5
// sub-score; sub-scores combine by the fixed weights and round to 1 decimal.
func Baseline(reportHints string) float64 {
	text := strings.ToLower(reportHints)

	var total float64
	for _, b := range projectBuckets {
		present := 0
		for _, k := range b.keywords {
			if strings.Contains(text, k) {
				present++
			}
		}
		ratio := float64(present) / float64(len(b.keywords))
		total += (1 + ratio*4) * b.weight
	}

	return clamp(round1(total), 1, 5)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
