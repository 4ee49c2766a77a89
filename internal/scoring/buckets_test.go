package scoring

import (
	"math"
	"strings"
	"testing"
)

func TestBaselineEmptyText(t *testing.T) {
	if got := Baseline(""); got != 1.0 {
		t.Fatalf("Baseline(\"\") = %v, want 1.0", got)
	}
}

func TestBaselineAllKeywords(t *testing.T) {
	var all []string
	for _, b := range projectBuckets {
		all = append(all, b.keywords...)
	}
	got := Baseline(strings.Join(all, " "))
	if got != 5.0 {
		t.Fatalf("Baseline with every keyword = %v, want 5.0", got)
	}
}

func TestBaselineResilienceKeywords(t *testing.T) {
	// 3 of 8 resilience keywords: (1+4*3/8)*0.20 = 0.5;
	// the other buckets contribute their floor 1*weight = 0.80.
	got := Baseline("we use retry with backoff and a circuit breaker")
	if math.Abs(got-1.3) > 1e-9 {
		t.Fatalf("Baseline = %v, want 1.3", got)
	}
}

func TestBaselineCaseInsensitive(t *testing.T) {
	if Baseline("RETRY Backoff CIRCUIT") != Baseline("retry backoff circuit") {
		t.Fatal("baseline should be case insensitive")
	}
}

func TestBaselineRange(t *testing.T) {
	for _, text := range []string{"", "retrieval embedding rag", strings.Repeat("test retry readme bonus ", 100)} {
		got := Baseline(text)
		if got < 1 || got > 5 {
			t.Fatalf("Baseline(%q) = %v out of [1,5]", text, got)
		}
	}
}

func TestBucketWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, b := range projectBuckets {
		sum += b.weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("weights sum to %v, want 1.0", sum)
	}
}
