package services

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"candidate-evaluator/internal/vectorstore"
)

func newTestRetrieval(storage *fakeStorage) *RetrievalService {
	return NewRetrievalService(
		storage,
		NewTextExtractor(),
		fakeEmbedder{},
		vectorstore.NewMemoryIndex(),
		zap.NewNop(),
	)
}

func TestIndexDocumentPayloadShape(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	storage.files["docs/a.txt"] = []byte(strings.Repeat("alpha ", 200)) // 1200 chars -> 2 chunks

	r := newTestRetrieval(storage)
	chunks, err := r.IndexDocument(ctx, "c", "docs/a.txt", "text/plain", "doc-1")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if chunks != 2 {
		t.Fatalf("chunks = %d, want 2", chunks)
	}

	hits, err := r.Search(ctx, "c", "alpha", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	ids := map[string]bool{}
	for _, h := range hits {
		ids[h.ID] = true
		if h.DocID != "doc-1" {
			t.Fatalf("doc id = %q, want doc-1", h.DocID)
		}
		if h.StoragePath != "docs/a.txt" {
			t.Fatalf("storage path = %q", h.StoragePath)
		}
		if h.Timestamp == "" {
			t.Fatal("timestamp missing")
		}
	}
	if !ids["doc-1:0"] || !ids["doc-1:1"] {
		t.Fatalf("unexpected payload ids: %v", ids)
	}
}

func TestIndexDocumentEmpty(t *testing.T) {
	storage := newFakeStorage()
	storage.files["docs/empty.txt"] = []byte("")

	r := newTestRetrieval(storage)
	chunks, err := r.IndexDocument(context.Background(), "c", "docs/empty.txt", "text/plain", "doc-1")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if chunks != 0 {
		t.Fatalf("chunks = %d, want 0 for empty document", chunks)
	}
}

func TestIndexDocumentMissingFile(t *testing.T) {
	r := newTestRetrieval(newFakeStorage())
	chunks, err := r.IndexDocument(context.Background(), "c", "docs/missing.txt", "text/plain", "doc-1")
	if err != nil {
		t.Fatalf("missing file should index zero chunks, got error: %v", err)
	}
	if chunks != 0 {
		t.Fatalf("chunks = %d, want 0", chunks)
	}
}

func TestIndexDocumentReplacesOnReindex(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	storage.files["docs/a.txt"] = []byte("first version")

	r := newTestRetrieval(storage)
	if _, err := r.IndexDocument(ctx, "c", "docs/a.txt", "text/plain", "doc-1"); err != nil {
		t.Fatalf("index: %v", err)
	}

	storage.files["docs/a.txt"] = []byte("second version")
	if _, err := r.IndexDocument(ctx, "c", "docs/a.txt", "text/plain", "doc-1"); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	n, err := r.Count(ctx, "c")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d after reindex, want 1", n)
	}

	texts, err := r.SearchTexts(ctx, "c", "second version", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(texts) != 1 || texts[0] != "second version" {
		t.Fatalf("stale chunk returned: %v", texts)
	}
}

func TestSearchRanksCloserTextFirst(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()
	storage.files["docs/a.txt"] = []byte("retry backoff queue")
	storage.files["docs/b.txt"] = []byte("zzzz qqqq xxxx")

	r := newTestRetrieval(storage)
	r.IndexDocument(ctx, "c", "docs/a.txt", "text/plain", "a")
	r.IndexDocument(ctx, "c", "docs/b.txt", "text/plain", "b")

	texts, err := r.SearchTexts(ctx, "c", "retry backoff queue", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(texts) != 2 || texts[0] != "retry backoff queue" {
		t.Fatalf("unexpected ranking: %v", texts)
	}
}
