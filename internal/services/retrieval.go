package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"candidate-evaluator/internal/vectorstore"
)

// RetrievalService owns indexing (read -> extract -> chunk -> embed ->
// upsert) and retrieval (embed query -> search) over an injected vector
// index instance.
type RetrievalService struct {
	storage   Storage
	extractor TextExtractor
	embedder  Embedder
	index     vectorstore.Index
	logger    *zap.Logger
}

func NewRetrievalService(
	storage Storage,
	extractor TextExtractor,
	embedder Embedder,
	index vectorstore.Index,
	logger *zap.Logger,
) *RetrievalService {
	return &RetrievalService{
		storage:   storage,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		logger:    logger,
	}
}

// Hit is a search result: the chunk payload with the similarity score
// merged in.
type Hit struct {
	Score float32 `json:"score"`
	vectorstore.Payload
}

func (r *RetrievalService) readText(storagePath, mime string) string {
	m := GuessMime(mime, storagePath)

	f, err := r.storage.Open(storagePath)
	if err == nil {
		defer f.Close()
		return r.extractor.Extract(f, m)
	}
	r.logger.Warn("storage open failed, trying local path",
		zap.String("storage_path", storagePath), zap.Error(err))

	local, lerr := os.Open(r.storage.LocalPath(storagePath))
	if lerr != nil {
		r.logger.Error("file not found in storage or local path",
			zap.String("storage_path", storagePath))
		return ""
	}
	defer local.Close()
	return r.extractor.Extract(io.Reader(local), m)
}

// IndexDocument chunks, embeds and upserts one document into collection.
// Unreadable or empty documents index zero chunks without error, so one bad
// document cannot abort a bulk reindex.
func (r *RetrievalService) IndexDocument(ctx context.Context, collection, storagePath, mime, docID string) (int, error) {
	text := r.readText(storagePath, mime)
	chunks := ChunkText(text, DefaultChunkSize)
	if len(chunks) == 0 {
		r.logger.Warn("no chunks extracted",
			zap.String("storage_path", storagePath), zap.String("mime", mime))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	payloads := make([]vectorstore.Payload, len(chunks))
	for i, c := range chunks {
		payloads[i] = vectorstore.Payload{
			ID:          fmt.Sprintf("%s:%d", docID, i),
			DocID:       docID,
			Offset:      c.Offset,
			Text:        c.Text,
			Timestamp:   now,
			StoragePath: storagePath,
		}
	}

	if err := r.index.Upsert(ctx, collection, vectors, payloads); err != nil {
		return 0, fmt.Errorf("failed to upsert into %q: %w", collection, err)
	}

	r.logger.Info("document indexed",
		zap.String("collection", collection),
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

func (r *RetrievalService) Search(ctx context.Context, collection, query string, topK int) ([]Hit, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	raw, err := r.index.Query(ctx, collection, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", collection, err)
	}

	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, Hit{Score: h.Score, Payload: h.Payload})
	}
	return hits, nil
}

// SearchTexts returns just the ranked chunk texts, the shape the scoring
// engine consumes as prompt context.
func (r *RetrievalService) SearchTexts(ctx context.Context, collection, query string, topK int) ([]string, error) {
	hits, err := r.Search(ctx, collection, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		texts = append(texts, h.Text)
	}
	return texts, nil
}

func (r *RetrievalService) Count(ctx context.Context, collection string) (int, error) {
	return r.index.Count(ctx, collection)
}

func (r *RetrievalService) Stats(ctx context.Context) (map[string]int, error) {
	return r.index.Stats(ctx)
}
