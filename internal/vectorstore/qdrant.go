package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// pointNamespace seeds deterministic UUIDv5 point ids from payload ids, so
// re-upserting the same chunk replaces the previous point.
var pointNamespace = uuid.MustParse("9f2c1e7a-4b4c-4c39-9d2e-6f0a5b8c7d11")

// QdrantIndex is the persistent ANN-backed store. Collections are created
// on first upsert with the dimensionality of the incoming batch.
type QdrantIndex struct {
	client *qdrant.Client

	mu    sync.Mutex
	known map[string]bool
}

func NewQdrantIndex(urlStr, apiKey string) (*QdrantIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port; the REST port in the URL is ignored unless set explicitly.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantIndex{client: client, known: make(map[string]bool)}, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, collection string, dim int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.known[collection] {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %q: %w", collection, err)
		}
	}

	q.known[collection] = true
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []Payload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("vectors and payloads length mismatch: %d != %d", len(vectors), len(payloads))
	}
	if len(vectors) == 0 {
		return nil
	}

	if err := q.ensureCollection(ctx, collection, len(vectors[0])); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i := range vectors {
		p := payloads[i]
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewSHA1(pointNamespace, []byte(p.ID)).String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"id":           p.ID,
				"doc_id":       p.DocID,
				"offset":       int64(p.Offset),
				"text":         p.Text,
				"ts":           p.Timestamp,
				"storage_path": p.StoragePath,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil, nil
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %q: %w", collection, err)
	}

	hits := make([]Hit, 0, len(points))
	for _, point := range points {
		hits = append(hits, Hit{
			Score:   point.Score,
			Payload: payloadFromValues(point.Payload),
		})
	}
	return hits, nil
}

func (q *QdrantIndex) Count(ctx context.Context, collection string) (int, error) {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return 0, nil
	}

	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %q: %w", collection, err)
	}
	return int(count), nil
}

func (q *QdrantIndex) Stats(ctx context.Context) (map[string]int, error) {
	names, err := q.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	stats := make(map[string]int, len(names))
	for _, name := range names {
		count, err := q.Count(ctx, name)
		if err != nil {
			stats[name] = 0
			continue
		}
		stats[name] = count
	}
	return stats, nil
}

func payloadFromValues(values map[string]*qdrant.Value) Payload {
	var p Payload
	if v, ok := values["id"]; ok {
		p.ID = v.GetStringValue()
	}
	if v, ok := values["doc_id"]; ok {
		p.DocID = v.GetStringValue()
	}
	if v, ok := values["offset"]; ok {
		p.Offset = int(v.GetIntegerValue())
	}
	if v, ok := values["text"]; ok {
		p.Text = v.GetStringValue()
	}
	if v, ok := values["ts"]; ok {
		p.Timestamp = v.GetStringValue()
	}
	if v, ok := values["storage_path"]; ok {
		p.StoragePath = v.GetStringValue()
	}
	return p
}
