package vectorstore

import "context"

// Payload is the metadata stored alongside each vector. ID is unique within
// a collection ("<doc_id>:<chunk_index>"); upserting the same ID replaces
// the previous entry.
type Payload struct {
	ID          string `json:"id"`
	DocID       string `json:"doc_id"`
	Offset      int    `json:"offset"`
	Text        string `json:"text"`
	Timestamp   string `json:"ts"`
	StoragePath string `json:"storage_path"`
}

type Hit struct {
	Score   float32
	Payload Payload
}

// Index is a per-collection vector store with cosine-ranked search.
// Collections are created lazily on first upsert; querying or counting an
// absent collection is not an error.
type Index interface {
	Upsert(ctx context.Context, collection string, vectors [][]float32, payloads []Payload) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]Hit, error)
	Count(ctx context.Context, collection string) (int, error)
	Stats(ctx context.Context) (map[string]int, error)
}
