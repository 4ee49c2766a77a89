package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeStorage serves documents from memory, keyed by storage path.
type fakeStorage struct {
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]byte)}
}

func (s *fakeStorage) Open(storagePath string) (io.ReadCloser, error) {
	data, ok := s.files[storagePath]
	if !ok {
		return nil, evalerr.New(evalerr.KindNotFound, "file not found: %s", storagePath)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) SaveUpload(*multipart.FileHeader, uuid.UUID) (string, error) {
	return "", errors.New("not supported in tests")
}

func (s *fakeStorage) LocalPath(storagePath string) string {
	return filepath.Join("/nonexistent", storagePath)
}

// fakeEmbedder maps text to a letter-frequency vector, so equal texts embed
// identically and similar texts rank close under cosine.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = embedText(t)
	}
	return vectors, nil
}

func (f fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func embedText(text string) []float32 {
	v := make([]float32, 27)
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			v[r-'a']++
		case r >= 'A' && r <= 'Z':
			v[r-'A']++
		default:
			v[26]++
		}
	}
	return v
}

// fakeLLM replays canned stage payloads in call order.
type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) CompleteJSON(context.Context, string) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("no canned response")
	}
	return json.RawMessage(f.responses[i]), nil
}
