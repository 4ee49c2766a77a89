package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/services"
	"candidate-evaluator/internal/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range vecs {
		vecs[i] = []float32{1}
	}
	return vecs, nil
}

func (stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

type uploadFixture struct {
	app        *fiber.App
	refSetRepo repositories.ReferenceSetRepository
}

func newUploadFixture(t *testing.T, maxFileSize int64) *uploadFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	storage, err := services.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	zlog := zap.NewNop()
	retrieval := services.NewRetrievalService(
		storage, services.NewTextExtractor(), stubEmbedder{}, vectorstore.NewMemoryIndex(), zlog)

	docRepo := repositories.NewDocumentRepository(db)
	refSetRepo := repositories.NewReferenceSetRepository(db)
	uploads := NewUploadHandler(docRepo, storage, retrieval, maxFileSize, zlog)
	references := NewReferenceHandler(refSetRepo, uploads, zlog)

	app := fiber.New()
	app.Post("/upload", uploads.HandleUpload)
	app.Post("/reference-sets/upload", references.HandleUploadReference)

	return &uploadFixture{app: app, refSetRepo: refSetRepo}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, val := range fields {
		if err := w.WriteField(name, val); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for name, content := range files {
		fw, err := w.CreateFormFile(name, name+".txt")
		if err != nil {
			t.Fatalf("create form file %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write file %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newUploadFixture(t, 4)

	body, contentType := multipartBody(t, nil, map[string]string{
		"cv":             "this cv is well past four bytes",
		"project_report": "ok",
	})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	got := decodeBody(t, resp)
	msg, _ := got["error"].(string)
	if !strings.Contains(msg, "file too large") {
		t.Fatalf("error = %q, want file too large", msg)
	}
}

func TestUploadReferenceRejectsOversizedFile(t *testing.T) {
	f := newUploadFixture(t, 4)
	refSet := &models.ReferenceSet{ID: uuid.New(), Name: "Backend Oct", IsActive: true}
	if err := f.refSetRepo.Create(refSet); err != nil {
		t.Fatalf("reference set: %v", err)
	}

	body, contentType := multipartBody(t, map[string]string{
		"reference_set_id": refSet.ID.String(),
		"type":             string(models.DocTypeJobDesc),
	}, map[string]string{
		"file": "a job description longer than the limit",
	})
	req := httptest.NewRequest(http.MethodPost, "/reference-sets/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestUploadPairSucceeds(t *testing.T) {
	f := newUploadFixture(t, 1<<20)

	body, contentType := multipartBody(t, nil, map[string]string{
		"cv":             "five years of Go and Postgres",
		"project_report": "built a queue worker with retries",
	})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	got := decodeBody(t, resp)
	docs, _ := got["documents"].([]interface{})
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}
}
