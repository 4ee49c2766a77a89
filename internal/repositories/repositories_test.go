package repositories

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

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

	// A single connection keeps every session on the same in-memory database.
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

func createTestDocument(t *testing.T, db *gorm.DB, docType models.DocumentType) *models.Document {
	t.Helper()

	doc := &models.Document{
		ID:               uuid.New(),
		Type:             docType,
		Filename:         "file.pdf",
		OriginalFileName: "file.pdf",
		MimeType:         "application/pdf",
		StoragePath:      "uploads/2026/01/01/file.pdf",
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func createTestJob(t *testing.T, db *gorm.DB) *models.Job {
	t.Helper()

	cv := createTestDocument(t, db, models.DocTypeCV)
	report := createTestDocument(t, db, models.DocTypeReport)

	job := &models.Job{
		ID:               uuid.New(),
		JobTitle:         "Backend Engineer",
		CVDocumentID:     cv.ID,
		ReportDocumentID: report.ID,
		Status:           models.StatusQueued,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}
