package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/services"
)

type UploadHandler struct {
	docRepo     repositories.DocumentRepository
	storage     services.Storage
	retrieval   *services.RetrievalService
	maxFileSize int64
	logger      *zap.Logger
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storage services.Storage,
	retrieval *services.RetrievalService,
	maxFileSize int64,
	logger *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		docRepo:     docRepo,
		storage:     storage,
		retrieval:   retrieval,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// HandleUpload handles POST /upload: a CV and a project report in one
// multipart request. Both documents are indexed immediately.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	cvFile, err := c.FormFile("cv")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cv file is required",
		})
	}
	reportFile, err := c.FormFile("project_report")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project_report file is required",
		})
	}

	// Optional: scope the pair to a reference set so each document indexes
	// into the set's cv/report collections instead of the shared one.
	var refSetID *uuid.UUID
	if raw := c.FormValue("reference_set_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reference_set_id must be a valid UUID",
			})
		}
		refSetID = &parsed
	}

	var responses []models.UploadResponse
	for _, item := range []struct {
		file    *multipart.FileHeader
		docType models.DocumentType
	}{
		{cvFile, models.DocTypeCV},
		{reportFile, models.DocTypeReport},
	} {
		doc, _, err := h.saveDocument(c, item.file, item.docType, refSetID)
		if err != nil {
			return uploadErrorResponse(c, err)
		}
		responses = append(responses, models.UploadResponse{
			ID:           doc.ID.String(),
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
			Type:         string(doc.Type),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"documents": responses,
	})
}

// saveDocument persists the upload, records the document and indexes it.
// Indexing is best effort; the upload succeeds even when no text could be
// extracted. Failures come back as *fiber.Error values carrying the status
// code; callers render them with uploadErrorResponse.
func (h *UploadHandler) saveDocument(c *fiber.Ctx, file *multipart.FileHeader, docType models.DocumentType, refSetID *uuid.UUID) (*models.Document, int, error) {
	if file.Size > h.maxFileSize {
		return nil, 0, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("file too large. Max size: %d bytes", h.maxFileSize))
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Type:             docType,
		Filename:         file.Filename,
		OriginalFileName: file.Filename,
		MimeType:         mimeType,
		SHA256Checksum:   checksumUpload(file),
		ReferenceSetID:   refSetID,
	}
	if err := h.docRepo.Create(doc); err != nil {
		return nil, 0, fiber.NewError(fiber.StatusInternalServerError, "failed to save document record")
	}

	storagePath, err := h.storage.SaveUpload(file, doc.ID)
	if err != nil {
		return nil, 0, fiber.NewError(fiber.StatusInternalServerError,
			fmt.Sprintf("failed to save file: %v", err))
	}
	if err := h.docRepo.UpdateStoragePath(doc.ID, storagePath); err != nil {
		return nil, 0, fiber.NewError(fiber.StatusInternalServerError, "failed to attach storage path")
	}
	doc.StoragePath = storagePath

	collection := services.CandidateCollection
	if refSetID != nil {
		collection = collectionFor(refSetID.String(), docType)
	}
	chunks, err := h.retrieval.IndexDocument(c.Context(), collection, storagePath, mimeType, doc.ID.String())
	if err != nil {
		h.logger.Warn("failed to index uploaded document",
			zap.String("doc_id", doc.ID.String()),
			zap.Error(err))
	}

	return doc, chunks, nil
}

// uploadErrorResponse renders a saveDocument failure as a JSON error body,
// taking the status from the *fiber.Error when the failure carries one.
func uploadErrorResponse(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func checksumUpload(file *multipart.FileHeader) string {
	f, err := file.Open()
	if err != nil {
		return ""
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return ""
	}
	return hex.EncodeToString(hash.Sum(nil))
}
