package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/services"
)

type EvaluateHandler struct {
	jobRepo    repositories.JobRepository
	docRepo    repositories.DocumentRepository
	refSetRepo repositories.ReferenceSetRepository
	guard      *services.IdempotencyGuard
	worker     services.Worker
	logger     *zap.Logger
}

func NewEvaluateHandler(
	jobRepo repositories.JobRepository,
	docRepo repositories.DocumentRepository,
	refSetRepo repositories.ReferenceSetRepository,
	guard *services.IdempotencyGuard,
	worker services.Worker,
	logger *zap.Logger,
) *EvaluateHandler {
	return &EvaluateHandler{
		jobRepo:    jobRepo,
		docRepo:    docRepo,
		refSetRepo: refSetRepo,
		guard:      guard,
		worker:     worker,
		logger:     logger,
	}
}

// HandleEvaluate handles POST /evaluate. A valid request always answers 202
// with the job id; repeated requests carrying the same Idempotency-Key header
// answer with the original job instead of creating a new one.
func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req.JobTitle = strings.TrimSpace(req.JobTitle)
	if req.JobTitle == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_title is required",
		})
	}

	cvID, err := uuid.Parse(req.CVDocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cv_document_id must be a valid UUID",
		})
	}
	reportID, err := uuid.Parse(req.ReportDocumentID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "report_document_id must be a valid UUID",
		})
	}

	cvDoc, err := h.docRepo.FindByID(cvID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "cv document not found",
		})
	}
	if cvDoc.Type != models.DocTypeCV {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cv_document_id does not reference a cv document",
		})
	}
	reportDoc, err := h.docRepo.FindByID(reportID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "report document not found",
		})
	}
	if reportDoc.Type != models.DocTypeReport {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "report_document_id does not reference a report document",
		})
	}

	var refSetID *uuid.UUID
	if req.ReferenceSetID != "" {
		parsed, err := uuid.Parse(req.ReferenceSetID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reference_set_id must be a valid UUID",
			})
		}
		if _, err := h.refSetRepo.FindByID(parsed); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "reference set not found",
			})
		}
		refSetID = &parsed
	}

	idemKey := strings.TrimSpace(c.Get("Idempotency-Key"))
	job, created, err := h.guard.RegisterOrGet(idemKey, func() (*models.Job, error) {
		job := &models.Job{
			ID:               uuid.New(),
			JobTitle:         req.JobTitle,
			CVDocumentID:     cvID,
			ReportDocumentID: reportID,
			ReferenceSetID:   refSetID,
			Status:           models.StatusQueued,
		}
		if err := h.jobRepo.Create(job); err != nil {
			return nil, err
		}
		return job, nil
	})
	if err != nil {
		h.logger.Error("failed to register evaluation job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create evaluation job",
		})
	}

	if created {
		h.worker.EnqueueJob(job.ID)
	}

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	})
}
