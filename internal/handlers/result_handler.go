package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
)

type ResultHandler struct {
	jobRepo  repositories.JobRepository
	evalRepo repositories.EvaluationRepository
	logger   *zap.Logger
}

func NewResultHandler(
	jobRepo repositories.JobRepository,
	evalRepo repositories.EvaluationRepository,
	logger *zap.Logger,
) *ResultHandler {
	return &ResultHandler{jobRepo: jobRepo, evalRepo: evalRepo, logger: logger}
}

// HandleGetResult handles GET /result/:id. The response shape depends on the
// job status: queued and processing jobs report only id and status, failed
// jobs carry the error taxonomy fields, completed jobs carry the scores.
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id must be a valid UUID",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	}

	resp := models.ResultResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	}

	switch job.Status {
	case models.StatusFailed:
		resp.ErrorCode = job.ErrorCode
		resp.ErrorMessage = job.ErrorMessage
	case models.StatusCompleted:
		eval, err := h.evalRepo.FindByJobID(job.ID)
		if err != nil {
			h.logger.Error("completed job has no evaluation row",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "evaluation result missing",
			})
		}
		resp.Result = &models.EvaluationData{
			CVMatchRate:     eval.CVMatchRate,
			CVFeedback:      eval.CVFeedback,
			ProjectScore:    eval.ProjectScore,
			ProjectFeedback: eval.ProjectFeedback,
			OverallSummary:  eval.OverallSummary,
		}
	}

	return c.JSON(resp)
}
