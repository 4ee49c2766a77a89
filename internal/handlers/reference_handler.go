package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/vectorstore"
)

func collectionFor(refSetID string, docType models.DocumentType) string {
	return vectorstore.CollectionName(refSetID, string(docType))
}

type ReferenceHandler struct {
	refSetRepo repositories.ReferenceSetRepository
	uploads    *UploadHandler
	logger     *zap.Logger
}

func NewReferenceHandler(
	refSetRepo repositories.ReferenceSetRepository,
	uploads *UploadHandler,
	logger *zap.Logger,
) *ReferenceHandler {
	return &ReferenceHandler{
		refSetRepo: refSetRepo,
		uploads:    uploads,
		logger:     logger,
	}
}

// HandleCreateReferenceSet handles POST /reference-sets.
func (h *ReferenceHandler) HandleCreateReferenceSet(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	refSet := &models.ReferenceSet{
		ID:       uuid.New(),
		Name:     req.Name,
		IsActive: true,
	}
	if err := h.refSetRepo.Create(refSet); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "reference set name already exists",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.ReferenceSetResponse{
		ID:        refSet.ID.String(),
		Name:      refSet.Name,
		IsActive:  refSet.IsActive,
		CreatedAt: refSet.CreatedAt,
	})
}

// HandleListReferenceSets handles GET /reference-sets.
func (h *ReferenceHandler) HandleListReferenceSets(c *fiber.Ctx) error {
	refSets, err := h.refSetRepo.FindAll()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list reference sets",
		})
	}

	out := make([]models.ReferenceSetResponse, 0, len(refSets))
	for _, rs := range refSets {
		out = append(out, models.ReferenceSetResponse{
			ID:        rs.ID.String(),
			Name:      rs.Name,
			IsActive:  rs.IsActive,
			CreatedAt: rs.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"reference_sets": out})
}

// HandleUploadReference handles POST /reference-sets/upload: a ground-truth
// document (job description, case brief or rubric) scoped to a reference set.
func (h *ReferenceHandler) HandleUploadReference(c *fiber.Ctx) error {
	refSetIDRaw := c.FormValue("reference_set_id")
	refSetID, err := uuid.Parse(refSetIDRaw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "reference_set_id must be a valid UUID",
		})
	}

	docType := models.DocumentType(c.FormValue("type"))
	if !models.ValidDocumentType(docType) || docType == models.DocTypeCV || docType == models.DocTypeReport {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "type must be one of: job_desc, case_brief, scoring_rubric",
		})
	}

	if _, err := h.refSetRepo.FindByID(refSetID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "reference set not found",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	doc, chunks, err := h.uploads.saveDocument(c, file, docType, &refSetID)
	if err != nil {
		return uploadErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadReferenceResponse{
		DocumentID:     doc.ID.String(),
		ReferenceSetID: refSetID.String(),
		Collection:     collectionFor(refSetID.String(), docType),
		ChunksIndexed:  chunks,
	})
}
