package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"candidate-evaluator/internal/services"
)

type RetrieveHandler struct {
	retrieval *services.RetrievalService
	reindex   *services.ReindexService
	logger    *zap.Logger
}

func NewRetrieveHandler(retrieval *services.RetrievalService, reindex *services.ReindexService, logger *zap.Logger) *RetrieveHandler {
	return &RetrieveHandler{retrieval: retrieval, reindex: reindex, logger: logger}
}

// HandleRetrieve handles GET /retrieve: ranked chunk lookup against one
// collection, mostly useful for debugging what the evaluator will see.
func (h *RetrieveHandler) HandleRetrieve(c *fiber.Ctx) error {
	collection := strings.TrimSpace(c.Query("collection"))
	query := strings.TrimSpace(c.Query("query"))
	if collection == "" || query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "collection and query are required",
		})
	}
	topK := c.QueryInt("top_k", 5)
	if topK < 1 || topK > 50 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "top_k must be between 1 and 50",
		})
	}

	hits, err := h.retrieval.Search(c.Context(), collection, query, topK)
	if err != nil {
		h.logger.Error("retrieve failed",
			zap.String("collection", collection),
			zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "retrieval failed",
		})
	}

	return c.JSON(fiber.Map{
		"collection": collection,
		"query":      query,
		"hits":       hits,
	})
}

// HandleIndexStats handles GET /index/stats.
func (h *RetrieveHandler) HandleIndexStats(c *fiber.Ctx) error {
	stats, err := h.retrieval.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "failed to collect index stats",
		})
	}
	return c.JSON(fiber.Map{"collections": stats})
}

// HandleReindex handles POST /reindex.
func (h *RetrieveHandler) HandleReindex(c *fiber.Ctx) error {
	resp, err := h.reindex.ReindexAll(c.Context())
	if err != nil {
		h.logger.Error("reindex failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "reindex failed",
		})
	}
	return c.JSON(resp)
}
