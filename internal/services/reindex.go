package services

import (
	"context"

	"go.uber.org/zap"

	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/vectorstore"
)

// maxReindexErrors caps the error detail carried in a reindex report.
const maxReindexErrors = 10

// CandidateCollection holds indexed chunks of uploaded CVs and reports.
const CandidateCollection = "references"

// ReindexService rebuilds vector collections from the stored documents.
// Each document is handled in isolation so one unreadable file cannot
// abort the rest of the pass.
type ReindexService struct {
	docRepo   repositories.DocumentRepository
	retrieval *RetrievalService
	logger    *zap.Logger
}

func NewReindexService(docRepo repositories.DocumentRepository, retrieval *RetrievalService, logger *zap.Logger) *ReindexService {
	return &ReindexService{docRepo: docRepo, retrieval: retrieval, logger: logger}
}

// ReindexAll re-embeds every stored document into its collection. Documents
// with no storage path are skipped, failures are counted and reported with
// at most maxReindexErrors entries of detail.
func (s *ReindexService) ReindexAll(ctx context.Context) (*models.ReindexResponse, error) {
	docs, err := s.docRepo.FindAll()
	if err != nil {
		return nil, err
	}

	resp := &models.ReindexResponse{Errors: []models.ReindexError{}}
	for _, doc := range docs {
		if doc.StoragePath == "" {
			resp.SkippedDocs++
			continue
		}

		collection := CandidateCollection
		if doc.ReferenceSetID != nil {
			collection = vectorstore.CollectionName(doc.ReferenceSetID.String(), string(doc.Type))
		}

		if _, err := s.retrieval.IndexDocument(ctx, collection, doc.StoragePath, doc.MimeType, doc.ID.String()); err != nil {
			resp.FailedDocs++
			if len(resp.Errors) < maxReindexErrors {
				resp.Errors = append(resp.Errors, models.ReindexError{
					DocID:       doc.ID.String(),
					StoragePath: doc.StoragePath,
					Error:       err.Error(),
				})
			}
			s.logger.Warn("reindex failed for document",
				zap.String("doc_id", doc.ID.String()),
				zap.Error(err))
			continue
		}
		resp.ReindexedDocs++
	}

	stats, err := s.retrieval.Stats(ctx)
	if err != nil {
		s.logger.Warn("failed to collect collection stats after reindex", zap.Error(err))
	} else {
		resp.Collections = stats
	}

	s.logger.Info("reindex pass finished",
		zap.Int("reindexed", resp.ReindexedDocs),
		zap.Int("skipped", resp.SkippedDocs),
		zap.Int("failed", resp.FailedDocs))
	return resp, nil
}
