package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/scoring"
	"candidate-evaluator/internal/vectorstore"
)

// hintLimit bounds the extracted-text prefix fed into prompts.
const hintLimit = 4000

// EvaluationEngine is the scoring protocol the orchestrator drives.
type EvaluationEngine interface {
	Run(ctx context.Context, in scoring.Input) (*scoring.Result, error)
}

// Orchestrator owns the job state machine: claim, stage logging, scoring,
// result persistence and terminal transitions.
type Orchestrator struct {
	jobs      repositories.JobRepository
	evals     repositories.EvaluationRepository
	storage   Storage
	extractor TextExtractor
	retrieval *RetrievalService
	engine    EvaluationEngine
	logger    *zap.Logger
}

func NewOrchestrator(
	jobs repositories.JobRepository,
	evals repositories.EvaluationRepository,
	storage Storage,
	extractor TextExtractor,
	retrieval *RetrievalService,
	engine EvaluationEngine,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:      jobs,
		evals:     evals,
		storage:   storage,
		extractor: extractor,
		retrieval: retrieval,
		engine:    engine,
		logger:    logger,
	}
}

// ProcessJob runs one attempt of the evaluation pipeline for jobID. The
// claim is atomic; a job another worker already holds is skipped without
// error. Any failure after the claim moves the job to failed and returns
// the triggering error so the worker's retry policy can act on it.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := o.jobs.ClaimForProcessing(jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotClaimable) {
			o.logger.Warn("job not claimable, skipping", zap.String("job_id", jobID.String()))
			return nil
		}
		return fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}

	log := o.logger.With(zap.String("job_id", job.ID.String()), zap.Int("attempt", job.Attempts))
	log.Info("job claimed", zap.String("job_title", job.JobTitle))

	if err := o.runPipeline(ctx, job, log); err != nil {
		o.recordFailure(job.ID, err, log)
		return err
	}
	return nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, job *models.Job, log *zap.Logger) error {
	refSetID := ""
	if job.ReferenceSetID != nil {
		refSetID = job.ReferenceSetID.String()
	}

	o.appendStage(job.ID, models.StageParseCV, models.StageStarted, nil, log)
	o.appendStage(job.ID, models.StageParseReport, models.StageStarted, nil, log)

	cvHints := o.extractHints(&job.CVDocument)
	reportHints := o.extractHints(&job.ReportDocument)

	cidJD := vectorstore.CollectionName(refSetID, "job_desc")
	cidRub := vectorstore.CollectionName(refSetID, "scoring_rubric")
	cidCB := vectorstore.CollectionName(refSetID, "case_brief")

	var priorWarnings []string
	if o.collectionCount(ctx, cidJD, log) == 0 {
		priorWarnings = append(priorWarnings, "job_desc_missing")
	}
	if o.collectionCount(ctx, cidRub, log) == 0 {
		priorWarnings = append(priorWarnings, "scoring_rubric_missing")
	}
	if o.collectionCount(ctx, cidCB, log) == 0 {
		priorWarnings = append(priorWarnings, "case_brief_missing")
	}

	res, err := o.engine.Run(ctx, scoring.Input{
		JobTitle:       job.JobTitle,
		CVHints:        cvHints,
		ReportHints:    reportHints,
		ReferenceSetID: refSetID,
		JobID:          job.ID.String(),
		DocVersions: fmt.Sprintf("cv=%s,report=%s,refset=%s",
			job.CVDocumentID, job.ReportDocumentID, refSetID),
		PriorWarnings: strings.Join(priorWarnings, ","),
	})
	if err != nil {
		return err
	}

	o.appendStage(job.ID, models.StageEvalCV, models.StageSuccess, nil, log)
	o.appendStage(job.ID, models.StageEvalProject, models.StageSuccess, nil, log)
	o.appendStage(job.ID, models.StageSynthesize, models.StageSuccess, map[string]interface{}{
		"cv_match_rate": res.CVMatchRate,
		"project_score": res.ProjectScore,
	}, log)

	rawLLM, err := json.Marshal(map[string]interface{}{
		"cv_raw":    res.Raw.CVRaw,
		"proj_raw":  res.Raw.ProjectRaw,
		"final_raw": res.Raw.FinalRaw,
		"debug":     res.Debug,
	})
	if err != nil {
		return fmt.Errorf("failed to encode raw model outputs: %w", err)
	}

	if err := o.evals.Upsert(&models.Evaluation{
		JobID:           job.ID,
		CVMatchRate:     res.CVMatchRate,
		CVFeedback:      res.CVFeedback,
		ProjectScore:    res.ProjectScore,
		ProjectFeedback: res.ProjectFeedback,
		OverallSummary:  res.OverallSummary,
		RawLLM:          datatypes.JSON(rawLLM),
	}); err != nil {
		return fmt.Errorf("failed to persist evaluation: %w", err)
	}

	if err := o.jobs.MarkCompleted(job.ID); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	log.Info("job completed",
		zap.Float64("cv_match_rate", res.CVMatchRate),
		zap.Float64("project_score", res.ProjectScore))
	return nil
}

// extractHints reads and extracts a document's text, truncated to the hint
// limit without splitting a rune. Extraction problems surface downstream as
// empty hints plus a prior warning, not as pipeline failures.
func (o *Orchestrator) extractHints(doc *models.Document) string {
	f, err := o.storage.Open(doc.StoragePath)
	if err != nil {
		o.logger.Warn("failed to open document",
			zap.String("doc_id", doc.ID.String()),
			zap.String("storage_path", doc.StoragePath),
			zap.Error(err))
		return ""
	}
	defer f.Close()

	text := strings.TrimSpace(o.extractor.Extract(f, GuessMime(doc.MimeType, doc.StoragePath)))
	if len(text) > hintLimit {
		cut := hintLimit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}

func (o *Orchestrator) collectionCount(ctx context.Context, collection string, log *zap.Logger) int {
	count, err := o.retrieval.Count(ctx, collection)
	if err != nil {
		log.Warn("failed to count collection", zap.String("collection", collection), zap.Error(err))
		return 0
	}
	return count
}

// appendStage writes an audit row; a bookkeeping failure is logged, never
// allowed to abort the pipeline.
func (o *Orchestrator) appendStage(jobID uuid.UUID, stage models.Stage, status models.StageStatus, details map[string]interface{}, log *zap.Logger) {
	if err := o.jobs.AppendStageLog(jobID, stage, status, details); err != nil {
		log.Error("failed to append stage log", zap.String("stage", string(stage)), zap.Error(err))
	}
}

func (o *Orchestrator) recordFailure(jobID uuid.UUID, cause error, log *zap.Logger) {
	o.appendStage(jobID, models.StageSynthesize, models.StageFailed, map[string]interface{}{
		"error": cause.Error(),
	}, log)

	if err := o.jobs.MarkFailed(jobID, string(evalerr.KindOf(cause)), cause.Error()); err != nil {
		log.Error("failed to mark job failed", zap.Error(err))
	}
	log.Error("job failed", zap.Error(cause))
}
