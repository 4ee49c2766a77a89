package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"candidate-evaluator/internal/vectorstore"
)

const (
	contextTopK = 6
	// jobDescSummaryLimit bounds the job-description excerpt fed into the
	// synthesis prompt.
	jobDescSummaryLimit = 400
	// longReportThreshold and longReportFloor implement the override that
	// keeps substantive reports from being under-scored.
	longReportThreshold = 800
	longReportFloor     = 2.5

	longReportNote = " [Adjusted: long report content detected; enforced minimum score 2.5 per policy.]"
)

// Retriever supplies ranked reference-context texts for a collection.
type Retriever interface {
	SearchTexts(ctx context.Context, collection, query string, topK int) ([]string, error)
}

// LLMClient issues one strict-JSON completion per call at temperature 0.
type LLMClient interface {
	CompleteJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Engine runs the three-stage evaluation protocol: CV scoring, project
// scoring with a deterministic floor, and synthesis.
type Engine struct {
	retriever Retriever
	llm       LLMClient
	logger    *zap.Logger
}

func NewEngine(retriever Retriever, llm LLMClient, logger *zap.Logger) *Engine {
	return &Engine{retriever: retriever, llm: llm, logger: logger}
}

// Input is everything the engine needs for one job. Hints are already
// truncated by the caller.
type Input struct {
	JobTitle       string
	CVHints        string
	ReportHints    string
	ReferenceSetID string
	JobID          string
	DocVersions    string
	PriorWarnings  string
}

// RawOutputs keeps the unmodified model payloads for audit.
type RawOutputs struct {
	CVRaw      json.RawMessage `json:"cv_raw"`
	ProjectRaw json.RawMessage `json:"proj_raw"`
	FinalRaw   json.RawMessage `json:"final_raw"`
}

type Debug struct {
	BaselineProject float64        `json:"baseline_proj"`
	InputLengths    map[string]int `json:"len"`
	RepairWarnings  []string       `json:"repair_warnings,omitempty"`
}

type Result struct {
	CVMatchRate     float64
	CVFeedback      string
	ProjectScore    float64
	ProjectFeedback string
	OverallSummary  string
	Raw             RawOutputs
	Debug           Debug
}

// Run executes the three stages sequentially; synthesis depends on both
// prior outputs. Transport and JSON-shape failures from any stage propagate
// to the caller; value-range violations are repaired in place.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	jobDesc, cvRubric, err := e.fetchCVContext(ctx, in.JobTitle, in.ReferenceSetID)
	if err != nil {
		return nil, err
	}
	caseBrief, projectRubric, err := e.fetchProjectContext(ctx, in.ReferenceSetID)
	if err != nil {
		return nil, err
	}

	baseline := Baseline(in.ReportHints)

	vars := promptVars{
		JobTitle:      in.JobTitle,
		JobID:         in.JobID,
		DocVersions:   in.DocVersions,
		PriorWarnings: in.PriorWarnings,
		JobDesc:       jobDesc,
		CVRubric:      cvRubric,
		CVHints:       in.CVHints,
		CaseBrief:     caseBrief,
		ProjectRubric: projectRubric,
		ReportHints:   in.ReportHints,
		JobDescShort:  truncate(strings.TrimSpace(jobDesc), jobDescSummaryLimit),
	}

	var warnings []string

	// Stage 1: CV scoring.
	cvRaw, err := e.llm.CompleteJSON(ctx, buildCVPrompt(vars))
	if err != nil {
		return nil, fmt.Errorf("cv stage failed: %w", err)
	}
	cvRes, cvWarnings, err := ParseCVResult(cvRaw)
	if err != nil {
		return nil, fmt.Errorf("cv stage failed: %w", err)
	}
	warnings = append(warnings, cvWarnings...)

	// Stage 2: project scoring with the deterministic floor.
	projRaw, err := e.llm.CompleteJSON(ctx, buildProjectPrompt(vars, baseline))
	if err != nil {
		return nil, fmt.Errorf("project stage failed: %w", err)
	}
	projRes, projWarnings, err := ParseProjectResult(projRaw)
	if err != nil {
		return nil, fmt.Errorf("project stage failed: %w", err)
	}
	warnings = append(warnings, projWarnings...)

	// The deterministic floor always wins over a lower model estimate.
	finalScore := baseline
	if projRes.ProjectScore > finalScore {
		finalScore = projRes.ProjectScore
	}
	projectFeedback := projRes.ProjectFeedback
	if len(in.ReportHints) >= longReportThreshold && finalScore < longReportFloor {
		e.logger.Info("long-report floor applied",
			zap.String("job_id", in.JobID),
			zap.Float64("score", finalScore))
		finalScore = longReportFloor
		projectFeedback += longReportNote
	}

	// Stage 3: synthesis. No numeric re-derivation happens here.
	cvJSON, _ := json.Marshal(cvRes)
	projectJSON, _ := json.Marshal(ProjectResult{
		ProjectScore:    finalScore,
		ProjectFeedback: projectFeedback,
	})
	finalRaw, err := e.llm.CompleteJSON(ctx, buildFinalPrompt(vars, string(cvJSON), string(projectJSON)))
	if err != nil {
		return nil, fmt.Errorf("synthesis stage failed: %w", err)
	}
	finalRes, finalWarnings, err := ParseFinalResult(finalRaw)
	if err != nil {
		return nil, fmt.Errorf("synthesis stage failed: %w", err)
	}
	warnings = append(warnings, finalWarnings...)

	if len(warnings) > 0 {
		e.logger.Warn("model output repaired",
			zap.String("job_id", in.JobID),
			zap.Strings("warnings", warnings))
	}

	return &Result{
		CVMatchRate:     cvRes.CVMatchRate,
		CVFeedback:      cvRes.CVFeedback,
		ProjectScore:    finalScore,
		ProjectFeedback: projectFeedback,
		OverallSummary:  finalRes.OverallSummary,
		Raw: RawOutputs{
			CVRaw:      cvRaw,
			ProjectRaw: projRaw,
			FinalRaw:   finalRaw,
		},
		Debug: Debug{
			BaselineProject: baseline,
			InputLengths: map[string]int{
				"job_desc":       len(jobDesc),
				"cv_rubric":      len(cvRubric),
				"case_brief":     len(caseBrief),
				"project_rubric": len(projectRubric),
				"cv_hints":       len(in.CVHints),
				"report_hints":   len(in.ReportHints),
			},
			RepairWarnings: warnings,
		},
	}, nil
}

func (e *Engine) fetchCVContext(ctx context.Context, jobTitle, refSetID string) (string, string, error) {
	jdTexts, err := e.retriever.SearchTexts(ctx,
		vectorstore.CollectionName(refSetID, "job_desc"),
		fmt.Sprintf("%s backend cloud api", jobTitle), contextTopK)
	if err != nil {
		return "", "", fmt.Errorf("job description retrieval failed: %w", err)
	}
	rubTexts, err := e.retriever.SearchTexts(ctx,
		vectorstore.CollectionName(refSetID, "scoring_rubric"),
		"cv rubric backend", contextTopK)
	if err != nil {
		return "", "", fmt.Errorf("cv rubric retrieval failed: %w", err)
	}
	return joinContext(jdTexts), joinContext(rubTexts), nil
}

func (e *Engine) fetchProjectContext(ctx context.Context, refSetID string) (string, string, error) {
	cbTexts, err := e.retriever.SearchTexts(ctx,
		vectorstore.CollectionName(refSetID, "case_brief"),
		"backend case brief rag", contextTopK)
	if err != nil {
		return "", "", fmt.Errorf("case brief retrieval failed: %w", err)
	}
	rubTexts, err := e.retriever.SearchTexts(ctx,
		vectorstore.CollectionName(refSetID, "scoring_rubric"),
		"project rubric backend", contextTopK)
	if err != nil {
		return "", "", fmt.Errorf("project rubric retrieval failed: %w", err)
	}
	return joinContext(cbTexts), joinContext(rubTexts), nil
}

func joinContext(texts []string) string {
	return strings.Join(texts, "\n---\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
