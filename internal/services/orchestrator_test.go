package services

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"candidate-evaluator/internal/evalerr"
	"candidate-evaluator/internal/models"
	"candidate-evaluator/internal/repositories"
	"candidate-evaluator/internal/scoring"
	"candidate-evaluator/internal/vectorstore"
)

type fakeEngine struct {
	res       *scoring.Result
	err       error
	lastInput scoring.Input
}

func (f *fakeEngine) Run(_ context.Context, in scoring.Input) (*scoring.Result, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type orchestratorFixture struct {
	db       *gorm.DB
	jobs     repositories.JobRepository
	evals    repositories.EvaluationRepository
	storage  *fakeStorage
	retrieve *RetrievalService
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	db := newTestDB(t)
	storage := newFakeStorage()
	return &orchestratorFixture{
		db:       db,
		jobs:     repositories.NewJobRepository(db),
		evals:    repositories.NewEvaluationRepository(db),
		storage:  storage,
		retrieve: newTestRetrieval(storage),
	}
}

func (f *orchestratorFixture) orchestrator(engine EvaluationEngine) *Orchestrator {
	return NewOrchestrator(f.jobs, f.evals, f.storage, NewTextExtractor(), f.retrieve, engine, zap.NewNop())
}

func (f *orchestratorFixture) createJob(t *testing.T, cvText, reportText string) *models.Job {
	t.Helper()

	cv := &models.Document{
		ID: uuid.New(), Type: models.DocTypeCV,
		MimeType: "text/plain", StoragePath: "docs/cv.txt",
	}
	report := &models.Document{
		ID: uuid.New(), Type: models.DocTypeReport,
		MimeType: "text/plain", StoragePath: "docs/report.txt",
	}
	if err := f.db.Create(cv).Error; err != nil {
		t.Fatalf("create cv doc: %v", err)
	}
	if err := f.db.Create(report).Error; err != nil {
		t.Fatalf("create report doc: %v", err)
	}
	f.storage.files["docs/cv.txt"] = []byte(cvText)
	f.storage.files["docs/report.txt"] = []byte(reportText)

	job := &models.Job{
		ID:               uuid.New(),
		JobTitle:         "Backend Engineer",
		CVDocumentID:     cv.ID,
		ReportDocumentID: report.ID,
		Status:           models.StatusQueued,
	}
	if err := f.jobs.Create(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func stageSet(logs []models.JobStageLog) map[string]string {
	out := make(map[string]string, len(logs))
	for _, l := range logs {
		out[string(l.Stage)+"/"+string(l.Status)] = string(l.Stage)
	}
	return out
}

func TestOrchestratorCompletesJob(t *testing.T) {
	f := newOrchestratorFixture(t)
	engine := &fakeEngine{res: &scoring.Result{
		CVMatchRate:     0.82,
		CVFeedback:      "strong match",
		ProjectScore:    4.5,
		ProjectFeedback: "solid work",
		OverallSummary:  "hire",
		Raw: scoring.RawOutputs{
			CVRaw:      []byte(`{}`),
			ProjectRaw: []byte(`{}`),
			FinalRaw:   []byte(`{}`),
		},
	}}
	job := f.createJob(t, "cv text about go", "report text about rag")

	if err := f.orchestrator(engine).ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	done, err := f.jobs.FindByID(job.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}
	if done.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", done.Attempts)
	}

	eval, err := f.evals.FindByJobID(job.ID)
	if err != nil {
		t.Fatalf("evaluation missing: %v", err)
	}
	if eval.CVMatchRate != 0.82 || eval.ProjectScore != 4.5 || eval.OverallSummary != "hire" {
		t.Fatalf("unexpected evaluation: %+v", eval)
	}
	if len(eval.RawLLM) == 0 {
		t.Fatal("raw model payloads not persisted")
	}

	logs, _ := f.jobs.StageLogs(job.ID)
	got := stageSet(logs)
	for _, want := range []string{
		"parse_cv/started", "parse_report/started",
		"eval_cv/success", "eval_project/success", "synthesize/success",
	} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing stage log %s; have %v", want, got)
		}
	}

	if engine.lastInput.CVHints != "cv text about go" {
		t.Fatalf("cv hints not passed: %q", engine.lastInput.CVHints)
	}
	if !strings.Contains(engine.lastInput.PriorWarnings, "job_desc_missing") {
		t.Fatalf("prior warnings missing job_desc_missing: %q", engine.lastInput.PriorWarnings)
	}
}

func TestOrchestratorHintTruncation(t *testing.T) {
	f := newOrchestratorFixture(t)
	engine := &fakeEngine{res: &scoring.Result{}}
	job := f.createJob(t, strings.Repeat("a", hintLimit+500), "short report")

	if err := f.orchestrator(engine).ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(engine.lastInput.CVHints) != hintLimit {
		t.Fatalf("cv hints length = %d, want %d", len(engine.lastInput.CVHints), hintLimit)
	}
}

func TestOrchestratorHintTruncationRuneBoundary(t *testing.T) {
	f := newOrchestratorFixture(t)
	engine := &fakeEngine{res: &scoring.Result{}}
	// Place a two-byte rune so it straddles the truncation point.
	cv := strings.Repeat("a", hintLimit-1) + "é" + strings.Repeat("b", 200)
	job := f.createJob(t, cv, "short report")

	if err := f.orchestrator(engine).ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	got := engine.lastInput.CVHints
	if !utf8.ValidString(got) {
		t.Fatalf("truncated hints are not valid UTF-8")
	}
	if len(got) != hintLimit-1 {
		t.Fatalf("cv hints length = %d, want %d", len(got), hintLimit-1)
	}
}

func TestOrchestratorFailurePath(t *testing.T) {
	f := newOrchestratorFixture(t)
	engine := &fakeEngine{err: evalerr.New(evalerr.KindService, "model returned unparseable JSON")}
	job := f.createJob(t, "cv", "report")

	err := f.orchestrator(engine).ProcessJob(context.Background(), job.ID)
	if err == nil {
		t.Fatal("expected pipeline error")
	}

	failed, _ := f.jobs.FindByID(job.ID)
	if failed.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", failed.Status)
	}
	if failed.ErrorCode == nil || *failed.ErrorCode != string(evalerr.KindService) {
		t.Fatalf("error_code = %v, want service", failed.ErrorCode)
	}
	if failed.ErrorMessage == nil || !strings.Contains(*failed.ErrorMessage, "unparseable") {
		t.Fatalf("error_message = %v", failed.ErrorMessage)
	}

	logs, _ := f.jobs.StageLogs(job.ID)
	if _, ok := stageSet(logs)["synthesize/failed"]; !ok {
		t.Fatalf("missing synthesize/failed log; have %v", stageSet(logs))
	}
}

func TestOrchestratorSkipsUnclaimableJob(t *testing.T) {
	f := newOrchestratorFixture(t)
	engine := &fakeEngine{res: &scoring.Result{}}
	job := f.createJob(t, "cv", "report")

	orch := f.orchestrator(engine)
	if err := orch.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("first process: %v", err)
	}

	// Terminal job: the claim fails and the second call is a no-op.
	if err := orch.ProcessJob(context.Background(), job.ID); err != nil {
		t.Fatalf("second process should skip, got %v", err)
	}
	done, _ := f.jobs.FindByID(job.ID)
	if done.Status != models.StatusCompleted || done.Attempts != 1 {
		t.Fatalf("job mutated by skipped attempt: %+v", done)
	}
}

// Full pipeline against the real scoring engine: reference documents indexed
// into a reference set, a report carrying resilience vocabulary, and canned
// model payloads.
func TestOrchestratorEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t)

	refSetID := uuid.New()
	refSet := &models.ReferenceSet{ID: refSetID, Name: "Backend-Oct2025", IsActive: true}
	if err := f.db.Create(refSet).Error; err != nil {
		t.Fatalf("create refset: %v", err)
	}

	for path, spec := range map[string]struct {
		docType string
		text    string
	}{
		"refs/jd.txt":     {"job_desc", "Backend engineer role: APIs, cloud, reliability."},
		"refs/brief.txt":  {"case_brief", "Build a RAG evaluation service with retries."},
		"refs/rubric.txt": {"scoring_rubric", "Score correctness, quality, resilience, docs."},
	} {
		f.storage.files[path] = []byte(spec.text)
		collection := vectorstore.CollectionName(refSetID.String(), spec.docType)
		if _, err := f.retrieve.IndexDocument(ctx, collection, path, "text/plain", path); err != nil {
			t.Fatalf("index %s: %v", path, err)
		}
	}

	job := f.createJob(t,
		"Experienced Go engineer, built backend APIs.",
		"The service uses retry with backoff and a circuit breaker worker queue.")
	job.ReferenceSetID = &refSetID
	if err := f.db.Save(job).Error; err != nil {
		t.Fatalf("attach refset: %v", err)
	}

	llm := &fakeLLM{responses: []string{
		`{"cv_match_rate": 0.82, "cv_feedback": "strong backend background"}`,
		`{"project_score": 4.5, "project_feedback": "good resilience patterns"}`,
		`{"overall_summary": "recommend hire"}`,
	}}
	engine := scoring.NewEngine(f.retrieve, llm, zap.NewNop())

	if err := f.orchestrator(engine).ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	done, _ := f.jobs.FindByID(job.ID)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}

	eval, err := f.evals.FindByJobID(job.ID)
	if err != nil {
		t.Fatalf("evaluation: %v", err)
	}
	if eval.CVMatchRate != 0.82 {
		t.Fatalf("cv_match_rate = %v, want 0.82", eval.CVMatchRate)
	}
	// Model score 4.5 beats the keyword baseline.
	if eval.ProjectScore != 4.5 {
		t.Fatalf("project_score = %v, want 4.5", eval.ProjectScore)
	}
	if eval.OverallSummary != "recommend hire" {
		t.Fatalf("summary = %q", eval.OverallSummary)
	}
	if llm.calls != 3 {
		t.Fatalf("llm calls = %d, want 3", llm.calls)
	}
}
