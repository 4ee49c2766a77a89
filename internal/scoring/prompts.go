package scoring

import "fmt"

// promptVars carries everything the three stage prompts interpolate.
type promptVars struct {
	JobTitle      string
	JobID         string
	DocVersions   string
	PriorWarnings string
	JobDesc       string
	CVRubric      string
	CVHints       string
	CaseBrief     string
	ProjectRubric string
	ReportHints   string
	JobDescShort  string
}

func buildCVPrompt(v promptVars) string {
	return fmt.Sprintf(`[System Layer Context]
You are an impartial technical evaluator. Assess a candidate's CV against a backend job description and a scoring rubric.
Ground your judgment strictly in the retrieved context and candidate evidence. No speculation or personal bias.

[Behavioral Layer Context]
Rules:
- Deterministic and conservative; if context is insufficient, explicitly state that in feedback.
- Use only the retrieved job description and CV rubric as context.
- Keep language concise, objective, and evidence-based.
- Output strictly valid JSON with no additional commentary.

[Rubric Weights]
1) Technical Skills Match (40%%) - backend, database, APIs, cloud, AI/LLM (1-5)
2) Experience Level (25%%) - years and project complexity (1-5)
3) Relevant Achievements (20%%) - measurable outcomes (1-5)
4) Cultural Fit (15%%) - communication, collaboration, learning mindset (1-5)

[Scoring Rules]
- Compute weighted average (1-5), divide by 5 to get cv_match_rate in [0,1].
- Round to two decimals and clamp to [0,1] if needed.
- Provide cv_feedback (1-3 concise sentences).

[RAG Context Blocks]
Job Title: %s
Retrieved Job Description: %s
Retrieved CV Rubric: %s

[Candidate Highlights]
%s

[Working Memory]
Job ID: %s
Document Versions: %s
Prior Warnings: %s

[Output Contract]
{
  "cv_match_rate": <0-1 decimal, 2 decimals>,
  "cv_feedback": "<string>"
}`,
		v.JobTitle, v.JobDesc, v.CVRubric, orPlaceholder(v.CVHints), v.JobID, v.DocVersions, v.PriorWarnings)
}

func buildProjectPrompt(v promptVars, baseline float64) string {
	return fmt.Sprintf(`[System Layer Context]
You are an impartial evaluator. Assess a candidate's Project Report for a backend case study using the provided case brief and project rubric.
Ground your judgment strictly in the retrieved context and candidate evidence.

[Behavioral Layer Context]
Rules:
- Deterministic and conservative; missing or unclear evidence means a partial or low score.
- Use only the retrieved case brief and project rubric as reference.
- If the candidate highlights are non-empty, you MUST provide a substantive score based on rubric evidence.
- Output strictly valid JSON.

[Rubric Weights]
1) Correctness (Prompt/Chaining/RAG Logic) - 30%%
2) Code Quality & Structure - 25%%
3) Resilience & Error Handling - 20%%
4) Documentation & Explanation - 15%%
5) Creativity / Bonus Features - 10%%

[Scoring Rules]
- Compute weighted average (1-5) as project_score.
- Round to one decimal and clamp to [1,5].
- Provide project_feedback (1-3 concise sentences).

[RAG Context Blocks]
Case Study Brief: %s
Project Rubric: %s

[Candidate Highlights]
%s

[Working Memory]
Job ID: %s
Document Versions: %s
Prior Warnings: %s

[Assistance]
A baseline deterministic score computed from simple keyword buckets is: %.1f.
- You MUST NOT return a score lower than this deterministic baseline.
- If you adjust upward/downward (at most 1.0), justify explicitly in 'project_feedback'.
- Return JSON only.

[Output Contract]
{
  "project_score": <1-5 decimal, 1 decimal>,
  "project_feedback": "<string>"
}`,
		v.CaseBrief, v.ProjectRubric, orPlaceholder(v.ReportHints), v.JobID, v.DocVersions, v.PriorWarnings, baseline)
}

func buildFinalPrompt(v promptVars, cvJSON, projectJSON string) string {
	return fmt.Sprintf(`[System Layer Context]
You are an impartial synthesizer. Summarize the candidate's overall evaluation based on the CV and Project results.
Do not introduce new evidence or reinterpret data.

[Behavioral Layer Context]
Rules:
- Use only the provided CV and Project results.
- Mention key strengths, observed gaps, and exactly one actionable recommendation.
- Do not speculate or add new evidence.
- Output strictly valid JSON.

[Inputs]
CV Result: %s
Project Result: %s

[RAG Context Blocks]
Job Title: %s
Job Description Summary: %s

[Working Memory]
Job ID: %s
Document Versions: %s
Prior Results Included Above.

[Output Contract]
{
  "overall_summary": "<3-5 sentences summarizing strengths, gaps, and one recommendation>"
}`,
		cvJSON, projectJSON, v.JobTitle, v.JobDescShort, v.JobID, v.DocVersions)
}

func orPlaceholder(hints string) string {
	if hints == "" {
		return "(no hints)"
	}
	return hints
}
