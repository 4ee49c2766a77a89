package models

import "time"

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Type         string `json:"type"`
}

type EvaluateRequest struct {
	JobTitle         string `json:"job_title"`
	CVDocumentID     string `json:"cv_document_id"`
	ReportDocumentID string `json:"report_document_id"`
	ReferenceSetID   string `json:"reference_set_id"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Result       *EvaluationData `json:"result,omitempty"`
	ErrorCode    *string         `json:"error_code,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

type EvaluationData struct {
	CVMatchRate     float64 `json:"cv_match_rate"`
	CVFeedback      string  `json:"cv_feedback"`
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
	OverallSummary  string  `json:"overall_summary"`
}

type ReferenceSetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type UploadReferenceResponse struct {
	DocumentID     string `json:"document_id"`
	ReferenceSetID string `json:"reference_set_id"`
	Collection     string `json:"collection"`
	ChunksIndexed  int    `json:"chunks_indexed"`
}

type ReindexError struct {
	DocID       string `json:"doc_id"`
	StoragePath string `json:"storage_path"`
	Error       string `json:"error"`
}

type ReindexResponse struct {
	ReindexedDocs int            `json:"reindexed_docs"`
	SkippedDocs   int            `json:"skipped_docs"`
	FailedDocs    int            `json:"failed_docs"`
	Errors        []ReindexError `json:"errors"`
	Collections   map[string]int `json:"collections"`
}
