package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type CVResult struct {
	CVMatchRate float64 `json:"cv_match_rate"`
	CVFeedback  string  `json:"cv_feedback"`
}

type ProjectResult struct {
	ProjectScore    float64 `json:"project_score"`
	ProjectFeedback string  `json:"project_feedback"`
}

type FinalResult struct {
	OverallSummary string `json:"overall_summary"`
}

// ParseCVResult decodes a stage-1 payload. Out-of-range or mistyped values
// are repaired by clamping with a warning per repair; only unparseable JSON
// is an error.
func ParseCVResult(raw json.RawMessage) (CVResult, []string, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return CVResult{}, nil, err
	}

	var warnings []string

	rate, ok := toFloat(fields["cv_match_rate"])
	if !ok {
		warnings = append(warnings, "cv_match_rate missing or non-numeric, defaulted to 0")
		rate = 0
	}
	if rate < 0 || rate > 1 {
		warnings = append(warnings, fmt.Sprintf("cv_match_rate %.4f out of [0,1], clamped", rate))
	}

	feedback, ok := fields["cv_feedback"].(string)
	if !ok {
		warnings = append(warnings, "cv_feedback missing, defaulted to empty")
	}

	return CVResult{
		CVMatchRate: round2(clamp(rate, 0, 1)),
		CVFeedback:  feedback,
	}, warnings, nil
}

// ParseProjectResult decodes a stage-2 payload, clamping project_score into
// [1,5] at one decimal place.
func ParseProjectResult(raw json.RawMessage) (ProjectResult, []string, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return ProjectResult{}, nil, err
	}

	var warnings []string

	score, ok := toFloat(fields["project_score"])
	if !ok {
		warnings = append(warnings, "project_score missing or non-numeric, defaulted to 1")
		score = 1
	}
	if score < 1 || score > 5 {
		warnings = append(warnings, fmt.Sprintf("project_score %.4f out of [1,5], clamped", score))
	}

	feedback, ok := fields["project_feedback"].(string)
	if !ok {
		warnings = append(warnings, "project_feedback missing, defaulted to empty")
	}

	return ProjectResult{
		ProjectScore:    round1(clamp(score, 1, 5)),
		ProjectFeedback: feedback,
	}, warnings, nil
}

// ParseFinalResult decodes the stage-3 payload; a missing summary is
// repaired to empty with a warning.
func ParseFinalResult(raw json.RawMessage) (FinalResult, []string, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return FinalResult{}, nil, err
	}

	summary, ok := fields["overall_summary"].(string)
	if !ok {
		return FinalResult{}, []string{"overall_summary missing, defaulted to empty"}, nil
	}
	return FinalResult{OverallSummary: summary}, nil, nil
}

func decodeFields(raw json.RawMessage) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	return fields, nil
}

// toFloat accepts JSON numbers and numeric strings; models occasionally
// quote scores.
func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
