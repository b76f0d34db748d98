package ai

import "context"

// ReviewInput contains the artefacts needed to review a coding response.
type ReviewInput struct {
	QuestionTitle  string
	Prompt         string
	Language       string
	Source         string
	Output         string
	ExpectedOutput string
}

// ReviewResult is the structured feedback returned by the AI reviewer.
type ReviewResult struct {
	Score    float64                `json:"score"`
	Feedback string                 `json:"feedback"`
	Verdict  string                 `json:"verdict"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// Reviewer describes an AI model capable of reviewing code submissions.
type Reviewer interface {
	Review(ctx context.Context, input ReviewInput) (ReviewResult, error)
}
