package dto

import (
	"time"

	"github.com/codearena/arena-go-api/internal/models"
)

// ResponseCreateRequest is the payload for recording an attempt at a question.
// Exactly one of QuestionID and ActivityID must be set.
type ResponseCreateRequest struct {
	Kind       string   `json:"kind" validate:"required,oneof=numeric boolean text coding"`
	QuestionID *uint    `json:"question_id"`
	ActivityID *uint    `json:"activity_id"`
	Value      *float64 `json:"value"`
	ValueBool  *bool    `json:"value_bool"`
	ValueText  string   `json:"value_text"`
}

// ResponseDetail represents a ledger entry to API consumers.
type ResponseDetail struct {
	ID                   uint                   `json:"id"`
	UserID               uint                   `json:"user_id"`
	Kind                 string                 `json:"kind"`
	Value                *float64               `json:"value,omitempty"`
	ValueBool            *bool                  `json:"value_bool,omitempty"`
	ValueText            string                 `json:"value_text,omitempty"`
	QuestionForUnboundID *uint                  `json:"question_for_unbound_id"`
	ActivityID           *uint                  `json:"activity_id"`
	ParentID             *uint                  `json:"parent_id"`
	Grade                *float64               `json:"grade"`
	FeedbackData         map[string]interface{} `json:"feedback_data,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	Items                []ResponseItemDetail   `json:"items,omitempty"`
}

// ResponseItemDetail represents one recorded code run.
type ResponseItemDetail struct {
	ID         uint      `json:"id"`
	Source     string    `json:"source"`
	Stdout     string    `json:"stdout"`
	Stderr     string    `json:"stderr"`
	ExitCode   int       `json:"exit_code"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReviewResponse describes the AI code review payload for a coding response.
type ReviewResponse struct {
	Score    float64                `json:"score"`
	Verdict  string                 `json:"verdict"`
	Feedback string                 `json:"feedback"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Provider string                 `json:"provider"`
}

// NewResponseDetail builds a response DTO from a model.
func NewResponseDetail(response models.Response) ResponseDetail {
	detail := ResponseDetail{
		ID:                   response.ID,
		UserID:               response.UserID,
		Kind:                 response.Kind,
		Value:                response.Value,
		ValueBool:            response.ValueBool,
		ValueText:            response.ValueText,
		QuestionForUnboundID: response.QuestionForUnboundID,
		ActivityID:           response.ActivityID,
		ParentID:             response.ParentID,
		Grade:                response.Grade,
		CreatedAt:            response.CreatedAt,
	}

	if response.FeedbackData != nil {
		detail.FeedbackData = map[string]interface{}(response.FeedbackData)
	}

	for _, item := range response.Items {
		detail.Items = append(detail.Items, NewResponseItemDetail(item))
	}

	return detail
}

// NewResponseItemDetail builds an item DTO from a model.
func NewResponseItemDetail(item models.ResponseItem) ResponseItemDetail {
	return ResponseItemDetail{
		ID:         item.ID,
		Source:     item.Source,
		Stdout:     item.Stdout,
		Stderr:     item.Stderr,
		ExitCode:   item.ExitCode,
		DurationMs: item.DurationMs,
		CreatedAt:  item.CreatedAt,
	}
}
