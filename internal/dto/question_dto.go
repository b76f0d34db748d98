package dto

import "github.com/codearena/arena-go-api/internal/models"

// QuestionCreateRequest is the payload for creating or updating a question.
type QuestionCreateRequest struct {
	Kind             string   `json:"kind" validate:"required,oneof=numeric boolean text coding"`
	Title            string   `json:"title" validate:"required,max=200"`
	ShortDescription string   `json:"short_description" validate:"max=140"`
	LongDescription  string   `json:"long_description"`
	IsActive         bool     `json:"is_active"`
	DefaultExtension string   `json:"default_extension"`
	Answer           *float64 `json:"answer"`
	Tolerance        float64  `json:"tolerance" validate:"gte=0"`
	AnswerBool       *bool    `json:"answer_bool"`
	AnswerText       string   `json:"answer_text"`
	IsRegex          bool     `json:"is_regex"`
	Language         string   `json:"language"`
	ExpectedOutput   string   `json:"expected_output"`
}

// QuestionResponse represents a question to API consumers. Answer data is only
// included for owners.
type QuestionResponse struct {
	ID               uint     `json:"id"`
	Kind             string   `json:"kind"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	OwnerID          *uint    `json:"owner_id"`
	IsActive         bool     `json:"is_active"`
	DefaultExtension string   `json:"default_extension"`
	Answer           *float64 `json:"answer,omitempty"`
	Tolerance        float64  `json:"tolerance,omitempty"`
	AnswerBool       *bool    `json:"answer_bool,omitempty"`
	AnswerText       string   `json:"answer_text,omitempty"`
	IsRegex          bool     `json:"is_regex,omitempty"`
	Language         string   `json:"language,omitempty"`
	ExpectedOutput   string   `json:"expected_output,omitempty"`
}

// QuestionExport carries a serialized question in a negotiated format.
type QuestionExport struct {
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// NewQuestionResponse builds a question DTO from a model.
func NewQuestionResponse(question models.Question, includeAnswers bool) QuestionResponse {
	response := QuestionResponse{
		ID:               question.ID,
		Kind:             question.Kind,
		Title:            question.Title,
		ShortDescription: question.ShortDescription,
		LongDescription:  question.LongDescription,
		OwnerID:          question.OwnerID,
		IsActive:         question.IsActive,
		DefaultExtension: question.DefaultExtension,
	}

	if includeAnswers {
		response.Answer = question.Answer
		response.Tolerance = question.Tolerance
		response.AnswerBool = question.AnswerBool
		response.AnswerText = question.AnswerText
		response.IsRegex = question.IsRegex
		response.Language = question.Language
		response.ExpectedOutput = question.ExpectedOutput
	} else {
		response.Language = question.Language
	}

	return response
}
