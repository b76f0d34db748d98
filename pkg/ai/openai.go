package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "review_duration_seconds",
		Help:      "Duration of AI review requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "review_failures_total",
		Help:      "Number of AI review failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI reviewer.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIReviewer implements Reviewer against the OpenAI chat completion API.
type OpenAIReviewer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIReviewer builds a new reviewer using the provided configuration.
func NewOpenAIReviewer(cfg OpenAIConfig) (*OpenAIReviewer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/codearena/arena-go-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIReviewer{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Review sends the review request to OpenAI and parses the response.
func (r *OpenAIReviewer) Review(parent context.Context, input ReviewInput) (ReviewResult, error) {
	ctx, span := r.tracer.Start(parent, "openai.review", trace.WithAttributes(
		attribute.String("model", r.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: reviewerSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := r.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(r.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(r.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReviewResult{}, fmt.Errorf("openai review: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(r.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReviewResult{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	result, err := parseReviewResponse(content)
	if err != nil {
		aiFailures.WithLabelValues(r.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReviewResult{}, err
	}

	result.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return result, nil
}

func reviewerSystemPrompt() string {
	return "You are an automated code reviewer for a competitive coding arena. Respond with a JSON object containing score (0-1), verdict, feedback, and an optional details object breaking down the score. Focus on correctness, brevity, and edge cases."
}

func buildUserPrompt(input ReviewInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(input.QuestionTitle)
	builder.WriteString("\n\n## Prompt\n")
	builder.WriteString(input.Prompt)
	builder.WriteString("\n\n## Language\n")
	builder.WriteString(input.Language)
	builder.WriteString("\n\n## Submission\n")
	builder.WriteString(input.Source)
	builder.WriteString("\n\n## Program Output\n")
	builder.WriteString(input.Output)
	builder.WriteString("\n\n## Expected Output\n")
	builder.WriteString(input.ExpectedOutput)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseReviewResponse(content string) (ReviewResult, error) {
	type payload struct {
		Score    float64                `json:"score"`
		Feedback string                 `json:"feedback"`
		Verdict  string                 `json:"verdict"`
		Details  map[string]interface{} `json:"details"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return ReviewResult{}, fmt.Errorf("parse review json: %w", err)
	}

	if data.Score < 0 {
		data.Score = 0
	}
	if data.Score > 1 {
		data.Score = 1
	}

	return ReviewResult{
		Score:    data.Score,
		Feedback: data.Feedback,
		Verdict:  data.Verdict,
		Details:  data.Details,
	}, nil
}
