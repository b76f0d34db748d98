package models

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// QuestionKind discriminates the concrete question variants sharing the questions table.
const (
	QuestionKindNumeric = "numeric"
	QuestionKindBoolean = "boolean"
	QuestionKindText    = "text"
	QuestionKindCoding  = "coding"
)

// ErrGradingUnsupported signals that a grading or export path is not implemented
// for the requested kind or format. Callers must branch on it rather than treat
// it as a failure.
var ErrGradingUnsupported = errors.New("grading not supported")

// Question is the polymorphic question definition. Kind selects which of the
// per-variant answer columns are meaningful.
type Question struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Kind             string `gorm:"size:32;not null;index" json:"kind"`
	Title            string `gorm:"size:200;not null" json:"title"`
	ShortDescription string `gorm:"size:140" json:"short_description"`
	LongDescription  string `gorm:"type:text" json:"long_description"`
	OwnerID          *uint  `json:"owner_id"`
	IsActive         bool   `gorm:"default:false" json:"is_active"`
	DefaultExtension string `gorm:"size:16;default:'.md'" json:"default_extension"`

	// numeric
	Answer    *float64 `json:"answer,omitempty"`
	Tolerance float64  `gorm:"default:0" json:"tolerance"`
	// boolean
	AnswerBool *bool `json:"answer_bool,omitempty"`
	// text
	AnswerText string `gorm:"type:text" json:"answer_text,omitempty"`
	IsRegex    bool   `json:"is_regex"`
	// coding
	Language       string `gorm:"size:32" json:"language,omitempty"`
	ExpectedOutput string `gorm:"type:text" json:"expected_output,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Feedback is the outcome of grading a response against a question.
type Feedback struct {
	Correct bool              `json:"correct"`
	Grade   float64           `json:"grade"`
	Data    datatypes.JSONMap `json:"data,omitempty"`
}

// IsExact reports whether a numeric question accepts only the exact answer.
func (q Question) IsExact() bool {
	return q.Tolerance == 0
}

// Range returns the interval of accepted values for a numeric question.
func (q Question) Range() (float64, float64) {
	answer := 0.0
	if q.Answer != nil {
		answer = *q.Answer
	}
	tolerance := math.Abs(q.Tolerance)
	return answer - tolerance, answer + tolerance
}

// Normalize validates and adjusts the kind-specific answer data. It is invoked
// on create and update, before persisting.
func (q *Question) Normalize() error {
	switch q.Kind {
	case QuestionKindNumeric:
		q.Tolerance = math.Abs(q.Tolerance)
	case QuestionKindText:
		if q.IsRegex {
			if _, err := regexp.Compile(q.AnswerText); err != nil {
				return err
			}
		}
	case QuestionKindCoding:
		q.ExpectedOutput = strings.TrimRight(q.ExpectedOutput, "\n")
		q.Language = strings.ToLower(strings.TrimSpace(q.Language))
		if q.DefaultExtension == "" || q.DefaultExtension == ".md" {
			q.DefaultExtension = extensionForLanguage(q.Language)
		}
	}
	return nil
}

// GradableBy reports whether the question may be graded on behalf of the user.
// Inactive questions are only gradable by their owner.
func (q Question) GradableBy(user *User) bool {
	if q.IsActive {
		return true
	}
	if user == nil || q.OwnerID == nil {
		return false
	}
	return *q.OwnerID == user.ID
}

// CanEdit reports whether the user owns the question.
func (q Question) CanEdit(user *User) bool {
	if user == nil || q.OwnerID == nil {
		return false
	}
	return *q.OwnerID == user.ID
}

// Grade compares a response against the question's answer data and returns the
// resulting feedback. Coding responses are graded from their latest run output;
// a coding response that never produced output cannot be graded here and yields
// ErrGradingUnsupported.
func (q Question) Grade(response Response) (Feedback, error) {
	switch q.Kind {
	case QuestionKindNumeric:
		if response.Value == nil || q.Answer == nil {
			return Feedback{}, ErrGradingUnsupported
		}
		start, end := q.Range()
		return feedbackFor(start <= *response.Value && *response.Value <= end), nil
	case QuestionKindBoolean:
		if response.ValueBool == nil || q.AnswerBool == nil {
			return Feedback{}, ErrGradingUnsupported
		}
		return feedbackFor(*response.ValueBool == *q.AnswerBool), nil
	case QuestionKindText:
		if q.IsRegex {
			pattern, err := regexp.Compile(q.AnswerText)
			if err != nil {
				return Feedback{}, err
			}
			return feedbackFor(pattern.MatchString(response.ValueText)), nil
		}
		return feedbackFor(response.ValueText == q.AnswerText), nil
	case QuestionKindCoding:
		item := response.LastItem()
		if item == nil {
			return Feedback{}, ErrGradingUnsupported
		}
		got := strings.TrimRight(item.Stdout, "\n")
		return feedbackFor(item.ExitCode == 0 && got == q.ExpectedOutput), nil
	default:
		return Feedback{}, ErrGradingUnsupported
	}
}

func feedbackFor(correct bool) Feedback {
	feedback := Feedback{Correct: correct}
	if correct {
		feedback.Grade = 100
	}
	return feedback
}

func extensionForLanguage(language string) string {
	switch language {
	case "python":
		return ".py"
	case "javascript":
		return ".js"
	case "go":
		return ".go"
	default:
		return ".txt"
	}
}
