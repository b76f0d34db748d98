package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidBinding is returned when a response's question binding would be
// violated: either the unbound/activity exclusivity, or an attempt to rebind
// an activity-scoped response to a different question.
var ErrInvalidBinding = errors.New("invalid question binding")

// Response records a single attempt at a question. It is bound either to a
// standalone question (QuestionForUnboundID) or to a course activity
// (ActivityID), never both and never neither.
type Response struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Kind   string `gorm:"size:32;not null" json:"kind"`

	Value     *float64 `json:"value,omitempty"`
	ValueBool *bool    `json:"value_bool,omitempty"`
	ValueText string   `gorm:"type:text" json:"value_text,omitempty"`

	QuestionForUnboundID *uint `gorm:"index" json:"question_for_unbound_id"`
	ActivityID           *uint `gorm:"index" json:"activity_id"`
	ParentID             *uint `gorm:"index" json:"parent_id"`

	Grade        *float64          `json:"grade"`
	FeedbackData datatypes.JSONMap `gorm:"type:json" json:"feedback_data"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Activity *Activity      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"activity,omitempty"`
	Items    []ResponseItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items,omitempty"`
}

// ResponseItem is one code run recorded under a coding response. A persisted
// item consumes a submission slot; a failed run that never produced an item
// does not.
type ResponseItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResponseID uint      `gorm:"not null;index" json:"response_id"`
	Source     string    `gorm:"type:text;not null" json:"source"`
	Stdout     string    `gorm:"type:text" json:"stdout"`
	Stderr     string    `gorm:"type:text" json:"stderr"`
	ExitCode   int       `json:"exit_code"`
	DurationMs int64     `gorm:"default:0" json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeSave enforces the binding exclusivity invariant at write time.
func (r *Response) BeforeSave(tx *gorm.DB) error {
	if (r.QuestionForUnboundID == nil) == (r.ActivityID == nil) {
		return ErrInvalidBinding
	}
	return nil
}

// IsBound reports whether the response is scoped to a course activity.
func (r Response) IsBound() bool {
	return r.ActivityID != nil
}

// QuestionBaseID resolves the question the response answers, from whichever
// binding is set. The activity must be preloaded for bound responses.
func (r Response) QuestionBaseID() uint {
	if r.QuestionForUnboundID != nil {
		return *r.QuestionForUnboundID
	}
	if r.Activity != nil {
		return r.Activity.QuestionID
	}
	return 0
}

// BindQuestion sets the question reference on an unbound response. For
// activity-bound responses the question is fixed by the activity; binding a
// different one fails with ErrInvalidBinding.
func (r *Response) BindQuestion(questionID uint) error {
	if r.ActivityID == nil {
		r.QuestionForUnboundID = &questionID
		return nil
	}
	if r.QuestionBaseID() != questionID {
		return ErrInvalidBinding
	}
	return nil
}

// LastItem returns the most recent code run, or nil when none exist.
func (r Response) LastItem() *ResponseItem {
	if len(r.Items) == 0 {
		return nil
	}
	last := r.Items[0]
	for _, item := range r.Items[1:] {
		if item.CreatedAt.After(last.CreatedAt) || (item.CreatedAt.Equal(last.CreatedAt) && item.ID > last.ID) {
			last = item
		}
	}
	return &last
}

// IsGraded reports whether the response has received a final grade.
func (r Response) IsGraded() bool {
	return r.Grade != nil
}
