package dto

import (
	"time"

	"github.com/codearena/arena-go-api/internal/models"
)

// BattleCreateRequest is the payload for opening a battle over a coding question.
type BattleCreateRequest struct {
	QuestionID       uint   `json:"question_id" validate:"required,gt=0"`
	Type             string `json:"type" validate:"required,oneof=length time"`
	Language         string `json:"language" validate:"required"`
	LimitSubmissions int    `json:"limit_submissions" validate:"gte=0"`
	Invitees         []uint `json:"invitees" validate:"dive,gt=0"`
}

// BattleSubmissionRequest carries one code submission for a battle participant.
type BattleSubmissionRequest struct {
	Source string `json:"source" validate:"required,min=1"`
}

// BattleDetail represents a battle to API consumers.
type BattleDetail struct {
	ID               uint                `json:"id"`
	OwnerID          uint                `json:"owner_id"`
	QuestionID       uint                `json:"question_id"`
	Type             string              `json:"type"`
	Language         string              `json:"language"`
	LimitSubmissions int                 `json:"limit_submissions"`
	WinnerID         *uint               `json:"winner_id"`
	IsActive         bool                `json:"is_active"`
	CreatedAt        time.Time           `json:"created_at"`
	Invitations      []uint              `json:"invitations,omitempty"`
	Participants     []BattleParticipant `json:"participants,omitempty"`
}

// BattleParticipant represents one participant session within a battle.
type BattleParticipant struct {
	ID              uint       `json:"id"`
	UserID          uint       `json:"user_id"`
	ResponseID      uint       `json:"response_id"`
	TimeBegin       time.Time  `json:"time_begin"`
	TimeEnd         *time.Time `json:"time_end"`
	ElapsedSeconds  float64    `json:"elapsed_seconds"`
	GiveUp          bool       `json:"give_up"`
	IsActive        bool       `json:"is_active,omitempty"`
	SourceLength    int        `json:"source_length"`
	SubmissionCount int        `json:"submission_count"`
}

// BattleSubmissionResult is returned for an accepted code submission.
type BattleSubmissionResult struct {
	Item            ResponseItemDetail `json:"item"`
	Feedback        *models.Feedback   `json:"feedback,omitempty"`
	SubmissionCount int                `json:"submission_count"`
	Remaining       int                `json:"remaining"`
}

// BattleStandings summarises the current state of a battle for spectators.
type BattleStandings struct {
	BattleID     uint                `json:"battle_id"`
	Type         string              `json:"type"`
	IsActive     bool                `json:"is_active"`
	WinnerID     *uint               `json:"winner_id"`
	Participants []BattleParticipant `json:"participants"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// NewBattleParticipant builds a participant DTO from a model.
func NewBattleParticipant(response models.BattleResponse) BattleParticipant {
	return BattleParticipant{
		ID:              response.ID,
		UserID:          response.UserID,
		ResponseID:      response.ResponseID,
		TimeBegin:       response.TimeBegin,
		TimeEnd:         response.TimeEnd,
		ElapsedSeconds:  response.ElapsedSeconds(),
		GiveUp:          response.GiveUp,
		SourceLength:    len(response.Source),
		SubmissionCount: response.SubmissionCount,
	}
}

// NewBattleDetail builds a battle DTO from a model.
func NewBattleDetail(battle models.Battle) BattleDetail {
	detail := BattleDetail{
		ID:               battle.ID,
		OwnerID:          battle.OwnerID,
		QuestionID:       battle.QuestionID,
		Type:             battle.Type,
		Language:         battle.Language,
		LimitSubmissions: battle.LimitSubmissions,
		WinnerID:         battle.WinnerID,
		IsActive:         battle.IsActive(),
		CreatedAt:        battle.CreatedAt,
	}

	for _, invitation := range battle.Invitations {
		detail.Invitations = append(detail.Invitations, invitation.UserID)
	}
	for _, response := range battle.Responses {
		participant := NewBattleParticipant(response)
		participant.IsActive = response.Active(battle)
		detail.Participants = append(detail.Participants, participant)
	}

	return detail
}
