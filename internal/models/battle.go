package models

import "time"

// BattleType selects the winner strategy for a battle.
const (
	BattleTypeLength = "length"
	BattleTypeTime   = "time"
)

// Battle is a competition over one coding question among invited users. The
// winner is set exactly once; a battle with a winner is terminal.
type Battle struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OwnerID          uint      `gorm:"not null;index" json:"owner_id"`
	QuestionID       uint      `gorm:"not null;index" json:"question_id"`
	Type             string    `gorm:"size:20;not null;default:'length'" json:"type"`
	Language         string    `gorm:"size:32;not null" json:"language"`
	LimitSubmissions int       `gorm:"not null;default:0" json:"limit_submissions"`
	WinnerID         *uint     `json:"winner_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Question    Question           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
	Invitations []BattleInvitation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"invitations,omitempty"`
	Responses   []BattleResponse   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"responses,omitempty"`
}

// BattleInvitation is an outstanding invite. Joining the battle consumes it.
type BattleInvitation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BattleID  uint      `gorm:"not null;uniqueIndex:idx_battle_invitee" json:"battle_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_battle_invitee" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BattleResponse is one participant's timed, submission-limited session within
// a battle. It wraps the participant's coding Response; individual code runs
// are recorded as response items.
type BattleResponse struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	BattleID        uint       `gorm:"not null;uniqueIndex:idx_battle_response" json:"battle_id"`
	ResponseID      uint       `gorm:"not null;uniqueIndex:idx_battle_response" json:"response_id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	TimeBegin       time.Time  `gorm:"not null" json:"time_begin"`
	TimeEnd         *time.Time `json:"time_end"`
	GiveUp          bool       `gorm:"default:false" json:"give_up"`
	Source          string     `gorm:"type:text" json:"source"`
	SubmissionCount int        `gorm:"not null;default:0" json:"submission_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Response Response `gorm:"constraint:OnUpdate:CASCADE" json:"response"`
}

// IsActive reports whether the battle is still running: somebody has started,
// no winner has been decided, and every invitation has been consumed. Derived
// on every read, never stored.
func (b Battle) IsActive() bool {
	return len(b.Responses) > 0 && b.WinnerID == nil && len(b.Invitations) == 0
}

// WinnerByLength returns the participant whose latest accepted source is
// shortest. Ties resolve to the first participant in insertion order; that is
// a deliberately weak tie-break and callers should not read more into it.
func (b Battle) WinnerByLength() *BattleResponse {
	var winner *BattleResponse
	for i := range b.Responses {
		candidate := &b.Responses[i]
		if candidate.SubmissionCount == 0 {
			continue
		}
		if winner == nil || len(candidate.Source) < len(winner.Source) {
			winner = candidate
		}
	}
	return winner
}

// WinnerByTime returns the participant with the smallest elapsed time between
// joining and their last accepted submission. Participants without a recorded
// TimeEnd are skipped. Ties resolve to insertion order, as in WinnerByLength.
func (b Battle) WinnerByTime() *BattleResponse {
	var winner *BattleResponse
	for i := range b.Responses {
		candidate := &b.Responses[i]
		if candidate.TimeEnd == nil {
			continue
		}
		if winner == nil || candidate.Elapsed() < winner.Elapsed() {
			winner = candidate
		}
	}
	return winner
}

// Elapsed returns the participant's competition time in wall-clock duration.
// Zero when no submission has been accepted yet.
func (r BattleResponse) Elapsed() time.Duration {
	if r.TimeEnd == nil {
		return 0
	}
	return r.TimeEnd.Sub(r.TimeBegin)
}

// ElapsedSeconds is Elapsed expressed in seconds, for standings payloads.
func (r BattleResponse) ElapsedSeconds() float64 {
	return r.Elapsed().Seconds()
}

// RecordItem notes an accepted code run: the session clock stops at the item's
// creation time and the latest source becomes the participant's entry.
func (r *BattleResponse) RecordItem(item ResponseItem) {
	end := item.CreatedAt
	r.TimeEnd = &end
	r.Source = item.Source
}

// Active reports whether this participant can still submit: the battle is
// running and the participant is neither exhausted nor forfeited.
func (r BattleResponse) Active(b Battle) bool {
	return b.IsActive() && !r.GiveUp && !r.Exhausted(b.LimitSubmissions)
}

// Exhausted reports whether the participant has used up the battle's
// submission cap. A cap of zero or less admits nothing.
func (r BattleResponse) Exhausted(limit int) bool {
	if limit <= 0 {
		return true
	}
	return r.SubmissionCount >= limit
}
