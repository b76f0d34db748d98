package models

import "time"

// Activity is a course-scoped instance of a question. Responses created in the
// context of a course reference the activity rather than the question directly.
type Activity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CourseID   uint      `gorm:"not null;index" json:"course_id"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Title      string    `gorm:"size:255" json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Question Question `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
}
