package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// ActivityRepository is the read-only query surface over course activities.
type ActivityRepository interface {
	GetByID(ctx context.Context, id uint) (models.Activity, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]models.Activity, error)
}

// NewActivityRepository constructs an activity repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

type activityRepository struct {
	db *gorm.DB
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).Preload("Question").First(&activity, id).Error
	if err != nil {
		return models.Activity{}, err
	}
	return activity, nil
}

func (r *activityRepository) ListByQuestion(ctx context.Context, questionID uint) ([]models.Activity, error) {
	var activities []models.Activity
	err := r.db.WithContext(ctx).Where("question_id = ?", questionID).Order("id ASC").Find(&activities).Error
	return activities, err
}
