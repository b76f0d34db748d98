package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// ResponseRepository exposes persistence helpers for the response ledger.
type ResponseRepository interface {
	Create(ctx context.Context, response *models.Response) error
	Update(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uint) (models.Response, error)
	AddItem(ctx context.Context, item *models.ResponseItem) error
	ListUnboundByQuestion(ctx context.Context, questionID uint) ([]models.Response, error)
	ListRetroactedParentIDs(ctx context.Context, activityIDs []uint) ([]uint, error)
}

// NewResponseRepository constructs a response repository.
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

type responseRepository struct {
	db *gorm.DB
}

func (r *responseRepository) Create(ctx context.Context, response *models.Response) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *responseRepository) Update(ctx context.Context, response *models.Response) error {
	return r.db.WithContext(ctx).Save(response).Error
}

func (r *responseRepository) GetByID(ctx context.Context, id uint) (models.Response, error) {
	var response models.Response
	err := r.db.WithContext(ctx).
		Preload("Activity").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("response_items.id ASC")
		}).
		First(&response, id).Error
	if err != nil {
		return models.Response{}, err
	}
	return response, nil
}

func (r *responseRepository) AddItem(ctx context.Context, item *models.ResponseItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *responseRepository) ListUnboundByQuestion(ctx context.Context, questionID uint) ([]models.Response, error) {
	var responses []models.Response
	err := r.db.WithContext(ctx).
		Where("question_for_unbound_id = ?", questionID).
		Order("id ASC").
		Find(&responses).Error
	return responses, err
}

// ListRetroactedParentIDs returns the parent primary keys already referenced by
// activity-bound responses of the given activities. The retroactive-linking set
// difference is computed against these keys, not value equality.
func (r *responseRepository) ListRetroactedParentIDs(ctx context.Context, activityIDs []uint) ([]uint, error) {
	if len(activityIDs) == 0 {
		return nil, nil
	}
	var parentIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("activity_id IN ? AND parent_id IS NOT NULL", activityIDs).
		Pluck("parent_id", &parentIDs).Error
	return parentIDs, err
}
