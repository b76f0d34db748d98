package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// QuestionQuery filters question listings.
type QuestionQuery struct {
	Kind       string
	OnlyActive bool
	OwnerID    *uint
	Page       int
	PageSize   int
}

// QuestionRepository exposes persistence helpers for the question catalog.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (models.Question, error)
	List(ctx context.Context, query QuestionQuery) ([]models.Question, int64, error)
	Deactivate(ctx context.Context, id uint) error
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) List(ctx context.Context, query QuestionQuery) ([]models.Question, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Question{})

	if query.Kind != "" {
		tx = tx.Where("kind = ?", query.Kind)
	}
	if query.OnlyActive {
		tx = tx.Where("is_active = ?", true)
	}
	if query.OwnerID != nil {
		tx = tx.Where("owner_id = ?", *query.OwnerID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	var questions []models.Question
	err := tx.Order("id ASC").Limit(pageSize).Offset((page - 1) * pageSize).Find(&questions).Error
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// Deactivate soft-disables the question. Questions referenced by responses are
// never deleted.
func (r *questionRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Update("is_active", false).Error
}
