package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// CourseRepository answers the read-only course queries the engine needs.
type CourseRepository interface {
	CountTaughtBy(ctx context.Context, userID uint) (int64, error)
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

type courseRepository struct {
	db *gorm.DB
}

func (r *courseRepository) CountTaughtBy(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Course{}).Where("teacher_id = ?", userID).Count(&count).Error
	return count, err
}
