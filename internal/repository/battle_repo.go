package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/models"
)

// ErrWinnerAlreadySet reports a lost compare-and-set race on the battle winner.
// The caller should reload the battle and use the stored winner.
var ErrWinnerAlreadySet = errors.New("battle winner already set")

// BattleRepository exposes persistence helpers for battles and their
// participant sessions.
type BattleRepository interface {
	Create(ctx context.Context, battle *models.Battle) error
	GetByID(ctx context.Context, id uint) (models.Battle, error)
	CreateInvitation(ctx context.Context, invitation *models.BattleInvitation) error
	ConsumeInvitation(ctx context.Context, battleID, userID uint) (bool, error)
	CreateResponse(ctx context.Context, response *models.BattleResponse) error
	UpdateResponse(ctx context.Context, response *models.BattleResponse) error
	GetResponse(ctx context.Context, battleID, userID uint) (models.BattleResponse, error)
	SetWinner(ctx context.Context, battleID, winnerID uint) error
}

// NewBattleRepository constructs a battle repository.
func NewBattleRepository(db *gorm.DB) BattleRepository {
	return &battleRepository{db: db}
}

type battleRepository struct {
	db *gorm.DB
}

func (r *battleRepository) Create(ctx context.Context, battle *models.Battle) error {
	return r.db.WithContext(ctx).Create(battle).Error
}

// GetByID loads the battle with invitations and participant sessions.
// Participants are ordered by insertion so winner tie-breaks stay stable.
func (r *battleRepository) GetByID(ctx context.Context, id uint) (models.Battle, error) {
	var battle models.Battle
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Invitations").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("battle_responses.id ASC")
		}).
		First(&battle, id).Error
	if err != nil {
		return models.Battle{}, err
	}
	return battle, nil
}

func (r *battleRepository) CreateInvitation(ctx context.Context, invitation *models.BattleInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// ConsumeInvitation removes the user's invitation and reports whether one
// existed. Deleting and checking rows affected keeps join idempotent under
// concurrent accepts.
func (r *battleRepository) ConsumeInvitation(ctx context.Context, battleID, userID uint) (bool, error) {
	tx := r.db.WithContext(ctx).
		Where("battle_id = ? AND user_id = ?", battleID, userID).
		Delete(&models.BattleInvitation{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *battleRepository) CreateResponse(ctx context.Context, response *models.BattleResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *battleRepository) UpdateResponse(ctx context.Context, response *models.BattleResponse) error {
	return r.db.WithContext(ctx).Save(response).Error
}

func (r *battleRepository) GetResponse(ctx context.Context, battleID, userID uint) (models.BattleResponse, error) {
	var response models.BattleResponse
	err := r.db.WithContext(ctx).
		Where("battle_id = ? AND user_id = ?", battleID, userID).
		Order("id ASC").
		First(&response).Error
	if err != nil {
		return models.BattleResponse{}, err
	}
	return response, nil
}

// SetWinner persists the winner with a compare-and-set: only the first caller's
// write survives, every later caller gets ErrWinnerAlreadySet.
func (r *battleRepository) SetWinner(ctx context.Context, battleID, winnerID uint) error {
	tx := r.db.WithContext(ctx).
		Model(&models.Battle{}).
		Where("id = ? AND winner_id IS NULL", battleID).
		Update("winner_id", winnerID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrWinnerAlreadySet
	}
	return nil
}
