package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/signals"
)

type SignalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

var _ signals.Store = (*SignalRepository)(nil)

func (r *SignalRepository) CreateSignal(ctx context.Context, signal *models.Signal) error {
	err := r.db.WithContext(ctx).Create(signal).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperr.NotFound("user %d is not registered", signal.UserID)
	}
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

func (r *SignalRepository) GetSignal(ctx context.Context, signalID uint) (*models.Signal, error) {
	var signal models.Signal
	err := r.db.WithContext(ctx).Where("id = ?", signalID).Take(&signal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal %d: %w", signalID, err)
	}
	return &signal, nil
}

func (r *SignalRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Signal, error) {
	var rows []models.Signal
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "symbol", "status", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list signals of user %d: %w", userID, err)
	}
	return rows, nil
}

func (r *SignalRepository) UpdateOwnedField(ctx context.Context, signalID uint, ownerID int64, column string, value any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Signal{}).
		Where("id = ? AND user_id = ?", signalID, ownerID).
		UpdateColumn(column, value)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update %s of signal %d: %w", column, signalID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *SignalRepository) SignalExists(ctx context.Context, signalID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Signal{}).Where("id = ?", signalID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check signal %d: %w", signalID, err)
	}
	return n > 0, nil
}

func (r *SignalRepository) DeleteOwned(ctx context.Context, ids []uint, ownerID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", ownerID, ids).
		Delete(&models.Signal{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete signals of user %d: %w", ownerID, res.Error)
	}
	return res.RowsAffected, nil
}
