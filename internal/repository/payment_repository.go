package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/models"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ClaimPayment inserts the payment unless its YooKassa id was already
// recorded. It reports whether this call inserted the row.
func (r *PaymentRepository) ClaimPayment(ctx context.Context, payment *models.Payment) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(payment)
	if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
		return false, apperr.NotFound("user %d is not registered", payment.UserID)
	}
	if res.Error != nil {
		return false, fmt.Errorf("failed to record payment %s: %w", payment.YooKassaID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReleasePayment removes a claim whose grant failed so a redelivery can
// retry it.
func (r *PaymentRepository) ReleasePayment(ctx context.Context, yookassaID string) error {
	err := r.db.WithContext(ctx).Where("yookassa_id = ?", yookassaID).Delete(&models.Payment{}).Error
	if err != nil {
		return fmt.Errorf("failed to release payment %s: %w", yookassaID, err)
	}
	return nil
}

func (r *PaymentRepository) ListPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments of user %d: %w", userID, err)
	}
	return payments, nil
}
