package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
)

// UserRepository persists users, referrals and the upgrade log.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ ledger.Store = (*UserRepository)(nil)

func (r *UserRepository) Transact(ctx context.Context, fn func(tx ledger.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UserRepository{db: tx})
	})
}

func (r *UserRepository) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return r.getUser(r.db.WithContext(ctx), userID)
}

func (r *UserRepository) GetUserForUpdate(ctx context.Context, userID int64) (*models.User, error) {
	return r.getUser(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *UserRepository) getUser(db *gorm.DB, userID int64) (*models.User, error) {
	var user models.User
	err := db.Where("user_id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create user %d: %w", user.UserID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *UserRepository) UpdateUsername(ctx context.Context, userID int64, username *string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		UpdateColumn("username", username).Error
	if err != nil {
		return fmt.Errorf("failed to update username of user %d: %w", userID, err)
	}
	return nil
}

func (r *UserRepository) UpdateTier(ctx context.Context, userID int64, tier models.Tier, expiry *time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"tier":         tier,
			"trial_expiry": expiry,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update tier of user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update tier of user %d: %w", userID, gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *UserRepository) ReferralExists(ctx context.Context, referredID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referred_id = ?", referredID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check referral of user %d: %w", referredID, err)
	}
	return n > 0, nil
}

func (r *UserRepository) CreateReferral(ctx context.Context, referral *models.Referral) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(referral)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create referral %d->%d: %w", referral.ReferrerID, referral.ReferredID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementReferrals runs a single UPDATE ... RETURNING so concurrent
// credits never lose an increment.
func (r *UserRepository) IncrementReferrals(ctx context.Context, referrerID int64) (*models.User, error) {
	var user models.User
	res := r.db.WithContext(ctx).Model(&user).
		Clauses(clause.Returning{}).
		Where("user_id = ?", referrerID).
		UpdateColumn("referrals", gorm.Expr("referrals + ?", 1))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment referrals of user %d: %w", referrerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *UserRepository) AppendUpgrade(ctx context.Context, upgrade *models.Upgrade) error {
	if err := r.db.WithContext(ctx).Create(upgrade).Error; err != nil {
		return fmt.Errorf("failed to record upgrade of user %d: %w", upgrade.UserID, err)
	}
	return nil
}

func (r *UserRepository) ListUpgrades(ctx context.Context, userID int64) ([]models.Upgrade, error) {
	var upgrades []models.Upgrade
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("upgraded_at ASC, id ASC").
		Find(&upgrades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upgrades of user %d: %w", userID, err)
	}
	return upgrades, nil
}

func (r *UserRepository) CountSignals(ctx context.Context, userID int64, status models.SignalStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Signal{}).
		Where("user_id = ? AND status = ?", userID, status).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count signals of user %d: %w", userID, err)
	}
	return n, nil
}

func (r *UserRepository) TopReferrers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("referrals > 0").
		Order("referrals DESC, user_id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top referrers: %w", err)
	}
	return users, nil
}

// UsersExpiringBetween returns users whose expiry falls in (from, to].
func (r *UserRepository) UsersExpiringBetween(ctx context.Context, from, to time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("trial_expiry > ? AND trial_expiry <= ?", from, to).
		Order("trial_expiry ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load expiring users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Stats(ctx context.Context) (*models.Stats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.Stats{
		UsersByTier:     map[models.Tier]int64{},
		SignalsByStatus: map[models.SignalStatus]int64{},
	}

	var tiers []struct {
		Tier  models.Tier
		Count int64
	}
	if err := db.Model(&models.User{}).Select("tier, COUNT(*) AS count").Group("tier").Scan(&tiers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users by tier: %w", err)
	}
	for _, t := range tiers {
		stats.UsersByTier[t.Tier] = t.Count
		stats.TotalUsers += t.Count
	}

	if err := db.Model(&models.Referral{}).Count(&stats.TotalReferrals).Error; err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	var statuses []struct {
		Status models.SignalStatus
		Count  int64
	}
	if err := db.Model(&models.Signal{}).Select("status, COUNT(*) AS count").Group("status").Scan(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to count signals by status: %w", err)
	}
	for _, s := range statuses {
		stats.SignalsByStatus[s.Status] = s.Count
	}

	top, err := r.TopReferrers(ctx, 5)
	if err != nil {
		return nil, err
	}
	stats.TopReferrers = top
	return stats, nil
}
