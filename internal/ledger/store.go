package ledger

import (
	"context"
	"time"

	"targethawk-bot/internal/models"
)

// Store is the persistence the ledger needs. Transact runs fn against a
// store bound to one transaction; fn returning an error rolls it back.
type Store interface {
	Transact(ctx context.Context, fn func(tx Store) error) error

	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	// GetUserForUpdate is GetUser with a row lock held until the
	// transaction ends.
	GetUserForUpdate(ctx context.Context, userID int64) (*models.User, error)
	// CreateUser reports false when a row with the same id already exists.
	CreateUser(ctx context.Context, user *models.User) (bool, error)
	UpdateUsername(ctx context.Context, userID int64, username *string) error
	UpdateTier(ctx context.Context, userID int64, tier models.Tier, expiry *time.Time) error

	ReferralExists(ctx context.Context, referredID int64) (bool, error)
	// CreateReferral reports false when the edge violates a uniqueness rule.
	CreateReferral(ctx context.Context, referral *models.Referral) (bool, error)
	// IncrementReferrals bumps the counter in one statement and returns the
	// updated row, or nil when the referrer does not exist.
	IncrementReferrals(ctx context.Context, referrerID int64) (*models.User, error)

	AppendUpgrade(ctx context.Context, upgrade *models.Upgrade) error

	CountSignals(ctx context.Context, userID int64, status models.SignalStatus) (int64, error)
	TopReferrers(ctx context.Context, limit int) ([]models.User, error)
	Stats(ctx context.Context) (*models.Stats, error)
}
