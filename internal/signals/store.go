package signals

import (
	"context"

	"targethawk-bot/internal/models"
)

type Store interface {
	// CreateSignal fails with a not-found error when the owner is not registered.
	CreateSignal(ctx context.Context, signal *models.Signal) error
	ListByOwner(ctx context.Context, userID int64) ([]models.Signal, error)
	// UpdateOwnedField writes one column on a signal owned by ownerID and
	// reports how many rows changed.
	UpdateOwnedField(ctx context.Context, signalID uint, ownerID int64, column string, value any) (int64, error)
	SignalExists(ctx context.Context, signalID uint) (bool, error)
	// DeleteOwned removes the listed signals owned by ownerID and reports
	// how many rows were removed.
	DeleteOwned(ctx context.Context, ids []uint, ownerID int64) (int64, error)
}
