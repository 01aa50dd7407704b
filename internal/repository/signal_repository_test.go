package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/repository/testutil"
)

func newSignal(userID int64, symbol string) *models.Signal {
	return &models.Signal{
		UserID:       userID,
		Symbol:       symbol,
		EntryPrice:   decimal.RequireFromString("100.5"),
		TargetPrice1: decimal.RequireFromString("120"),
		StopLoss:     decimal.RequireFromString("95.25"),
		Status:       models.SignalOpen,
	}
}

func TestSignalRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewSignalRepository(testDB.DB)
	ctx := context.Background()
	testutil.CreateTestUser(t, testDB.DB, 1, models.TierFree)
	testutil.CreateTestUser(t, testDB.DB, 2, models.TierFree)

	first := newSignal(1, "BTC")
	require.NoError(t, repo.CreateSignal(ctx, first))
	second := newSignal(1, "ETH")
	require.NoError(t, repo.CreateSignal(ctx, second))
	foreign := newSignal(2, "SOL")
	require.NoError(t, repo.CreateSignal(ctx, foreign))
	assert.NotZero(t, first.ID)

	t.Run("unregistered owner", func(t *testing.T) {
		err := repo.CreateSignal(ctx, newSignal(404, "XRP"))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("prices round trip exactly", func(t *testing.T) {
		got, err := repo.GetSignal(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.EntryPrice.Equal(decimal.RequireFromString("100.5")))
		assert.True(t, got.StopLoss.Equal(decimal.RequireFromString("95.25")))
		assert.False(t, got.TargetPrice2.Valid)
		assert.Equal(t, "", got.Tags)
	})

	t.Run("list newest first", func(t *testing.T) {
		rows, err := repo.ListByOwner(ctx, 1)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, second.ID, rows[0].ID)
		assert.Equal(t, first.ID, rows[1].ID)

		none, err := repo.ListByOwner(ctx, 404)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update respects ownership", func(t *testing.T) {
		n, err := repo.UpdateOwnedField(ctx, first.ID, 2, "symbol", "HACK")
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.UpdateOwnedField(ctx, first.ID, 1, "target_price_2", decimal.NewNullDecimal(decimal.RequireFromString("130")))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.GetSignal(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "BTC", got.Symbol)
		require.True(t, got.TargetPrice2.Valid)
		assert.True(t, got.TargetPrice2.Decimal.Equal(decimal.RequireFromString("130")))
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := repo.SignalExists(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.SignalExists(ctx, 999999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete only own signals", func(t *testing.T) {
		n, err := repo.DeleteOwned(ctx, []uint{first.ID, foreign.ID}, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		ok, err := repo.SignalExists(ctx, foreign.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		n, err = repo.DeleteOwned(ctx, []uint{first.ID}, 1)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
