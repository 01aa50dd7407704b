package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targethawk-bot/internal/ledger"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/notify"
	"targethawk-bot/internal/repository/testutil"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetUser(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create once", func(t *testing.T) {
		name := "hawk"
		expiry := time.Now().UTC().Add(72 * time.Hour)
		created, err := repo.CreateUser(ctx, &models.User{
			UserID:      100,
			Username:    &name,
			Tier:        models.TierProTrial,
			TrialExpiry: &expiry,
			CreatedAt:   time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.CreateUser(ctx, &models.User{UserID: 100, Tier: models.TierFree, CreatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.False(t, created)

		user, err := repo.GetUser(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, models.TierProTrial, user.Tier)
		assert.Equal(t, "hawk", *user.Username)
		assert.WithinDuration(t, expiry, *user.TrialExpiry, time.Millisecond)
		assert.Equal(t, 0, user.Referrals)
	})

	t.Run("username can be cleared", func(t *testing.T) {
		require.NoError(t, repo.UpdateUsername(ctx, 100, nil))
		user, err := repo.GetUser(ctx, 100)
		require.NoError(t, err)
		assert.Nil(t, user.Username)
	})
}

func TestUserRepository_IncrementReferralsConcurrently(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.CreateTestUser(t, testDB.DB, 1, models.TierFree)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementReferrals(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, user.Referrals)

	updated, err := repo.IncrementReferrals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 21, updated.Referrals)
	assert.Equal(t, models.TierFree, updated.Tier)

	missing, err := repo.IncrementReferrals(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_Referrals(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		testutil.CreateTestUser(t, testDB.DB, id, models.TierFree)
	}
	now := time.Now().UTC()

	inserted, err := repo.CreateReferral(ctx, &models.Referral{ReferrerID: 1, ReferredID: 2, ReferredAt: now})
	require.NoError(t, err)
	assert.True(t, inserted)

	exists, err := repo.ReferralExists(ctx, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	// a user is referred at most once, whoever the referrer is
	inserted, err = repo.CreateReferral(ctx, &models.Referral{ReferrerID: 3, ReferredID: 2, ReferredAt: now})
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.CreateReferral(ctx, &models.Referral{ReferrerID: 3, ReferredID: 3, ReferredAt: now})
	assert.Error(t, err)
}

func TestUserRepository_TierAndUpgrades(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	testutil.CreateTestUser(t, testDB.DB, 1, models.TierFree)

	expiry := time.Now().UTC().Add(30 * 24 * time.Hour)
	require.NoError(t, repo.UpdateTier(ctx, 1, models.TierPro, &expiry))
	days := 30
	require.NoError(t, repo.AppendUpgrade(ctx, &models.Upgrade{UserID: 1, Tier: models.TierPro, Source: "Admin Upgrade", DurationDays: &days, UpgradedAt: time.Now().UTC()}))

	require.NoError(t, repo.UpdateTier(ctx, 1, models.TierVIP, nil))
	require.NoError(t, repo.AppendUpgrade(ctx, &models.Upgrade{UserID: 1, Tier: models.TierVIP, Source: "YooKassa", UpgradedAt: time.Now().UTC()}))

	user, err := repo.GetUserForUpdate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TierVIP, user.Tier)
	assert.Nil(t, user.TrialExpiry)

	upgrades, err := repo.ListUpgrades(ctx, 1)
	require.NoError(t, err)
	require.Len(t, upgrades, 2)
	assert.Equal(t, 30, *upgrades[0].DurationDays)
	assert.Nil(t, upgrades[1].DurationDays)

	t.Run("schema rejects out of range values", func(t *testing.T) {
		tooLong := 400
		err := repo.AppendUpgrade(ctx, &models.Upgrade{UserID: 1, Tier: models.TierPro, Source: "x", DurationDays: &tooLong, UpgradedAt: time.Now().UTC()})
		assert.Error(t, err)

		err = repo.UpdateTier(ctx, 1, models.Tier("Gold"), nil)
		assert.Error(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		assert.Error(t, repo.UpdateTier(ctx, 404, models.TierPro, nil))
	})
}

func TestUserRepository_LeaderboardAndStats(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	testutil.CreateTestUser(t, testDB.DB, 1, models.TierFree)
	testutil.CreateTestUser(t, testDB.DB, 2, models.TierPro)
	testutil.CreateTestUser(t, testDB.DB, 3, models.TierPro)
	for i := 0; i < 3; i++ {
		_, err := repo.IncrementReferrals(ctx, 2)
		require.NoError(t, err)
	}
	_, err := repo.IncrementReferrals(ctx, 1)
	require.NoError(t, err)

	top, err := repo.TopReferrers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(1), top[1].UserID)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.UsersByTier[models.TierPro])
	assert.Equal(t, int64(1), stats.UsersByTier[models.TierFree])
	assert.Len(t, stats.TopReferrers, 2)
}

func TestUserRepository_UsersExpiringBetween(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC()

	soon := now.Add(12 * time.Hour)
	later := now.Add(72 * time.Hour)
	testutil.CreateTestUser(t, testDB.DB, 1, models.TierPro)
	testutil.CreateTestUser(t, testDB.DB, 2, models.TierPro)
	testutil.CreateTestUser(t, testDB.DB, 3, models.TierVIP)
	require.NoError(t, repo.UpdateTier(ctx, 1, models.TierPro, &soon))
	require.NoError(t, repo.UpdateTier(ctx, 2, models.TierPro, &later))

	users, err := repo.UsersExpiringBetween(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].UserID)
}

type discardSender struct{}

func (discardSender) Send(context.Context, notify.Notice) error { return nil }

func TestLedger_ReferralFlowOnPostgres(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	repo := NewUserRepository(testDB.DB)
	dispatcher := notify.NewDispatcher(discardSender{}, time.Second)
	l := ledger.New(repo, dispatcher)
	ctx := context.Background()

	_, err := l.RegisterOrTouch(ctx, 1, "alice", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := int64(2); i <= 4; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			referrer := int64(1)
			_, err := l.RegisterOrTouch(ctx, id, "", &referrer)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	dispatcher.Wait()

	alice, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, alice.Referrals)
	assert.Equal(t, models.TierPro, alice.Tier)
	require.NotNil(t, alice.TrialExpiry)
	assert.WithinDuration(t, time.Now().Add((ledger.TrialDays+30)*24*time.Hour), *alice.TrialExpiry, time.Minute)

	upgrades, err := repo.ListUpgrades(ctx, 1)
	require.NoError(t, err)
	require.Len(t, upgrades, 1)
	assert.Equal(t, ledger.SourceReferralBonus, upgrades[0].Source)

	// a second /start with another referrer changes nothing
	other := int64(4)
	reg, err := l.RegisterOrTouch(ctx, 2, "bob", &other)
	require.NoError(t, err)
	assert.False(t, reg.Created)
	assert.Nil(t, reg.Referral)
}
