package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/stretchr/testify/mock"

	"targethawk-bot/internal/models"
	"targethawk-bot/internal/notify"
)

// memStore is an in-memory Store. Transact restores the previous state
// when fn fails.
type memStore struct {
	users       map[int64]models.User
	referrals   []models.Referral
	upgrades    []models.Upgrade
	openSignals map[int64]int64

	failOn  string
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[int64]models.User{},
		openSignals: map[int64]int64{},
	}
}

func (s *memStore) fail(method string) error {
	if s.failOn == method {
		return s.failErr
	}
	return nil
}

func (s *memStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	users := make(map[int64]models.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	referrals := append([]models.Referral(nil), s.referrals...)
	upgrades := append([]models.Upgrade(nil), s.upgrades...)

	if err := fn(s); err != nil {
		s.users, s.referrals, s.upgrades = users, referrals, upgrades
		return err
	}
	return nil
}

func (s *memStore) GetUser(_ context.Context, userID int64) (*models.User, error) {
	if err := s.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *memStore) GetUserForUpdate(ctx context.Context, userID int64) (*models.User, error) {
	return s.GetUser(ctx, userID)
}

func (s *memStore) CreateUser(_ context.Context, user *models.User) (bool, error) {
	if err := s.fail("CreateUser"); err != nil {
		return false, err
	}
	if _, ok := s.users[user.UserID]; ok {
		return false, nil
	}
	s.users[user.UserID] = *user
	return true, nil
}

func (s *memStore) UpdateUsername(_ context.Context, userID int64, username *string) error {
	u := s.users[userID]
	u.Username = username
	s.users[userID] = u
	return nil
}

func (s *memStore) UpdateTier(_ context.Context, userID int64, tier models.Tier, expiry *time.Time) error {
	if err := s.fail("UpdateTier"); err != nil {
		return err
	}
	u := s.users[userID]
	u.Tier = tier
	u.TrialExpiry = expiry
	s.users[userID] = u
	return nil
}

func (s *memStore) ReferralExists(_ context.Context, referredID int64) (bool, error) {
	for _, r := range s.referrals {
		if r.ReferredID == referredID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateReferral(ctx context.Context, referral *models.Referral) (bool, error) {
	if exists, _ := s.ReferralExists(ctx, referral.ReferredID); exists {
		return false, nil
	}
	referral.ID = uint(len(s.referrals) + 1)
	s.referrals = append(s.referrals, *referral)
	return true, nil
}

func (s *memStore) IncrementReferrals(_ context.Context, referrerID int64) (*models.User, error) {
	if err := s.fail("IncrementReferrals"); err != nil {
		return nil, err
	}
	u, ok := s.users[referrerID]
	if !ok {
		return nil, nil
	}
	u.Referrals++
	s.users[referrerID] = u
	return &u, nil
}

func (s *memStore) AppendUpgrade(_ context.Context, upgrade *models.Upgrade) error {
	if err := s.fail("AppendUpgrade"); err != nil {
		return err
	}
	upgrade.ID = uint(len(s.upgrades) + 1)
	s.upgrades = append(s.upgrades, *upgrade)
	return nil
}

func (s *memStore) CountSignals(_ context.Context, userID int64, _ models.SignalStatus) (int64, error) {
	return s.openSignals[userID], nil
}

func (s *memStore) TopReferrers(_ context.Context, limit int) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Referrals > 0 {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Referrals != out[j].Referrals {
			return out[i].Referrals > out[j].Referrals
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Stats(context.Context) (*models.Stats, error) {
	if err := s.fail("Stats"); err != nil {
		return nil, err
	}
	stats := &models.Stats{
		TotalUsers:     int64(len(s.users)),
		UsersByTier:    map[models.Tier]int64{},
		TotalReferrals: int64(len(s.referrals)),
	}
	for _, u := range s.users {
		stats.UsersByTier[u.Tier]++
	}
	return stats, nil
}

func (s *memStore) upgradesFor(userID int64) []models.Upgrade {
	var out []models.Upgrade
	for _, u := range s.upgrades {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out
}

var errDown = errors.New("connection refused")

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Deliver(ctx context.Context, notices ...notify.Notice) error {
	args := m.Called(ctx, notices)
	return args.Error(0)
}

func (m *MockNotifier) Dispatch(ctx context.Context, notices ...notify.Notice) {
	m.Called(ctx, notices)
}

// recordDispatches accepts every Dispatch call and collects the notices.
func recordDispatches(n *MockNotifier) *[]notify.Notice {
	var got []notify.Notice
	n.On("Dispatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		got = append(got, args.Get(1).([]notify.Notice)...)
	})
	return &got
}
