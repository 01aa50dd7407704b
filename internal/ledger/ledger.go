// Package ledger owns user tiers, tier grants and referral credit.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/apperr"
	"targethawk-bot/internal/models"
	"targethawk-bot/internal/notify"
)

const (
	TrialDays            = 3
	ReferralProThreshold = 3
	ReferralVIPThreshold = 10
	ReferralProDays      = 30
	MaxDurationDays      = 365

	SourceReferralBonus = "Referral Bonus"
	SourceAdminUpgrade  = "Admin Upgrade"
)

// ExpiryMode decides what happens to the expiry when a grant has no duration.
type ExpiryMode int

const (
	KeepExpiry ExpiryMode = iota
	ClearExpiry
)

// GrantRequest assigns Tier to a user. A nil DurationDays means the grant is
// not time-boxed and Expiry decides whether the current expiry survives.
type GrantRequest struct {
	UserID       int64
	Tier         models.Tier
	Source       string
	DurationDays *int
	Expiry       ExpiryMode
}

// GrantResult is returned once the grant is committed. Notified is false
// when the user could not be told about it.
type GrantResult struct {
	User      *models.User
	Notified  bool
	NotifyErr error
}

// ReferralCredit describes the credit applied to a referrer on registration.
type ReferralCredit struct {
	ReferrerID int64
	Count      int
	Tier       models.Tier
	Bonus      models.Tier
}

type Registration struct {
	User     *models.User
	Created  bool
	Referral *ReferralCredit
}

type Profile struct {
	User        *models.User
	OpenSignals int64
}

// Notifier delivers notices after a commit.
type Notifier interface {
	Deliver(ctx context.Context, notices ...notify.Notice) error
	Dispatch(ctx context.Context, notices ...notify.Notice)
}

type Ledger struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(store Store, notifier Notifier, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterOrTouch creates the user on first contact with a Pro Trial, or
// refreshes the stored username. A referrer is only credited when the user
// is new, the referrer exists and the user was never referred before.
func (l *Ledger) RegisterOrTouch(ctx context.Context, userID int64, username string, referrerID *int64) (*Registration, error) {
	now := l.now().UTC()
	name := usernamePtr(username)

	var (
		reg    Registration
		outbox notify.Outbox
	)
	err := l.store.Transact(ctx, func(tx Store) error {
		reg = Registration{}
		outbox.Discard()

		existing, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return l.touch(ctx, tx, existing, name, &reg)
		}

		expiry := now.Add(TrialDays * day)
		user := &models.User{
			UserID:      userID,
			Username:    name,
			Tier:        models.TierProTrial,
			TrialExpiry: &expiry,
			CreatedAt:   now,
		}
		created, err := tx.CreateUser(ctx, user)
		if err != nil {
			return err
		}
		if !created {
			// lost a race with a concurrent first contact
			existing, err := tx.GetUser(ctx, userID)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("user %d vanished after conflicting insert", userID)
			}
			return l.touch(ctx, tx, existing, name, &reg)
		}

		reg.User = user
		reg.Created = true

		if referrerID == nil || *referrerID == userID {
			return nil
		}
		credit, err := l.creditReferral(ctx, tx, *referrerID, userID, now, &outbox)
		if err != nil {
			return err
		}
		reg.Referral = credit
		return nil
	})
	if err != nil {
		outbox.Discard()
		return nil, apperr.Store("register user", err)
	}

	if reg.Created {
		fields := log.Fields{"userID": userID}
		if reg.Referral != nil {
			fields["referrerID"] = reg.Referral.ReferrerID
			fields["referrals"] = reg.Referral.Count
		}
		log.WithFields(fields).Info("Registered new user")
	}

	l.notifier.Dispatch(ctx, outbox.Drain()...)
	return &reg, nil
}

func (l *Ledger) touch(ctx context.Context, tx Store, user *models.User, name *string, reg *Registration) error {
	if err := tx.UpdateUsername(ctx, user.UserID, name); err != nil {
		return err
	}
	user.Username = name
	reg.User = user
	return nil
}

func (l *Ledger) creditReferral(ctx context.Context, tx Store, referrerID, referredID int64, now time.Time, outbox *notify.Outbox) (*ReferralCredit, error) {
	referrer, err := tx.GetUser(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		log.WithFields(log.Fields{
			"referrerID": referrerID,
			"referredID": referredID,
		}).Debug("Ignoring referral from unknown user")
		return nil, nil
	}

	exists, err := tx.ReferralExists(ctx, referredID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	inserted, err := tx.CreateReferral(ctx, &models.Referral{
		ReferrerID: referrerID,
		ReferredID: referredID,
		ReferredAt: now,
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}

	updated, err := tx.IncrementReferrals(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("referrer %d vanished while crediting", referrerID)
	}

	credit := &ReferralCredit{
		ReferrerID: referrerID,
		Count:      updated.Referrals,
		Tier:       updated.Tier,
	}
	outbox.Add(referrerID, fmt.Sprintf("🎉 You received a new referral! You now have %d referrals.", updated.Referrals))

	req, text, ok := referralBonus(referrerID, updated.Referrals, updated.Tier)
	if !ok {
		return credit, nil
	}
	granted, err := l.applyGrant(ctx, tx, req, now)
	if err != nil {
		return nil, err
	}
	credit.Bonus = req.Tier
	credit.Tier = granted.Tier
	outbox.Add(referrerID, text)
	return credit, nil
}

// GrantTier sets the user's tier, stacks the duration onto any running
// paid period and appends an audit row. The user is notified after the
// commit; a failed notification does not undo the grant.
func (l *Ledger) GrantTier(ctx context.Context, req GrantRequest) (*GrantResult, error) {
	if err := validateGrant(&req); err != nil {
		return nil, err
	}

	now := l.now().UTC()
	var user *models.User
	err := l.store.Transact(ctx, func(tx Store) error {
		granted, err := l.applyGrant(ctx, tx, req, now)
		if err != nil {
			return err
		}
		user = granted
		return nil
	})
	if err != nil {
		return nil, apperr.Store("grant tier", err)
	}

	log.WithFields(log.Fields{
		"userID": req.UserID,
		"tier":   req.Tier,
		"source": req.Source,
	}).Info("Granted tier")

	result := &GrantResult{User: user, Notified: true}
	if err := l.notifier.Deliver(ctx, notify.Notice{UserID: req.UserID, Text: grantText(req, user)}); err != nil {
		log.WithFields(log.Fields{
			"userID": req.UserID,
			"error":  err,
		}).Warn("Tier granted but user was not notified")
		result.Notified = false
		result.NotifyErr = fmt.Errorf("%w: %v", apperr.ErrNotification, err)
	}
	return result, nil
}

func (l *Ledger) applyGrant(ctx context.Context, tx Store, req GrantRequest, now time.Time) (*models.User, error) {
	user, err := tx.GetUserForUpdate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.NotFound("user %d is not registered", req.UserID)
	}

	expiry := user.TrialExpiry
	switch {
	case req.DurationDays != nil:
		e := ExtendExpiry(now, user, *req.DurationDays)
		expiry = &e
	case req.Expiry == ClearExpiry:
		expiry = nil
	}

	if err := tx.UpdateTier(ctx, req.UserID, req.Tier, expiry); err != nil {
		return nil, err
	}
	if err := tx.AppendUpgrade(ctx, &models.Upgrade{
		UserID:       req.UserID,
		Tier:         req.Tier,
		Source:       req.Source,
		DurationDays: req.DurationDays,
		UpgradedAt:   now,
	}); err != nil {
		return nil, err
	}

	user.Tier = req.Tier
	user.TrialExpiry = expiry
	return user, nil
}

func validateGrant(req *GrantRequest) error {
	if !req.Tier.Valid() {
		return apperr.Validation("unknown tier %q", req.Tier)
	}
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return apperr.Validation("grant source is required")
	}
	if d := req.DurationDays; d != nil && (*d < 1 || *d > MaxDurationDays) {
		return apperr.Validation("duration must be between 1 and %d days", MaxDurationDays)
	}
	return nil
}

func grantText(req GrantRequest, user *models.User) string {
	var b strings.Builder
	if req.Source == SourceAdminUpgrade {
		fmt.Fprintf(&b, "🎉 You have been upgraded to the %s plan by an administrator!", req.Tier)
	} else {
		fmt.Fprintf(&b, "🎉 You have been upgraded to the %s plan!", req.Tier)
	}
	if user.TrialExpiry != nil {
		fmt.Fprintf(&b, "\nValid until %s.", user.TrialExpiry.Format("2006-01-02"))
	}
	return b.String()
}

// Profile returns the user together with their open signal count.
func (l *Ledger) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.Store("load profile", err)
	}
	if user == nil {
		return nil, apperr.NotFound("you are not registered yet, send /start first")
	}
	open, err := l.store.CountSignals(ctx, userID, models.SignalOpen)
	if err != nil {
		return nil, apperr.Store("count signals", err)
	}
	return &Profile{User: user, OpenSignals: open}, nil
}

// Leaderboard returns users with at least one referral, best first.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		return nil, apperr.Validation("leaderboard size must be positive")
	}
	users, err := l.store.TopReferrers(ctx, limit)
	if err != nil {
		return nil, apperr.Store("load leaderboard", err)
	}
	return users, nil
}

func (l *Ledger) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := l.store.Stats(ctx)
	if err != nil {
		return nil, apperr.Store("load stats", err)
	}
	return stats, nil
}

func usernamePtr(username string) *string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil
	}
	return &username
}
