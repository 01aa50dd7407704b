// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"targethawk-bot/internal/models"
	"targethawk-bot/internal/notify"
)

const (
	reminderFrom = 23 * time.Hour
	reminderTo   = 25 * time.Hour
	reminderTTL  = 48 * time.Hour
)

type ExpiryFinder interface {
	UsersExpiringBetween(ctx context.Context, from, to time.Time) ([]models.User, error)
}

// Checker reminds users a day before their paid or trial period ends.
// It never changes a tier.
type Checker struct {
	users    ExpiryFinder
	redis    *redis.Client
	sender   notify.Sender
	interval time.Duration
	now      func() time.Time
}

func NewChecker(users ExpiryFinder, rdb *redis.Client, sender notify.Sender, interval time.Duration) *Checker {
	return &Checker{
		users:    users,
		redis:    rdb,
		sender:   sender,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs a check immediately and then on every tick until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	log.WithField("interval", c.interval).Info("Expiry reminder worker started")

	c.run(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Expiry reminder worker stopped")
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

func (c *Checker) run(ctx context.Context) {
	sent, err := c.RunOnce(ctx)
	if err != nil {
		log.WithError(err).Error("Expiry reminder cycle failed")
		return
	}
	if sent > 0 {
		log.WithField("sent", sent).Info("Expiry reminders sent")
	}
}

// RunOnce sends reminders to users expiring in roughly a day and returns
// how many were sent.
func (c *Checker) RunOnce(ctx context.Context) (int, error) {
	now := c.now().UTC()
	users, err := c.users.UsersExpiringBetween(ctx, now.Add(reminderFrom), now.Add(reminderTo))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if u.TrialExpiry == nil {
			continue
		}
		key := reminderKey(u)
		fresh, err := c.redis.SetNX(ctx, key, "1", reminderTTL).Result()
		if err != nil {
			return sent, fmt.Errorf("failed to mark reminder for user %d: %w", u.UserID, err)
		}
		if !fresh {
			continue
		}

		err = c.sender.Send(ctx, notify.Notice{UserID: u.UserID, Text: reminderText(u)})
		if err != nil {
			log.WithFields(log.Fields{
				"userID": u.UserID,
				"error":  err,
			}).Warn("Failed to send expiry reminder")
			// retry on the next cycle
			if err := c.redis.Del(ctx, key).Err(); err != nil {
				log.WithFields(log.Fields{
					"userID": u.UserID,
					"key":    key,
					"error":  err,
				}).Warn("Failed to clear reminder mark, reminder is skipped until it expires")
			}
			continue
		}
		sent++
	}
	return sent, nil
}

func reminderKey(u models.User) string {
	return fmt.Sprintf("reminded_expiry_%d_%d", u.UserID, u.TrialExpiry.Unix())
}

func reminderText(u models.User) string {
	return fmt.Sprintf("⚠️ Your %s plan expires on %s UTC. Use /upgrade to keep your access.",
		u.Tier, u.TrialExpiry.UTC().Format("2006-01-02 15:04"))
}
