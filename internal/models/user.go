package models

import (
	"strconv"
	"time"
)

// User is keyed by the Telegram user id.
type User struct {
	UserID      int64   `gorm:"primaryKey;autoIncrement:false"`
	Username    *string `gorm:"size:255"`
	Tier        Tier    `gorm:"size:50;not null;default:'Free'"`
	TrialExpiry *time.Time
	Referrals   int `gorm:"not null;default:0"`
	CreatedAt   time.Time
}

func (User) TableName() string { return "users" }

// DisplayName prefers the @handle and falls back to the numeric id.
func (u User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return "@" + *u.Username
	}
	return "ID " + strconv.FormatInt(u.UserID, 10)
}

// DaysLeft rounds the remaining time up to whole days. Zero means no
// expiry or already expired.
func (u User) DaysLeft(now time.Time) int {
	if u.TrialExpiry == nil || !u.TrialExpiry.After(now) {
		return 0
	}
	left := u.TrialExpiry.Sub(now)
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}
