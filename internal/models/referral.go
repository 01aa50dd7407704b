package models

import (
	"time"
)

// Referral is the edge recorded when a new user arrives through another
// user's link. A user can be referred at most once.
type Referral struct {
	ID         uint      `gorm:"primaryKey"`
	ReferrerID int64     `gorm:"not null;uniqueIndex:referrals_pair_key"`
	ReferredID int64     `gorm:"not null;uniqueIndex:referrals_pair_key;uniqueIndex:referrals_referred_key"`
	ReferredAt time.Time `gorm:"not null"`
}

func (Referral) TableName() string { return "referrals" }
