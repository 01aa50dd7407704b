package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentSucceeded = "succeeded"
)

// Payment records a settled YooKassa payment. YooKassaID is unique so a
// redelivered webhook is recognised.
type Payment struct {
	ID           uint            `gorm:"primaryKey"`
	UserID       int64           `gorm:"not null;index"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency     string          `gorm:"size:3;not null"`
	Tier         Tier            `gorm:"size:50;not null"`
	DurationDays *int
	Status       string `gorm:"size:32;not null"`
	YooKassaID   string `gorm:"column:yookassa_id;size:255;uniqueIndex;not null"`
	CreatedAt    time.Time
}

func (Payment) TableName() string { return "payments" }
