package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SignalStatus string

const (
	SignalOpen      SignalStatus = "Open"
	SignalClosed    SignalStatus = "Closed"
	SignalCancelled SignalStatus = "Cancelled"
)

// Signal is a user-authored trade setup.
type Signal struct {
	ID           uint                `gorm:"primaryKey"`
	UserID       int64               `gorm:"not null;index"`
	Symbol       string              `gorm:"size:20;not null"`
	EntryPrice   decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	TargetPrice1 decimal.Decimal     `gorm:"column:target_price_1;type:numeric(20,8);not null"`
	TargetPrice2 decimal.NullDecimal `gorm:"column:target_price_2;type:numeric(20,8)"`
	TargetPrice3 decimal.NullDecimal `gorm:"column:target_price_3;type:numeric(20,8)"`
	StopLoss     decimal.Decimal     `gorm:"type:numeric(20,8);not null"`
	Status       SignalStatus        `gorm:"size:20;not null;default:'Open'"`
	Tags         string              `gorm:"size:255;not null;default:''"`
	CreatedAt    time.Time
}

func (Signal) TableName() string { return "signals" }
