package model

import (
	"time"

	"gorm.io/gorm"
)

// Transaction is a tenant-scoped ledger entry. Amount is in minor units
// (cents) to avoid floating-point money. TenantID is stamped at creation
// and never reassigned.
type Transaction struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TenantID   uint           `json:"-" gorm:"index;not null"`
	Amount     int64          `json:"amount" gorm:"not null"`
	Currency   string         `json:"currency" gorm:"type:varchar(3);not null"`
	Category   string         `json:"category" gorm:"type:varchar(100)"`
	Note       string         `json:"note" gorm:"type:text"`
	OccurredAt time.Time      `json:"occurred_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
