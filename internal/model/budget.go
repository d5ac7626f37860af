package model

import (
	"time"

	"gorm.io/gorm"
)

// Budget is a tenant-scoped monthly spending limit for a category.
// Month uses the "YYYY-MM" form; Limit is in minor units.
type Budget struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	TenantID  uint           `json:"-" gorm:"index;not null"`
	Category  string         `json:"category" gorm:"type:varchar(100);not null"`
	Month     string         `json:"month" gorm:"type:varchar(7);not null"`
	Limit     int64          `json:"limit" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
