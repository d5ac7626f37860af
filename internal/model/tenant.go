package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant represents an isolated workspace owning a disjoint slice of
// finance data. The numeric ID stays inside the store; PublicID is the
// opaque identifier used in URLs and claims.
type Tenant struct {
	ID        uint           `json:"-" gorm:"primaryKey"`
	PublicID  string         `json:"id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
