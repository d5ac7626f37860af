package model

import "time"

// UserTenant records that a user holds a role within a tenant.
// The composite unique index keeps at most one assignment per
// (user, tenant) pair. Rows are deleted outright on revocation so the
// slot frees up and the user can be re-invited later.
type UserTenant struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_user_tenant;not null"`
	TenantID  uint      `json:"tenant_id" gorm:"uniqueIndex:idx_user_tenant;not null"`
	Role      Role      `json:"role" gorm:"type:varchar(50);not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}
