// Package store is the only place tenant-scoped entities are read or
// written. Each store exposes exactly one scoped base-query constructor
// keyed off the request's tenant context; every list, get, update and
// delete derives from it, so tenant filtering has a single auditable
// chokepoint per entity. Creation is the one assignment point: it stamps
// the new row's tenant from the same context.
//
// Handlers must not touch gorm for these entities outside this package.
package store

import "gorm.io/gorm"

// notFound normalizes "zero rows touched" mutations to the same error a
// missed read returns.
func notFound(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
