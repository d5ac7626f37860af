package store

import (
	"context"

	"fintrack/internal/model"
	"fintrack/internal/tenantctx"

	"gorm.io/gorm"
)

// TransactionStore handles all data access for transactions.
type TransactionStore struct {
	db *gorm.DB
}

func NewTransactionStore(db *gorm.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// scoped is the single base-query constructor for transactions. Every read
// and mutation below derives from it.
func (s *TransactionStore) scoped(ctx context.Context, tc tenantctx.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Transaction{}).Where("tenant_id = ?", tc.TenantID)
}

// List returns the tenant's transactions, newest occurrence first.
func (s *TransactionStore) List(ctx context.Context, tc tenantctx.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	if err := s.scoped(ctx, tc).Order("occurred_at DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// Get returns one transaction by id within the tenant.
func (s *TransactionStore) Get(ctx context.Context, tc tenantctx.Context, id uint) (*model.Transaction, error) {
	var txn model.Transaction
	if err := s.scoped(ctx, tc).Where("id = ?", id).First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// Create inserts a transaction, stamping its tenant from the context. This
// is the one place tenant scoping is set by assignment rather than filter.
func (s *TransactionStore) Create(ctx context.Context, tc tenantctx.Context, txn *model.Transaction) error {
	txn.TenantID = tc.TenantID
	return s.db.WithContext(ctx).Create(txn).Error
}

// Update applies column updates to one transaction within the tenant.
func (s *TransactionStore) Update(ctx context.Context, tc tenantctx.Context, id uint, updates map[string]interface{}) error {
	return notFound(s.scoped(ctx, tc).Where("id = ?", id).Updates(updates))
}

// Delete removes one transaction within the tenant.
func (s *TransactionStore) Delete(ctx context.Context, tc tenantctx.Context, id uint) error {
	return notFound(s.scoped(ctx, tc).Where("id = ?", id).Delete(&model.Transaction{}))
}
