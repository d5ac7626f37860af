package store

import (
	"context"

	"fintrack/internal/model"
	"fintrack/internal/tenantctx"

	"gorm.io/gorm"
)

// BudgetStore handles all data access for budgets.
type BudgetStore struct {
	db *gorm.DB
}

func NewBudgetStore(db *gorm.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

// scoped is the single base-query constructor for budgets.
func (s *BudgetStore) scoped(ctx context.Context, tc tenantctx.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Budget{}).Where("tenant_id = ?", tc.TenantID)
}

// List returns the tenant's budgets, optionally filtered to one month.
func (s *BudgetStore) List(ctx context.Context, tc tenantctx.Context, month string) ([]model.Budget, error) {
	q := s.scoped(ctx, tc)
	if month != "" {
		q = q.Where("month = ?", month)
	}
	var budgets []model.Budget
	if err := q.Order("month DESC, category ASC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

// Get returns one budget by id within the tenant.
func (s *BudgetStore) Get(ctx context.Context, tc tenantctx.Context, id uint) (*model.Budget, error) {
	var budget model.Budget
	if err := s.scoped(ctx, tc).Where("id = ?", id).First(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

// Create inserts a budget, stamping its tenant from the context.
func (s *BudgetStore) Create(ctx context.Context, tc tenantctx.Context, budget *model.Budget) error {
	budget.TenantID = tc.TenantID
	return s.db.WithContext(ctx).Create(budget).Error
}

// Update applies column updates to one budget within the tenant.
func (s *BudgetStore) Update(ctx context.Context, tc tenantctx.Context, id uint, updates map[string]interface{}) error {
	return notFound(s.scoped(ctx, tc).Where("id = ?", id).Updates(updates))
}

// Delete removes one budget within the tenant.
func (s *BudgetStore) Delete(ctx context.Context, tc tenantctx.Context, id uint) error {
	return notFound(s.scoped(ctx, tc).Where("id = ?", id).Delete(&model.Budget{}))
}
