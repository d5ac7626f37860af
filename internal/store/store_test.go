package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fintrack/internal/model"
	"fintrack/internal/tenantctx"
	"fintrack/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedTenant(t *testing.T, db *gorm.DB, name string, role model.Role) tenantctx.Context {
	t.Helper()
	tenant := model.Tenant{
		PublicID: fmt.Sprintf("%s-public-id", name),
		Name:     name,
		Active:   true,
	}
	require.NoError(t, db.Create(&tenant).Error)
	return tenantctx.Context{
		TenantID:       tenant.ID,
		TenantPublicID: tenant.PublicID,
		Role:           role,
	}
}

func seedTransactions(t *testing.T, db *gorm.DB, tc tenantctx.Context, n int) []model.Transaction {
	t.Helper()
	s := NewTransactionStore(db)
	txns := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txn := model.Transaction{
			Amount:     int64(100 * (i + 1)),
			Currency:   "USD",
			Category:   "groceries",
			OccurredAt: time.Now().Add(-time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.Create(context.Background(), tc, &txn))
		txns = append(txns, txn)
	}
	return txns
}

func TestTransactionIsolation(t *testing.T) {
	db := setupDB(t)
	t1 := seedTenant(t, db, "t1", model.RoleOwner)
	t2 := seedTenant(t, db, "t2", model.RoleOwner)

	seedTransactions(t, db, t1, 5)
	seedTransactions(t, db, t2, 5)

	s := NewTransactionStore(db)

	got, err := s.List(context.Background(), t1)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, txn := range got {
		assert.Equal(t, t1.TenantID, txn.TenantID)
	}

	got, err = s.List(context.Background(), t2)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, txn := range got {
		assert.Equal(t, t2.TenantID, txn.TenantID)
	}
}

func TestCreateStampsTenantFromContext(t *testing.T) {
	db := setupDB(t)
	t1 := seedTenant(t, db, "t1", model.RoleEditor)
	t2 := seedTenant(t, db, "t2", model.RoleEditor)

	s := NewTransactionStore(db)

	// A caller-supplied tenant id must not survive creation.
	txn := model.Transaction{
		TenantID: t2.TenantID,
		Amount:   500,
		Currency: "EUR",
	}
	require.NoError(t, s.Create(context.Background(), t1, &txn))
	assert.Equal(t, t1.TenantID, txn.TenantID)

	var stored model.Transaction
	require.NoError(t, db.First(&stored, txn.ID).Error)
	assert.Equal(t, t1.TenantID, stored.TenantID)
}

func TestGetDoesNotCrossTenants(t *testing.T) {
	db := setupDB(t)
	t1 := seedTenant(t, db, "t1", model.RoleViewer)
	t2 := seedTenant(t, db, "t2", model.RoleViewer)

	txns := seedTransactions(t, db, t1, 1)
	s := NewTransactionStore(db)

	got, err := s.Get(context.Background(), t1, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, txns[0].ID, got.ID)

	_, err = s.Get(context.Background(), t2, txns[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMutationsDoNotCrossTenants(t *testing.T) {
	db := setupDB(t)
	t1 := seedTenant(t, db, "t1", model.RoleEditor)
	t2 := seedTenant(t, db, "t2", model.RoleEditor)

	txns := seedTransactions(t, db, t1, 1)
	s := NewTransactionStore(db)

	err := s.Update(context.Background(), t2, txns[0].ID, map[string]interface{}{"amount": int64(999)})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = s.Delete(context.Background(), t2, txns[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The row is untouched and still reachable from its own tenant.
	got, err := s.Get(context.Background(), t1, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, txns[0].Amount, got.Amount)

	require.NoError(t, s.Update(context.Background(), t1, txns[0].ID, map[string]interface{}{"amount": int64(999)}))
	got, err = s.Get(context.Background(), t1, txns[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Amount)
}

func TestBudgetIsolation(t *testing.T) {
	db := setupDB(t)
	t1 := seedTenant(t, db, "t1", model.RoleEditor)
	t2 := seedTenant(t, db, "t2", model.RoleEditor)

	s := NewBudgetStore(db)
	for i, tc := range []tenantctx.Context{t1, t2} {
		for j := 0; j < 5; j++ {
			budget := model.Budget{
				Category: fmt.Sprintf("category-%d-%d", i, j),
				Month:    "2026-08",
				Limit:    10000,
			}
			require.NoError(t, s.Create(context.Background(), tc, &budget))
		}
	}

	got, err := s.List(context.Background(), t1, "")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, b := range got {
		assert.Equal(t, t1.TenantID, b.TenantID)
	}
}

func TestBudgetMonthFilter(t *testing.T) {
	db := setupDB(t)
	t1 := seedTenant(t, db, "t1", model.RoleEditor)

	s := NewBudgetStore(db)
	for _, month := range []string{"2026-07", "2026-08"} {
		budget := model.Budget{Category: "rent", Month: month, Limit: 90000}
		require.NoError(t, s.Create(context.Background(), t1, &budget))
	}

	got, err := s.List(context.Background(), t1, "2026-08")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-08", got[0].Month)
}
