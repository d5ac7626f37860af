package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/handler"
	"fintrack/internal/model"
	"fintrack/internal/router"
	"fintrack/internal/tenantctx"
	"fintrack/pkg/database"
	"fintrack/pkg/jwtutil"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	jwtutil.Initialize(&jwtutil.Config{SigningKey: "handler-test-key", ExpirationHours: 1})
}

func setupServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	return router.New(zap.NewNop()), db
}

func doJSON(e *echo.Echo, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// registerAndLogin creates an account and returns a fresh token.
func registerAndLogin(t *testing.T, e *echo.Echo, email string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/auth/register", "", echo.Map{
		"email": email, "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return login(t, e, email)
}

func login(t *testing.T, e *echo.Echo, email string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/auth/login", "", echo.Map{
		"email": email, "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func createTenant(t *testing.T, e *echo.Echo, token, name string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/tenants", token, echo.Map{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Tenant struct {
			ID string `json:"id"`
		} `json:"tenant"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Tenant.ID)
	return resp.Tenant.ID
}

func refresh(t *testing.T, e *echo.Echo, token string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/api/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func TestCreateTenantGrantsOwnerClaim(t *testing.T) {
	e, _ := setupServer(t)

	token := registerAndLogin(t, e, "alice@example.com")
	tenantID := createTenant(t, e, token, "Household")

	// The first token predates the tenant, so it carries no claim for it.
	claims, err := jwtutil.ValidateToken(token)
	require.NoError(t, err)
	_, ok := claims.RoleFor(tenantID)
	assert.False(t, ok)

	// A refreshed token carries the creator's Owner claim.
	fresh := refresh(t, e, token)
	claims, err = jwtutil.ValidateToken(fresh)
	require.NoError(t, err)
	role, ok := claims.RoleFor(tenantID)
	require.True(t, ok)
	assert.Equal(t, "Owner", role)

	// And that token opens Owner-only routes.
	rec := doJSON(e, http.MethodPatch, "/api/tenants/"+tenantID, fresh, echo.Map{"name": "Family"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestNonMemberCannotProbeTenantExistence(t *testing.T) {
	e, _ := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Private Books")

	strangerToken := registerAndLogin(t, e, "stranger@example.com")

	existing := doJSON(e, http.MethodGet, "/api/tenants/"+tenantID, strangerToken, nil)
	missing := doJSON(e, http.MethodGet, "/api/tenants/no-such-tenant", strangerToken, nil)

	assert.Equal(t, http.StatusForbidden, existing.Code)
	assert.Equal(t, http.StatusForbidden, missing.Code)
	assert.Equal(t, existing.Body.String(), missing.Body.String())
	assert.NotContains(t, existing.Body.String(), tenantID)
}

func TestEditorCannotUseOwnerRoutes(t *testing.T) {
	e, _ := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Shared Books")
	ownerToken = refresh(t, e, ownerToken)

	registerAndLogin(t, e, "editor@example.com")
	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "editor@example.com", "role": "Editor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	editorToken := login(t, e, "editor@example.com")

	// Editor can write transactions.
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/transactions", editorToken, echo.Map{
		"amount": -4200, "currency": "EUR", "category": "groceries",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// But Owner-only routes reject with the standard forbidden body.
	rec = doJSON(e, http.MethodDelete, "/api/tenants/"+tenantID, editorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", editorToken, echo.Map{
		"user_email": "owner@example.com",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTenantDataIsolation(t *testing.T) {
	e, _ := setupServer(t)

	aliceToken := registerAndLogin(t, e, "alice@example.com")
	tenantA := createTenant(t, e, aliceToken, "Alice Books")
	aliceToken = refresh(t, e, aliceToken)

	bobToken := registerAndLogin(t, e, "bob@example.com")
	tenantB := createTenant(t, e, bobToken, "Bob Books")
	bobToken = refresh(t, e, bobToken)

	for i := 0; i < 5; i++ {
		rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantA+"/transactions", aliceToken, echo.Map{
			"amount": int64(-100 * (i + 1)), "currency": "USD", "category": "alice",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantB+"/transactions", bobToken, echo.Map{
			"amount": int64(100 * (i + 1)), "currency": "USD", "category": "bob",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := doJSON(e, http.MethodGet, "/api/tenants/"+tenantA+"/transactions", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var txns []model.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txns))
	require.Len(t, txns, 5)
	for _, txn := range txns {
		assert.Equal(t, "alice", txn.Category)
	}

	// Alice holds no role in Bob's tenant, so even listing is forbidden.
	rec = doJSON(e, http.MethodGet, "/api/tenants/"+tenantB+"/transactions", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAddMemberConflictLeavesExistingRole(t *testing.T) {
	e, db := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	registerAndLogin(t, e, "mate@example.com")
	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "mate@example.com", "role": "Editor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Re-inviting the same user conflicts, even with a different role.
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "mate@example.com", "role": "Owner",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var membership model.UserTenant
	require.NoError(t, db.Joins("User").
		Where("email = ?", "mate@example.com").
		First(&membership).Error)
	assert.Equal(t, model.RoleEditor, membership.Role)
}

func TestMemberRoleUpdateTakesEffectOnRefresh(t *testing.T) {
	e, db := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	viewerToken := registerAndLogin(t, e, "viewer@example.com")
	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "viewer@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	viewerToken = login(t, e, "viewer@example.com")

	// Viewer cannot write.
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/transactions", viewerToken, echo.Map{
		"amount": -100, "currency": "USD",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	var viewer model.User
	require.NoError(t, db.Where("email = ?", "viewer@example.com").First(&viewer).Error)

	rec = doJSON(e, http.MethodPatch,
		fmt.Sprintf("/api/tenants/%s/members/%d", tenantID, viewer.ID),
		ownerToken, echo.Map{"role": "Editor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The promotion is invisible to the old token and visible after refresh.
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/transactions", viewerToken, echo.Map{
		"amount": -100, "currency": "USD",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	promoted := refresh(t, e, viewerToken)
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/transactions", promoted, echo.Map{
		"amount": -100, "currency": "USD",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRemovedMemberCanBeReinvited(t *testing.T) {
	e, db := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	registerAndLogin(t, e, "mate@example.com")
	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "mate@example.com", "role": "Editor",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var mate model.User
	require.NoError(t, db.Where("email = ?", "mate@example.com").First(&mate).Error)

	rec = doJSON(e, http.MethodDelete,
		fmt.Sprintf("/api/tenants/%s/members/%d", tenantID, mate.ID),
		ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Revocation frees the (user, tenant) slot, so the invite repeats cleanly.
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "mate@example.com", "role": "Viewer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var membership model.UserTenant
	require.NoError(t, db.Where("user_id = ?", mate.ID).First(&membership).Error)
	assert.Equal(t, model.RoleViewer, membership.Role)

	var count int64
	require.NoError(t, db.Model(&model.UserTenant{}).Where("user_id = ?", mate.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEmailReusableAfterProfileDeletion(t *testing.T) {
	e, _ := setupServer(t)

	token := registerAndLogin(t, e, "phoenix@example.com")
	rec := doJSON(e, http.MethodDelete, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The deleted account releases its email for a fresh registration.
	token = registerAndLogin(t, e, "phoenix@example.com")

	rec = doJSON(e, http.MethodGet, "/api/users/profile", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetTenantStoreFailureIsNotForbidden(t *testing.T) {
	e, db := setupServer(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// With the store down, the handler must report an internal failure,
	// never an access denial.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	tenantctx.Set(c, tenantctx.Context{TenantID: 1, TenantPublicID: "tenant-x", Role: model.RoleViewer})

	require.NoError(t, handler.GetTenant(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "forbidden")
}

func TestUnknownMemberIsNotFound(t *testing.T) {
	e, _ := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	rec := doJSON(e, http.MethodPatch, "/api/tenants/"+tenantID+"/members/9999", ownerToken,
		echo.Map{"role": "Editor"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/tenants/"+tenantID+"/members/9999", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastOwnerCannotBeDemotedOrRemoved(t *testing.T) {
	e, db := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	var owner model.User
	require.NoError(t, db.Where("email = ?", "owner@example.com").First(&owner).Error)

	rec := doJSON(e, http.MethodPatch,
		fmt.Sprintf("/api/tenants/%s/members/%d", tenantID, owner.ID),
		ownerToken, echo.Map{"role": "Viewer"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodDelete,
		fmt.Sprintf("/api/tenants/%s/members/%d", tenantID, owner.ID),
		ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteTenantCascades(t *testing.T) {
	e, db := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Doomed")
	ownerToken = refresh(t, e, ownerToken)

	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/transactions", ownerToken, echo.Map{
		"amount": -500, "currency": "USD",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/budgets", ownerToken, echo.Map{
		"category": "groceries", "month": "2026-08", "limit": 50000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tenant model.Tenant
	require.NoError(t, db.Where("public_id = ?", tenantID).First(&tenant).Error)
	internalID := tenant.ID

	rec = doJSON(e, http.MethodDelete, "/api/tenants/"+tenantID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	err := db.Where("public_id = ?", tenantID).First(&model.Tenant{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var count int64
	require.NoError(t, db.Model(&model.Transaction{}).Where("tenant_id = ?", internalID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.Budget{}).Where("tenant_id = ?", internalID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&model.UserTenant{}).Where("tenant_id = ?", internalID).Count(&count).Error)
	assert.Zero(t, count)

	// A claim for the deleted tenant no longer opens anything.
	rec = doJSON(e, http.MethodGet, "/api/tenants/"+tenantID, ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteProfileRemovesOnlyOwnMemberships(t *testing.T) {
	e, db := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	mateToken := registerAndLogin(t, e, "mate@example.com")
	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/members", ownerToken, echo.Map{
		"user_email": "mate@example.com", "role": "Editor",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/users/profile", mateToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var count int64
	require.NoError(t, db.Model(&model.User{}).Where("email = ?", "mate@example.com").Count(&count).Error)
	assert.Zero(t, count)

	// The tenant and the owner's membership survive.
	rec = doJSON(e, http.MethodGet, "/api/tenants/"+tenantID+"/members", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var members []struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members, 1)
	assert.Equal(t, "owner@example.com", members[0].Email)
}

func TestBudgetMonthValidation(t *testing.T) {
	e, _ := setupServer(t)

	ownerToken := registerAndLogin(t, e, "owner@example.com")
	tenantID := createTenant(t, e, ownerToken, "Books")
	ownerToken = refresh(t, e, ownerToken)

	for _, month := range []string{"2026-13", "2026-0", "aug-2026", "2026-08-01"} {
		rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/budgets", ownerToken, echo.Map{
			"category": "rent", "month": month, "limit": 100000,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "month %q", month)
	}

	rec := doJSON(e, http.MethodPost, "/api/tenants/"+tenantID+"/budgets", ownerToken, echo.Map{
		"category": "rent", "month": "2026-08", "limit": 100000,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
