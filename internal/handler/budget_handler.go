package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"fintrack/internal/apperr"
	"fintrack/internal/model"
	"fintrack/internal/store"
	"fintrack/internal/tenantctx"
	"fintrack/pkg/database"
	"fintrack/pkg/logger"
	"fintrack/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ListBudgets returns the resolved tenant's budgets, optionally filtered
// by a ?month=YYYY-MM query parameter.
func ListBudgets(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	month := c.QueryParam("month")
	if month != "" && !monthPattern.MatchString(month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	budgets, err := store.NewBudgetStore(database.GetDB()).List(c.Request().Context(), tc, month)
	if err != nil {
		log.Error("Failed to list budgets", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve budgets"})
	}

	return c.JSON(http.StatusOK, budgets)
}

// GetBudget returns one budget within the resolved tenant
func GetBudget(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid budget ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	budget, err := store.NewBudgetStore(database.GetDB()).Get(c.Request().Context(), tc, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "budget not found"})
		}
		log.Error("Failed to retrieve budget", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve budget"})
	}

	return c.JSON(http.StatusOK, budget)
}

// CreateBudget adds a budget to the resolved tenant
func CreateBudget(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	var req struct {
		Category string `json:"category"`
		Month    string `json:"month"`
		Limit    int64  `json:"limit"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse budget request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Category == "" || req.Limit <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category and a positive limit are required"})
	}
	if !monthPattern.MatchString(req.Month) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
	}

	budget := model.Budget{
		Category: req.Category,
		Month:    req.Month,
		Limit:    req.Limit,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := store.NewBudgetStore(database.GetDB()).Create(c.Request().Context(), tc, &budget); err != nil {
		log.Error("Failed to create budget", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "budget creation failed"})
	}

	log.Info("Budget created",
		zap.Uint("id", budget.ID),
		zap.String("category", budget.Category),
		zap.String("month", budget.Month))

	return c.JSON(http.StatusCreated, budget)
}

// UpdateBudget edits one budget within the resolved tenant
func UpdateBudget(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid budget ID"})
	}

	var req struct {
		Category *string `json:"category,omitempty"`
		Month    *string `json:"month,omitempty"`
		Limit    *int64  `json:"limit,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse budget update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Month != nil {
		if !monthPattern.MatchString(*req.Month) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "month must be YYYY-MM"})
		}
		updates["month"] = *req.Month
	}
	if req.Limit != nil {
		if *req.Limit <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be positive"})
		}
		updates["limit"] = *req.Limit
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := store.NewBudgetStore(database.GetDB()).Update(c.Request().Context(), tc, uint(id), updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "budget not found"})
		}
		log.Error("Failed to update budget", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "budget update failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Budget updated successfully"})
}

// DeleteBudget removes one budget within the resolved tenant
func DeleteBudget(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid budget ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := store.NewBudgetStore(database.GetDB()).Delete(c.Request().Context(), tc, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "budget not found"})
		}
		log.Error("Failed to delete budget", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "budget deletion failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Budget deleted successfully"})
}
