package handler

import (
	"errors"
	"net/http"
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

// ListTransactions returns the resolved tenant's transactions
func ListTransactions(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	txns, err := store.NewTransactionStore(database.GetDB()).List(c.Request().Context(), tc)
	if err != nil {
		log.Error("Failed to list transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, txns)
}

// GetTransaction returns one transaction within the resolved tenant
func GetTransaction(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	txn, err := store.NewTransactionStore(database.GetDB()).Get(c.Request().Context(), tc, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		log.Error("Failed to retrieve transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve transaction"})
	}

	return c.JSON(http.StatusOK, txn)
}

// CreateTransaction records a transaction in the resolved tenant
func CreateTransaction(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	var req struct {
		Amount     int64     `json:"amount"`
		Currency   string    `json:"currency"`
		Category   string    `json:"category"`
		Note       string    `json:"note"`
		OccurredAt time.Time `json:"occurred_at"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Amount == 0 || req.Currency == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount and currency are required"})
	}

	if req.OccurredAt.IsZero() {
		req.OccurredAt = time.Now()
	}

	txn := model.Transaction{
		Amount:     req.Amount,
		Currency:   req.Currency,
		Category:   req.Category,
		Note:       req.Note,
		OccurredAt: req.OccurredAt,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := store.NewTransactionStore(database.GetDB()).Create(c.Request().Context(), tc, &txn); err != nil {
		log.Error("Failed to create transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction creation failed"})
	}

	log.Info("Transaction created",
		zap.Uint("id", txn.ID),
		zap.Int64("amount", txn.Amount),
		zap.String("currency", txn.Currency))

	return c.JSON(http.StatusCreated, txn)
}

// UpdateTransaction edits one transaction within the resolved tenant
func UpdateTransaction(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction ID"})
	}

	var req struct {
		Amount   *int64  `json:"amount,omitempty"`
		Currency *string `json:"currency,omitempty"`
		Category *string `json:"category,omitempty"`
		Note     *string `json:"note,omitempty"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse transaction update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updates := map[string]interface{}{}
	if req.Amount != nil {
		updates["amount"] = *req.Amount
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	if err := store.NewTransactionStore(database.GetDB()).Update(c.Request().Context(), tc, uint(id), updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		log.Error("Failed to update transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction update failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Transaction updated successfully"})
}

// DeleteTransaction removes one transaction within the resolved tenant
func DeleteTransaction(c echo.Context) error {
	log := logger.FromContext(c)

	tc, ok := tenantctx.FromContext(c)
	if !ok {
		return apperr.TenantContextNotSet(c.Path())
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	if err := store.NewTransactionStore(database.GetDB()).Delete(c.Request().Context(), tc, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
		}
		log.Error("Failed to delete transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction deletion failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Transaction deleted successfully"})
}
