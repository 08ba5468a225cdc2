package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/dto"
	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/api/storage"
	"github.com/lancerhub/marketplace-be/internal/escrow"
	"github.com/lancerhub/marketplace-be/internal/gateway"
)

const idempotencyKeyHeader = "X-Idempotency-Key"

// FundWithLink handles POST /api/v1/payments/fund/link
// Runs the funding saga and returns a hosted checkout link
func (h *PaymentHandler) FundWithLink(c *gin.Context) {
	h.logger.Info("FundWithLink called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.FundLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	result, err := h.orchestrator.FundWithLink(c.Request.Context(), escrow.FundRequest{
		ContractID:     req.ContractID,
		Amount:         req.Amount,
		Method:         domain.PaymentMethod(req.PaymentMethod),
		PayerEmail:     req.PayerEmail,
		RedirectURL:    req.RedirectURL,
		Message:        req.Message,
		IdempotencyKey: c.GetHeader(idempotencyKeyHeader),
	})
	if err != nil {
		h.logger.Error("Funding attempt failed", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toFundResponse(result))
}

// FundDirect handles POST /api/v1/payments/fund/direct
// Runs the funding saga with a direct mobile money charge
func (h *PaymentHandler) FundDirect(c *gin.Context) {
	h.logger.Info("FundDirect called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.FundDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	result, err := h.orchestrator.FundDirect(c.Request.Context(), escrow.DirectFundRequest{
		ContractID:     req.ContractID,
		Amount:         req.Amount,
		Method:         domain.PaymentMethod(req.PaymentMethod),
		Phone:          req.Phone,
		Medium:         req.Medium,
		PayerName:      req.PayerName,
		PayerEmail:     req.PayerEmail,
		Message:        req.Message,
		IdempotencyKey: c.GetHeader(idempotencyKeyHeader),
	})
	if err != nil {
		h.logger.Error("Direct funding attempt failed", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toFundResponse(result))
}

// CreatePayment handles POST /api/v1/payments
// Records a payment without driving the gateway. The funding endpoints are
// the normal path; this one backfills out-of-band collections.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	h.logger.Info("CreatePayment called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := uuid.Parse(req.ContractID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contract_id must be a valid UUID",
		})
		return
	}

	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "amount must be positive",
		})
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_method must be one of mobile_money, orange_money, card",
		})
		return
	}

	payment := model.Payment{
		PaymentID:     uuid.New().String(),
		ContractID:    req.ContractID,
		Amount:        req.Amount,
		PaymentMethod: method,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := h.payments.CreatePayment(c.Request.Context(), &payment); err != nil {
		h.logger.Error("Failed to create payment", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPaymentDTO(&payment))
}

// GetPayment handles GET /api/v1/payments/:payment_id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	h.logger.Info("GetPayment called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("payment_id", paymentID),
	)

	if _, err := uuid.Parse(paymentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_id must be a valid UUID",
		})
		return
	}

	payment, err := h.payments.GetPaymentByID(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error("Failed to get payment", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentDTO(payment))
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	h.logger.Info("ListPayments called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	var req dto.ListPaymentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !domain.PaymentStatus(req.Status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of pending, completed, failed",
		})
		return
	}

	payments, err := h.payments.ListPayments(c.Request.Context(), storage.PaymentFilter{
		ContractID: req.ContractID,
		Status:     req.Status,
	})
	if err != nil {
		h.logger.Error("Failed to list payments", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	paymentResponse := make([]dto.PaymentDTO, len(payments))
	for i := range payments {
		paymentResponse[i] = toPaymentDTO(&payments[i])
	}

	c.JSON(http.StatusOK, dto.ListPaymentsResponse{
		Payments: paymentResponse,
	})
}

// UpdatePaymentStatus handles PATCH /api/v1/payments/:payment_id/status
// Overwrites the local status directly. Reconciliation is the normal way a
// payment's status changes; this path handles manual corrections.
func (h *PaymentHandler) UpdatePaymentStatus(c *gin.Context) {
	paymentID := c.Param("payment_id")

	h.logger.Info("UpdatePaymentStatus called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("payment_id", paymentID),
	)

	if _, err := uuid.Parse(paymentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	status := domain.PaymentStatus(req.Status)
	if !status.Valid() {
		respondError(c, &domain.InvalidStatusError{Entity: "payment", Value: req.Status})
		return
	}

	if err := h.payments.UpdatePaymentStatus(c.Request.Context(), paymentID, status); err != nil {
		h.logger.Error("Failed to update payment status", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	payment, err := h.payments.GetPaymentByID(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error("Failed to reload payment", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentDTO(payment))
}

// DeletePayment handles DELETE /api/v1/payments/:payment_id
func (h *PaymentHandler) DeletePayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	h.logger.Info("DeletePayment called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("payment_id", paymentID),
	)

	if _, err := uuid.Parse(paymentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_id must be a valid UUID",
		})
		return
	}

	if err := h.payments.DeletePayment(c.Request.Context(), paymentID); err != nil {
		h.logger.Error("Failed to delete payment", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SyncPayment handles POST /api/v1/payments/:payment_id/sync
// Pulls the gateway's view of the transaction and reconciles local status.
// Safe to call any number of times.
func (h *PaymentHandler) SyncPayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	h.logger.Info("SyncPayment called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("payment_id", paymentID),
	)

	if _, err := uuid.Parse(paymentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_id must be a valid UUID",
		})
		return
	}

	payment, err := h.reconciler.Sync(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error("Failed to sync payment", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentDTO(payment))
}

// ExpirePayment handles POST /api/v1/payments/:payment_id/expire
// Asks the gateway to invalidate the transaction, then reconciles
func (h *PaymentHandler) ExpirePayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	h.logger.Info("ExpirePayment called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("payment_id", paymentID),
	)

	if _, err := uuid.Parse(paymentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "payment_id must be a valid UUID",
		})
		return
	}

	payment, err := h.payments.GetPaymentByID(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error("Failed to get payment", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	if !payment.TransactionID.Valid {
		respondError(c, escrow.ErrNoTransaction)
		return
	}

	if _, err := h.gateway.Expire(c.Request.Context(), payment.TransactionID.String); err != nil {
		h.logger.Error("Failed to expire transaction", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	synced, err := h.reconciler.Sync(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error("Failed to sync payment after expire", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPaymentDTO(synced))
}

// GetTransactionStatus handles GET /api/v1/gateway/status/:trans_id
// Passthrough to the gateway's view of a single transaction
func (h *PaymentHandler) GetTransactionStatus(c *gin.Context) {
	transID := c.Param("trans_id")

	h.logger.Info("GetTransactionStatus called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("trans_id", transID),
	)

	if transID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "trans_id is required",
		})
		return
	}

	transaction, err := h.gateway.GetStatus(c.Request.Context(), transID)
	if err != nil {
		h.logger.Error("Failed to get transaction status", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// ListUserTransactions handles GET /api/v1/gateway/transactions/:user_id
// Passthrough to the gateway's per-user transaction history
func (h *PaymentHandler) ListUserTransactions(c *gin.Context) {
	userID := c.Param("user_id")

	h.logger.Info("ListUserTransactions called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("user_id", userID),
	)

	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id is required",
		})
		return
	}

	transactions, err := h.gateway.ListUserTransactions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list user transactions", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
	})
}

// SearchTransactions handles GET /api/v1/gateway/search
// Passthrough to the gateway's transaction search
func (h *PaymentHandler) SearchTransactions(c *gin.Context) {
	h.logger.Info("SearchTransactions called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	q := gateway.SearchQuery{
		Status:     gateway.TransactionStatus(c.Query("status")),
		Medium:     c.Query("medium"),
		Name:       c.Query("name"),
		Start:      c.Query("start"),
		End:        c.Query("end"),
		ExternalID: c.Query("external_id"),
	}

	transactions, err := h.gateway.Search(c.Request.Context(), q)
	if err != nil {
		h.logger.Error("Failed to search transactions", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
	})
}

// Balance handles GET /api/v1/gateway/balance
// Passthrough to the gateway's service balance
func (h *PaymentHandler) Balance(c *gin.Context) {
	h.logger.Info("Balance called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	balance, err := h.gateway.Balance(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get balance", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance": balance,
	})
}

func toFundResponse(result *escrow.FundResult) dto.FundResponse {
	return dto.FundResponse{
		Payment: toPaymentDTO(result.Payment),
		Link:    result.Link,
		TransID: result.TransID,
		Replay:  result.Replay,
	}
}

func toPaymentDTO(payment *model.Payment) dto.PaymentDTO {
	d := dto.PaymentDTO{
		PaymentID:     payment.PaymentID,
		ContractID:    payment.ContractID,
		Amount:        payment.Amount,
		PaymentMethod: string(payment.PaymentMethod),
		Status:        string(payment.Status),
		CreatedAt:     payment.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     payment.UpdatedAt.Format(time.RFC3339),
	}
	if payment.TransactionID.Valid {
		d.TransactionID = payment.TransactionID.String
	}
	return d
}
