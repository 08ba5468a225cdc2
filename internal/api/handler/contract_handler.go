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
)

// CreateContract handles POST /api/v1/contracts
// Opens an escrow contract for an accepted proposal. Most contracts are
// created by the worker off a proposal.accepted event; this path exists for
// manual backfill.
func (h *ContractHandler) CreateContract(c *gin.Context) {
	h.logger.Info("CreateContract called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := uuid.Parse(req.ProposalID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "proposal_id must be a valid UUID",
		})
		return
	}

	if _, err := uuid.Parse(req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id must be a valid UUID",
		})
		return
	}

	if req.EscrowAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "escrow_amount must be positive",
		})
		return
	}

	contract := model.Contract{
		ContractID:   uuid.New().String(),
		ProposalID:   req.ProposalID,
		UserID:       req.UserID,
		EscrowAmount: req.EscrowAmount,
		Status:       domain.ContractStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.contracts.CreateContract(c.Request.Context(), &contract); err != nil {
		h.logger.Error("Failed to create contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toContractDTO(&contract))
}

// GetContract handles GET /api/v1/contracts/:contract_id
func (h *ContractHandler) GetContract(c *gin.Context) {
	contractID := c.Param("contract_id")

	h.logger.Info("GetContract called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("contract_id", contractID),
	)

	if _, err := uuid.Parse(contractID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contract_id must be a valid UUID",
		})
		return
	}

	contract, err := h.contracts.GetContractByID(c.Request.Context(), contractID)
	if err != nil {
		h.logger.Error("Failed to get contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContractDTO(contract))
}

// ListContracts handles GET /api/v1/contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	h.logger.Info("ListContracts called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	var req dto.ListContractsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !domain.ContractStatus(req.Status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of active, completed, disputed",
		})
		return
	}

	contracts, err := h.contracts.ListContracts(c.Request.Context(), storage.ContractFilter{
		UserID: req.UserID,
		Status: req.Status,
	})
	if err != nil {
		h.logger.Error("Failed to list contracts", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	contractResponse := make([]dto.ContractDTO, len(contracts))
	for i := range contracts {
		contractResponse[i] = toContractDTO(&contracts[i])
	}

	c.JSON(http.StatusOK, dto.ListContractsResponse{
		Contracts: contractResponse,
	})
}

// UpdateContract handles PUT /api/v1/contracts/:contract_id
// Rewrites the contract's mutable fields: the held amount, and optionally
// the lifecycle status
func (h *ContractHandler) UpdateContract(c *gin.Context) {
	contractID := c.Param("contract_id")

	h.logger.Info("UpdateContract called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("contract_id", contractID),
	)

	if _, err := uuid.Parse(contractID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contract_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if req.EscrowAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "escrow_amount must be positive",
		})
		return
	}

	contract, err := h.contracts.GetContractByID(c.Request.Context(), contractID)
	if err != nil {
		h.logger.Error("Failed to get contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	contract.EscrowAmount = req.EscrowAmount
	if req.Status != "" {
		status := domain.ContractStatus(req.Status)
		if !status.Valid() {
			respondError(c, &domain.InvalidStatusError{Entity: "contract", Value: req.Status})
			return
		}
		contract.Status = status
	}

	if err := h.contracts.UpdateContract(c.Request.Context(), contract); err != nil {
		h.logger.Error("Failed to update contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	reloaded, err := h.contracts.GetContractByID(c.Request.Context(), contractID)
	if err != nil {
		h.logger.Error("Failed to reload contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContractDTO(reloaded))
}

// UpdateContractStatus handles PATCH /api/v1/contracts/:contract_id/status
// Moves a contract between active, completed, and disputed
func (h *ContractHandler) UpdateContractStatus(c *gin.Context) {
	contractID := c.Param("contract_id")

	h.logger.Info("UpdateContractStatus called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("contract_id", contractID),
	)

	if _, err := uuid.Parse(contractID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contract_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdateContractStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	status := domain.ContractStatus(req.Status)
	if !status.Valid() {
		respondError(c, &domain.InvalidStatusError{Entity: "contract", Value: req.Status})
		return
	}

	if err := h.contracts.UpdateContractStatus(c.Request.Context(), contractID, status); err != nil {
		h.logger.Error("Failed to update contract status", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	contract, err := h.contracts.GetContractByID(c.Request.Context(), contractID)
	if err != nil {
		h.logger.Error("Failed to reload contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toContractDTO(contract))
}

// DeleteContract handles DELETE /api/v1/contracts/:contract_id
func (h *ContractHandler) DeleteContract(c *gin.Context) {
	contractID := c.Param("contract_id")

	h.logger.Info("DeleteContract called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("contract_id", contractID),
	)

	if _, err := uuid.Parse(contractID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "contract_id must be a valid UUID",
		})
		return
	}

	if err := h.contracts.DeleteContract(c.Request.Context(), contractID); err != nil {
		h.logger.Error("Failed to delete contract", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toContractDTO(contract *model.Contract) dto.ContractDTO {
	return dto.ContractDTO{
		ContractID:   contract.ContractID,
		ProposalID:   contract.ProposalID,
		UserID:       contract.UserID,
		EscrowAmount: contract.EscrowAmount,
		Status:       string(contract.Status),
		CreatedAt:    contract.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    contract.UpdatedAt.Format(time.RFC3339),
	}
}
