package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/escrow"
	"github.com/lancerhub/marketplace-be/internal/gateway"
)

// respondError translates domain and gateway errors into HTTP responses.
// Anything unrecognized is a 500 with a generic message so internals never
// leak to callers.
func respondError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var statusErr *domain.InvalidStatusError
	var gatewayErr *gateway.Error
	var compErr *escrow.CompensationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})

	case errors.As(err, &statusErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": statusErr.Error()})

	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrContractNotFound),
		errors.Is(err, domain.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrSlotsExhausted),
		errors.Is(err, domain.ErrDuplicateProposal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, escrow.ErrNoTransaction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.As(err, &compErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "payment failed and cleanup did not complete",
			"payment_id": compErr.PaymentID,
		})

	case errors.As(err, &gatewayErr):
		switch gatewayErr.Kind {
		case gateway.KindRejected:
			c.JSON(http.StatusPaymentRequired, gin.H{"error": gatewayErr.Message})
		case gateway.KindUnavailable:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway is unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gateway error"})
		}

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
