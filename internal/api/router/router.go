package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lancerhub/marketplace-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "marketplace-api-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	contractHandler := handler.NewContractHandler(deps)
	paymentHandler := handler.NewPaymentHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Create a new job posting
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)

			// PATCH /api/v1/jobs/:job_id/status - Move a job between lifecycle states
			jobs.PATCH("/:job_id/status", jobHandler.UpdateJobStatus)

			// POST /api/v1/jobs/:job_id/slots - Claim one open slot synchronously
			jobs.POST("/:job_id/slots", jobHandler.ClaimSlot)

			// POST /api/v1/jobs/:job_id/proposals/accept - Accept a proposal
			jobs.POST("/:job_id/proposals/accept", jobHandler.AcceptProposal)

			// DELETE /api/v1/jobs/:job_id - Delete a job
			jobs.DELETE("/:job_id", jobHandler.DeleteJob)
		}

		contracts := v1.Group("/contracts")
		{
			// POST /api/v1/contracts - Open an escrow contract manually
			contracts.POST("", contractHandler.CreateContract)

			// GET /api/v1/contracts - List escrow contracts
			contracts.GET("", contractHandler.ListContracts)

			// GET /api/v1/contracts/:contract_id - Get contract details
			contracts.GET("/:contract_id", contractHandler.GetContract)

			// PUT /api/v1/contracts/:contract_id - Rewrite mutable contract fields
			contracts.PUT("/:contract_id", contractHandler.UpdateContract)

			// PATCH /api/v1/contracts/:contract_id/status - Move contract lifecycle
			contracts.PATCH("/:contract_id/status", contractHandler.UpdateContractStatus)

			// DELETE /api/v1/contracts/:contract_id - Delete a contract
			contracts.DELETE("/:contract_id", contractHandler.DeleteContract)
		}

		payments := v1.Group("/payments")
		{
			// POST /api/v1/payments/fund/link - Fund escrow via checkout link
			payments.POST("/fund/link", paymentHandler.FundWithLink)

			// POST /api/v1/payments/fund/direct - Fund escrow via direct charge
			payments.POST("/fund/direct", paymentHandler.FundDirect)

			// POST /api/v1/payments - Record an out-of-band payment
			payments.POST("", paymentHandler.CreatePayment)

			// GET /api/v1/payments - List payments
			payments.GET("", paymentHandler.ListPayments)

			// GET /api/v1/payments/:payment_id - Get payment details
			payments.GET("/:payment_id", paymentHandler.GetPayment)

			// PATCH /api/v1/payments/:payment_id/status - Correct local status
			payments.PATCH("/:payment_id/status", paymentHandler.UpdatePaymentStatus)

			// DELETE /api/v1/payments/:payment_id - Delete a payment record
			payments.DELETE("/:payment_id", paymentHandler.DeletePayment)

			// POST /api/v1/payments/:payment_id/sync - Reconcile with gateway
			payments.POST("/:payment_id/sync", paymentHandler.SyncPayment)

			// POST /api/v1/payments/:payment_id/expire - Invalidate the transaction
			payments.POST("/:payment_id/expire", paymentHandler.ExpirePayment)
		}

		gw := v1.Group("/gateway")
		{
			// GET /api/v1/gateway/status/:trans_id - Gateway view of one transaction
			gw.GET("/status/:trans_id", paymentHandler.GetTransactionStatus)

			// GET /api/v1/gateway/transactions/:user_id - Gateway history for a user
			gw.GET("/transactions/:user_id", paymentHandler.ListUserTransactions)

			// GET /api/v1/gateway/search - Search gateway transactions
			gw.GET("/search", paymentHandler.SearchTransactions)

			// GET /api/v1/gateway/balance - Gateway service balance
			gw.GET("/balance", paymentHandler.Balance)
		}
	}

	return r
}
