package handler

import (
	"context"
	"log/slog"

	"github.com/lancerhub/marketplace-be/internal/api/storage"
	"github.com/lancerhub/marketplace-be/internal/escrow"
	"github.com/lancerhub/marketplace-be/internal/gateway"
)

// Publisher pushes an event onto the marketplace exchange. Satisfied by
// rabbitmq.Client.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Jobs         *storage.JobStore
	Contracts    *storage.ContractStore
	Payments     *storage.PaymentStore
	Orchestrator *escrow.Orchestrator
	Reconciler   *escrow.Reconciler
	Gateway      gateway.Client
	Publisher    Publisher
}

// JobHandler handles job posting HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	jobs      *storage.JobStore
	publisher Publisher
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		jobs:      deps.Jobs,
		publisher: deps.Publisher,
	}
}

// ContractHandler handles escrow contract HTTP requests
type ContractHandler struct {
	logger    *slog.Logger
	contracts *storage.ContractStore
}

// NewContractHandler creates a new ContractHandler instance
func NewContractHandler(deps *Dependencies) *ContractHandler {
	return &ContractHandler{
		logger:    deps.Logger,
		contracts: deps.Contracts,
	}
}

// PaymentHandler handles escrow payment HTTP requests, including the funding
// saga and gateway passthrough endpoints.
type PaymentHandler struct {
	logger       *slog.Logger
	payments     *storage.PaymentStore
	orchestrator *escrow.Orchestrator
	reconciler   *escrow.Reconciler
	gateway      gateway.Client
}

// NewPaymentHandler creates a new PaymentHandler instance
func NewPaymentHandler(deps *Dependencies) *PaymentHandler {
	return &PaymentHandler{
		logger:       deps.Logger,
		payments:     deps.Payments,
		orchestrator: deps.Orchestrator,
		reconciler:   deps.Reconciler,
		gateway:      deps.Gateway,
	}
}
