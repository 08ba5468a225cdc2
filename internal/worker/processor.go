package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apidomain "github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/escrow"
	"github.com/lancerhub/marketplace-be/internal/gateway"
	"github.com/lancerhub/marketplace-be/internal/worker/domain"
)

// processMessage routes a task to its handler under the configured timeout.
func (w *Worker) processMessage(ctx context.Context, task *domain.TaskMessage) error {
	taskCtx := ctx
	if w.messageTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.messageTimeout)
		defer cancel()
	}

	switch task.EventType {
	case domain.EventProposalAccepted:
		return w.handleProposalAccepted(taskCtx, task.Body)
	case domain.EventPaymentSync:
		return w.handlePaymentSync(taskCtx, task.Body)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, task.EventType)
	}
}

// handleProposalAccepted consumes one slot on the job and opens the escrow
// contract. The slot claim is a single conditional UPDATE, so concurrent
// acceptances on the last slot resolve to exactly one winner.
func (w *Worker) handleProposalAccepted(ctx context.Context, body []byte) error {
	var event domain.ProposalAcceptedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if _, err := uuid.Parse(event.JobID); err != nil {
		return fmt.Errorf("%w: invalid job_id %q", domain.ErrInvalidPayload, event.JobID)
	}
	if _, err := uuid.Parse(event.ProposalID); err != nil {
		return fmt.Errorf("%w: invalid proposal_id %q", domain.ErrInvalidPayload, event.ProposalID)
	}
	if _, err := uuid.Parse(event.UserID); err != nil {
		return fmt.Errorf("%w: invalid user_id %q", domain.ErrInvalidPayload, event.UserID)
	}
	if event.EscrowAmount <= 0 {
		return fmt.Errorf("%w: escrow_amount must be positive", domain.ErrInvalidPayload)
	}

	job, err := w.jobs.AcceptSlot(ctx, event.JobID)
	if err != nil {
		if errors.Is(err, apidomain.ErrSlotsExhausted) || errors.Is(err, apidomain.ErrJobNotFound) {
			return err
		}
		return domain.NewRetryableError(fmt.Errorf("failed to accept slot for job %s: %w", event.JobID, err))
	}

	w.logger.Info("Slot accepted",
		slog.String("job_id", job.JobID),
		slog.Int("accepted_slots", job.AcceptedSlots),
		slog.Int("number_of_slots", job.NumberOfSlots),
		slog.String("job_status", string(job.Status)),
	)

	contract := &model.Contract{
		ContractID:   uuid.New().String(),
		ProposalID:   event.ProposalID,
		UserID:       event.UserID,
		EscrowAmount: event.EscrowAmount,
		Status:       apidomain.ContractStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := w.contracts.CreateContract(ctx, contract); err != nil {
		if errors.Is(err, apidomain.ErrDuplicateProposal) {
			// The slot was already claimed by an earlier delivery of this
			// proposal; the redelivery is a no-op.
			w.logger.Warn("Contract already exists for proposal",
				slog.String("proposal_id", event.ProposalID),
			)
			return err
		}
		return domain.NewRetryableError(fmt.Errorf("failed to create contract for proposal %s: %w", event.ProposalID, err))
	}

	w.logger.Info("Contract created",
		slog.String("contract_id", contract.ContractID),
		slog.String("proposal_id", contract.ProposalID),
		slog.Int64("escrow_amount", contract.EscrowAmount),
	)

	return nil
}

// handlePaymentSync reconciles a payment with the gateway. A payment that
// never got a transaction id goes through orphan recovery instead.
func (w *Worker) handlePaymentSync(ctx context.Context, body []byte) error {
	var event domain.PaymentSyncEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if _, err := uuid.Parse(event.PaymentID); err != nil {
		return fmt.Errorf("%w: invalid payment_id %q", domain.ErrInvalidPayload, event.PaymentID)
	}

	payment, err := w.payments.Sync(ctx, event.PaymentID)
	if err != nil {
		if errors.Is(err, escrow.ErrNoTransaction) {
			w.logger.Warn("Payment has no transaction id, attempting orphan recovery",
				slog.String("payment_id", event.PaymentID),
			)
			if recErr := w.payments.RecoverOrphan(ctx, event.PaymentID); recErr != nil {
				return domain.NewRetryableError(fmt.Errorf("orphan recovery for payment %s: %w", event.PaymentID, recErr))
			}
			return nil
		}
		if errors.Is(err, apidomain.ErrPaymentNotFound) {
			return err
		}
		// A gateway rejection is the gateway's final answer for this
		// transaction; retrying cannot change it.
		if gateway.IsRejected(err) {
			return err
		}
		return domain.NewRetryableError(fmt.Errorf("failed to sync payment %s: %w", event.PaymentID, err))
	}

	w.logger.Info("Payment synced",
		slog.String("payment_id", payment.PaymentID),
		slog.String("status", string(payment.Status)),
	)

	return nil
}
