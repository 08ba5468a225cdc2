package escrow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/gateway"
)

// Orchestrator drives one funding attempt through its states:
//
//	Init -> LocalCreated -> GatewayRequested -> {Linked | Compensated}
//
// The local insert and the gateway call are not one transaction. A crash
// between the gateway confirming and the local transaction id committing
// leaves a pending payment with a NULL transaction_id; the reconciler
// recovers those through the externalId cross-reference (see reconciler.go).
type Orchestrator struct {
	payments  PaymentStore
	contracts ContractReader
	gateway   gateway.Client
	keys      *IdempotencyStore // optional; nil disables idempotency keys
	logger    *slog.Logger
}

// NewOrchestrator creates a payment orchestrator. keys may be nil.
func NewOrchestrator(payments PaymentStore, contracts ContractReader, gw gateway.Client, keys *IdempotencyStore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		payments:  payments,
		contracts: contracts,
		gateway:   gw,
		keys:      keys,
		logger:    logger,
	}
}

// FundRequest asks for a hosted checkout link funding a contract.
type FundRequest struct {
	ContractID     string
	Amount         int64
	Method         domain.PaymentMethod
	PayerEmail     string
	RedirectURL    string
	Message        string
	IdempotencyKey string
}

// DirectFundRequest charges the payer's mobile device directly.
type DirectFundRequest struct {
	ContractID     string
	Amount         int64
	Method         domain.PaymentMethod
	Phone          string
	Medium         string
	PayerName      string
	PayerEmail     string
	Message        string
	IdempotencyKey string
}

// FundResult is the outcome of a successful funding attempt. Link is empty
// for direct payments.
type FundResult struct {
	Payment *model.Payment
	Link    string
	TransID string
	Replay  bool // true when an idempotency key short-circuited the attempt
}

// FundWithLink creates a pending payment, asks the gateway for a checkout
// link, and attaches the returned transaction id. If the gateway step fails
// the payment is deleted and the gateway error is returned unchanged: the
// caller must observe no trace of the attempt.
func (o *Orchestrator) FundWithLink(ctx context.Context, req FundRequest) (*FundResult, error) {
	if err := o.validateFunding(req.ContractID, req.Amount, req.Method); err != nil {
		return nil, err
	}

	if result, ok := o.replayIfSeen(ctx, req.IdempotencyKey); ok {
		return result, nil
	}

	contract, err := o.contracts.GetContractByID(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}

	payment, err := o.createPending(ctx, req.ContractID, req.Amount, req.Method)
	if err != nil {
		return nil, err
	}

	linkResp, err := o.gateway.GenerateLink(ctx, gateway.LinkRequest{
		Amount:      req.Amount,
		Email:       req.PayerEmail,
		RedirectURL: req.RedirectURL,
		UserID:      contract.UserID,
		ExternalID:  payment.PaymentID,
		Message:     req.Message,
	})
	if err != nil {
		return nil, o.compensate(ctx, payment.PaymentID, err)
	}

	if err := o.link(ctx, payment, linkResp.TransID, req.IdempotencyKey); err != nil {
		return nil, err
	}

	return &FundResult{Payment: payment, Link: linkResp.Link, TransID: linkResp.TransID}, nil
}

// FundDirect creates a pending payment and pushes a direct charge to the
// payer's phone. Same compensation contract as FundWithLink.
func (o *Orchestrator) FundDirect(ctx context.Context, req DirectFundRequest) (*FundResult, error) {
	if err := o.validateFunding(req.ContractID, req.Amount, req.Method); err != nil {
		return nil, err
	}
	if req.Phone == "" {
		return nil, domain.NewValidationError("phone", "phone number is required")
	}

	if result, ok := o.replayIfSeen(ctx, req.IdempotencyKey); ok {
		return result, nil
	}

	contract, err := o.contracts.GetContractByID(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}

	payment, err := o.createPending(ctx, req.ContractID, req.Amount, req.Method)
	if err != nil {
		return nil, err
	}

	directResp, err := o.gateway.InitiateDirect(ctx, gateway.DirectRequest{
		Amount:     req.Amount,
		Phone:      req.Phone,
		Medium:     req.Medium,
		Name:       req.PayerName,
		Email:      req.PayerEmail,
		UserID:     contract.UserID,
		ExternalID: payment.PaymentID,
		Message:    req.Message,
	})
	if err != nil {
		return nil, o.compensate(ctx, payment.PaymentID, err)
	}

	if err := o.link(ctx, payment, directResp.TransID, req.IdempotencyKey); err != nil {
		return nil, err
	}

	return &FundResult{Payment: payment, TransID: directResp.TransID}, nil
}

func (o *Orchestrator) validateFunding(contractID string, amount int64, method domain.PaymentMethod) error {
	if _, err := uuid.Parse(contractID); err != nil {
		return domain.NewValidationError("contract_id", "must be a valid UUID")
	}
	if amount <= 0 {
		return domain.NewValidationError("amount", "must be greater than zero")
	}
	if !method.Valid() {
		return domain.NewValidationError("payment_method", "unknown payment method")
	}
	return nil
}

// replayIfSeen returns the original payment for a repeated idempotency key.
// The gateway is not touched on a replay.
func (o *Orchestrator) replayIfSeen(ctx context.Context, key string) (*FundResult, bool) {
	if o.keys == nil || key == "" {
		return nil, false
	}

	paymentID, err := o.keys.Lookup(ctx, key)
	if err != nil {
		o.logger.Warn("Idempotency lookup failed, proceeding without replay",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return nil, false
	}
	if paymentID == "" {
		return nil, false
	}

	payment, err := o.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		o.logger.Warn("Idempotency key points at missing payment",
			slog.String("key", key),
			slog.String("payment_id", paymentID),
			slog.Any("error", err),
		)
		return nil, false
	}

	o.logger.Info("Funding attempt replayed from idempotency key",
		slog.String("key", key),
		slog.String("payment_id", paymentID),
	)

	return &FundResult{Payment: payment, TransID: payment.TransactionID.String, Replay: true}, true
}

func (o *Orchestrator) createPending(ctx context.Context, contractID string, amount int64, method domain.PaymentMethod) (*model.Payment, error) {
	now := time.Now().UTC()
	payment := &model.Payment{
		PaymentID:     uuid.New().String(),
		ContractID:    contractID,
		Amount:        amount,
		PaymentMethod: method,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.payments.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	o.logger.Info("Payment created",
		slog.String("payment_id", payment.PaymentID),
		slog.String("contract_id", contractID),
		slog.Int64("amount", amount),
	)

	return payment, nil
}

// link attaches the gateway transaction id. A failure here is compensated the
// same way as a gateway failure: the gateway may hold a transaction we no
// longer reference, which the orphan recovery path can find by externalId.
func (o *Orchestrator) link(ctx context.Context, payment *model.Payment, transID, idempotencyKey string) error {
	if err := o.payments.AttachTransaction(ctx, payment.PaymentID, transID); err != nil {
		return o.compensate(ctx, payment.PaymentID, err)
	}

	payment.TransactionID.String = transID
	payment.TransactionID.Valid = true

	if o.keys != nil && idempotencyKey != "" {
		if err := o.keys.Record(ctx, idempotencyKey, payment.PaymentID); err != nil {
			// The payment is fully linked; losing the key only costs replay
			// protection for this one request.
			o.logger.Warn("Failed to record idempotency key",
				slog.String("key", idempotencyKey),
				slog.String("payment_id", payment.PaymentID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

// compensate deletes the payment created for a failed attempt and returns
// cause unchanged. A failed delete is fatal: it is logged and wrapped in a
// CompensationError, never retried silently.
func (o *Orchestrator) compensate(ctx context.Context, paymentID string, cause error) error {
	if err := o.payments.DeletePayment(ctx, paymentID); err != nil {
		o.logger.Error("COMPENSATION FAILED: payment row left without a gateway transaction",
			slog.String("payment_id", paymentID),
			slog.Any("gateway_error", cause),
			slog.Any("delete_error", err),
		)
		return &CompensationError{PaymentID: paymentID, GatewayErr: cause, DeleteErr: err}
	}

	o.logger.Warn("Funding attempt compensated",
		slog.String("payment_id", paymentID),
		slog.Any("error", cause),
	)

	return cause
}
