// Package escrow coordinates local payment records with the external payment
// gateway. Funding runs as a compensated two-step saga; reconciliation pulls
// the gateway's status back onto local state idempotently.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/api/domain"
)

var (
	// ErrNoTransaction is returned when a sync is requested for a payment
	// that never received a gateway transaction id.
	ErrNoTransaction = errors.New("payment has no gateway transaction id")
)

// PaymentStore is the slice of persistence the escrow layer needs. Satisfied
// by storage.PaymentStore in production and by fakes in tests.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *model.Payment) error
	GetPaymentByID(ctx context.Context, paymentID string) (*model.Payment, error)
	AttachTransaction(ctx context.Context, paymentID, transactionID string) error
	SetStatusIfChanged(ctx context.Context, paymentID string, status domain.PaymentStatus) (bool, error)
	DeletePayment(ctx context.Context, paymentID string) error
	ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]model.Payment, error)
}

// ContractReader looks contracts up so funding requests can be validated
// before anything is written.
type ContractReader interface {
	GetContractByID(ctx context.Context, contractID string) (*model.Contract, error)
}

// CompensationError reports that a gateway step failed and the compensating
// delete failed too, leaving a local payment row with no backing transaction.
// There is no safe automatic retry for this; it has to be surfaced loudly.
type CompensationError struct {
	PaymentID  string
	GatewayErr error
	DeleteErr  error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("payment %s: gateway call failed (%v) and compensating delete failed (%v)",
		e.PaymentID, e.GatewayErr, e.DeleteErr)
}

func (e *CompensationError) Unwrap() error {
	return e.GatewayErr
}
