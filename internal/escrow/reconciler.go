package escrow

import (
	"context"
	"log/slog"
	"time"

	"github.com/lancerhub/marketplace-be/internal/gateway"
	"github.com/lancerhub/marketplace-be/internal/api/model"
)

// Reconciler pulls the gateway's current status for a payment and applies it
// to local state. Local state mirrors the gateway's truth, never the other
// way around.
type Reconciler struct {
	payments PaymentStore
	gateway  gateway.Client
	logger   *slog.Logger

	// graceWindow is how long a payment may sit without a transaction id
	// before orphan recovery considers it. expiryWindow is how long before
	// a recovery miss deletes the row.
	graceWindow  time.Duration
	expiryWindow time.Duration
}

// NewReconciler creates a status reconciler.
func NewReconciler(payments PaymentStore, gw gateway.Client, graceWindow, expiryWindow time.Duration, logger *slog.Logger) *Reconciler {
	if graceWindow <= 0 {
		graceWindow = 5 * time.Minute
	}
	if expiryWindow <= graceWindow {
		expiryWindow = 24 * time.Hour
	}

	return &Reconciler{
		payments:     payments,
		gateway:      gw,
		logger:       logger,
		graceWindow:  graceWindow,
		expiryWindow: expiryWindow,
	}
}

// Sync queries the gateway for the payment's transaction and writes the
// mapped status only if it differs from the stored one. Calling Sync twice
// with an unchanged gateway status performs no second write.
func (r *Reconciler) Sync(ctx context.Context, paymentID string) (*model.Payment, error) {
	payment, err := r.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !payment.TransactionID.Valid || payment.TransactionID.String == "" {
		return nil, ErrNoTransaction
	}

	tx, err := r.gateway.GetStatus(ctx, payment.TransactionID.String)
	if err != nil {
		return nil, err
	}

	mapped := gateway.MapStatus(tx.Status)
	changed, err := r.payments.SetStatusIfChanged(ctx, paymentID, mapped)
	if err != nil {
		return nil, err
	}

	if changed {
		payment.Status = mapped
		r.logger.Info("Payment status reconciled",
			slog.String("payment_id", paymentID),
			slog.String("transaction_id", payment.TransactionID.String),
			slog.String("gateway_status", string(tx.Status)),
			slog.String("status", string(mapped)),
		)
	} else {
		r.logger.Debug("Payment status unchanged",
			slog.String("payment_id", paymentID),
			slog.String("status", string(payment.Status)),
		)
	}

	return payment, nil
}

// RecoverOrphan handles a pending payment that has no transaction id: the
// crash window between gateway success and the local attach. The gateway is
// searched by externalId (always the local payment id on initiation). A hit
// attaches the transaction and syncs the status; a miss past the expiry
// window deletes the row, since the gateway never created anything for it.
func (r *Reconciler) RecoverOrphan(ctx context.Context, paymentID string) error {
	payment, err := r.payments.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}

	if payment.TransactionID.Valid {
		// Someone attached it since; a plain sync finishes the job.
		_, err := r.Sync(ctx, paymentID)
		return err
	}

	if age := time.Since(payment.CreatedAt); age < r.graceWindow {
		r.logger.Debug("Payment too young for orphan recovery",
			slog.String("payment_id", paymentID),
			slog.Duration("age", age),
		)
		return nil
	}

	matches, err := r.gateway.Search(ctx, gateway.SearchQuery{ExternalID: paymentID, Limit: 1})
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		if time.Since(payment.CreatedAt) >= r.expiryWindow {
			r.logger.Warn("Deleting expired orphan payment",
				slog.String("payment_id", paymentID),
			)
			return r.payments.DeletePayment(ctx, paymentID)
		}
		return nil
	}

	tx := matches[0]
	if err := r.payments.AttachTransaction(ctx, paymentID, tx.TransID); err != nil {
		return err
	}

	r.logger.Info("Orphan payment recovered from gateway",
		slog.String("payment_id", paymentID),
		slog.String("transaction_id", tx.TransID),
		slog.String("gateway_status", string(tx.Status)),
	)

	_, err = r.payments.SetStatusIfChanged(ctx, paymentID, gateway.MapStatus(tx.Status))
	return err
}

// RecoverOrphans sweeps every pending payment older than the grace window
// that never got a transaction id. Returns how many payments were examined.
func (r *Reconciler) RecoverOrphans(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.graceWindow)
	orphans, err := r.payments.ListUnlinkedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, p := range orphans {
		if err := r.RecoverOrphan(ctx, p.PaymentID); err != nil {
			r.logger.Error("Orphan recovery failed",
				slog.String("payment_id", p.PaymentID),
				slog.Any("error", err),
			)
		}
	}

	return len(orphans), nil
}
