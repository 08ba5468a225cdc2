package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
)

// PaymentStore handles all database operations on payments.
type PaymentStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPaymentStore creates a new PaymentStore instance
func NewPaymentStore(db *sqlx.DB, logger *slog.Logger) *PaymentStore {
	return &PaymentStore{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `
	payment_id, contract_id, amount, payment_method, transaction_id, status, created_at, updated_at`

func (s *PaymentStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			payment_id, contract_id, amount, payment_method, transaction_id, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		payment.PaymentID,
		payment.ContractID,
		payment.Amount,
		payment.PaymentMethod,
		payment.TransactionID,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (s *PaymentStore) GetPaymentByID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var payment model.Payment
	query := `SELECT` + paymentColumns + ` FROM payments WHERE payment_id = $1`

	err := s.db.GetContext(ctx, &payment, query, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

// PaymentFilter narrows ListPayments. Zero fields are ignored.
type PaymentFilter struct {
	ContractID string
	Status     string
}

func (s *PaymentStore) ListPayments(ctx context.Context, filter PaymentFilter) ([]model.Payment, error) {
	query := `SELECT` + paymentColumns + ` FROM payments WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.ContractID != "" {
		query += fmt.Sprintf(" AND contract_id = $%d", argIdx)
		args = append(args, filter.ContractID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	var payments []model.Payment
	err := s.db.SelectContext(ctx, &payments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}

// AttachTransaction records the gateway transaction id on a payment. The
// update is conditional on transaction_id still being NULL so a late or
// duplicated attach can never overwrite an existing correlation key.
func (s *PaymentStore) AttachTransaction(ctx context.Context, paymentID, transactionID string) error {
	query := `
		UPDATE payments
		SET transaction_id = $1,
		    updated_at = NOW()
		WHERE payment_id = $2
		  AND transaction_id IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, transactionID, paymentID)
	if err != nil {
		return fmt.Errorf("failed to attach transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}

	s.logger.Info("Transaction attached to payment",
		slog.String("payment_id", paymentID),
		slog.String("transaction_id", transactionID),
	)

	return nil
}

// UpdatePaymentStatus overwrites a payment's status unconditionally.
func (s *PaymentStore) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1,
		    updated_at = NOW()
		WHERE payment_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, status, paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// SetStatusIfChanged writes the status only when it differs from the stored
// one, and reports whether a write happened. Reconciliation relies on this to
// stay idempotent.
func (s *PaymentStore) SetStatusIfChanged(ctx context.Context, paymentID string, status domain.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1,
		    updated_at = NOW()
		WHERE payment_id = $2
		  AND status <> $1
	`

	result, err := s.db.ExecContext(ctx, query, status, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (s *PaymentStore) DeletePayment(ctx context.Context, paymentID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE payment_id = $1`, paymentID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// ListUnlinkedBefore returns pending payments created before cutoff that
// never received a transaction id. These are the orphan candidates left by a
// crash between gateway success and the local attach.
func (s *PaymentStore) ListUnlinkedBefore(ctx context.Context, cutoff time.Time) ([]model.Payment, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments
		WHERE transaction_id IS NULL
		  AND status = $1
		  AND created_at < $2
		ORDER BY created_at ASC`

	var payments []model.Payment
	err := s.db.SelectContext(ctx, &payments, query, domain.PaymentStatusPending, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlinked payments: %w", err)
	}

	return payments, nil
}
