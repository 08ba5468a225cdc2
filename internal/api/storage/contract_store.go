package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
)

// pqUniqueViolation is the Postgres error code for unique constraint failures.
const pqUniqueViolation = "23505"

// ContractStore handles all database operations on escrow contracts.
type ContractStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewContractStore creates a new ContractStore instance
func NewContractStore(db *sqlx.DB, logger *slog.Logger) *ContractStore {
	return &ContractStore{
		db:     db,
		logger: logger,
	}
}

const contractColumns = `
	contract_id, proposal_id, user_id, escrow_amount, status, created_at, updated_at`

// CreateContract inserts a contract. proposal_id carries a unique index, so a
// second contract for the same accepted proposal fails with
// domain.ErrDuplicateProposal instead of silently duplicating.
func (s *ContractStore) CreateContract(ctx context.Context, contract *model.Contract) error {
	query := `
		INSERT INTO contracts (
			contract_id, proposal_id, user_id, escrow_amount, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		contract.ContractID,
		contract.ProposalID,
		contract.UserID,
		contract.EscrowAmount,
		contract.Status,
		contract.CreatedAt,
		contract.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			s.logger.Warn("Contract already exists for proposal",
				slog.String("proposal_id", contract.ProposalID),
			)
			return domain.ErrDuplicateProposal
		}
		return fmt.Errorf("failed to create contract: %w", err)
	}

	return nil
}

func (s *ContractStore) GetContractByID(ctx context.Context, contractID string) (*model.Contract, error) {
	var contract model.Contract
	query := `SELECT` + contractColumns + ` FROM contracts WHERE contract_id = $1`

	err := s.db.GetContext(ctx, &contract, query, contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}

	return &contract, nil
}

// ContractFilter narrows ListContracts. Zero fields are ignored.
type ContractFilter struct {
	UserID string
	Status string
}

func (s *ContractStore) ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error) {
	query := `SELECT` + contractColumns + ` FROM contracts WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	var contracts []model.Contract
	err := s.db.SelectContext(ctx, &contracts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	return contracts, nil
}

// UpdateContract overwrites a contract's mutable fields. The proposal and
// payer bindings are fixed at creation and stay untouched.
func (s *ContractStore) UpdateContract(ctx context.Context, contract *model.Contract) error {
	query := `
		UPDATE contracts
		SET escrow_amount = $1,
		    status = $2,
		    updated_at = NOW()
		WHERE contract_id = $3
	`

	result, err := s.db.ExecContext(ctx, query, contract.EscrowAmount, contract.Status, contract.ContractID)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrContractNotFound
	}

	return nil
}

func (s *ContractStore) UpdateContractStatus(ctx context.Context, contractID string, status domain.ContractStatus) error {
	query := `
		UPDATE contracts
		SET status = $1,
		    updated_at = NOW()
		WHERE contract_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, status, contractID)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrContractNotFound
	}

	return nil
}

func (s *ContractStore) DeleteContract(ctx context.Context, contractID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE contract_id = $1`, contractID)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrContractNotFound
	}

	return nil
}
