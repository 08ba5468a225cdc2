package storage

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/model"
)

var contractColumnNames = []string{
	"contract_id", "proposal_id", "user_id", "escrow_amount", "status", "created_at", "updated_at",
}

func newMockContractStore(t *testing.T) (*ContractStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewContractStore(sqlxDB, logger), mock
}

func sampleContract() *model.Contract {
	now := time.Now()
	return &model.Contract{
		ContractID:   "b4f7a9d1-2c3e-4a5b-9d6f-77a8b9c0d004",
		ProposalID:   "e9c2d5f8-1a4b-4c7d-8e0f-33b6a7c8d005",
		UserID:       "1d2e3f4a-5b6c-4d7e-8f9a-0b1c2d3e4006",
		EscrowAmount: 50000,
		Status:       domain.ContractStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestContractStore_CreateContract(t *testing.T) {
	t.Run("creates contract", func(t *testing.T) {
		store, mock := newMockContractStore(t)
		contract := sampleContract()

		mock.ExpectExec("INSERT INTO contracts").
			WithArgs(
				contract.ContractID, contract.ProposalID, contract.UserID,
				contract.EscrowAmount, contract.Status, contract.CreatedAt, contract.UpdatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.CreateContract(context.Background(), contract)

		require.NoError(t, err)
	})

	t.Run("duplicate proposal maps to domain error", func(t *testing.T) {
		store, mock := newMockContractStore(t)
		contract := sampleContract()

		mock.ExpectExec("INSERT INTO contracts").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "contracts_proposal_id_key"})

		err := store.CreateContract(context.Background(), contract)

		assert.ErrorIs(t, err, domain.ErrDuplicateProposal)
	})
}

func TestContractStore_GetContractByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockContractStore(t)
		contract := sampleContract()

		mock.ExpectQuery("FROM contracts WHERE contract_id").
			WithArgs(contract.ContractID).
			WillReturnRows(sqlmock.NewRows(contractColumnNames).AddRow(
				contract.ContractID, contract.ProposalID, contract.UserID,
				contract.EscrowAmount, contract.Status, contract.CreatedAt, contract.UpdatedAt,
			))

		got, err := store.GetContractByID(context.Background(), contract.ContractID)

		require.NoError(t, err)
		assert.Equal(t, contract.ProposalID, got.ProposalID)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockContractStore(t)

		mock.ExpectQuery("FROM contracts WHERE contract_id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		got, err := store.GetContractByID(context.Background(), "missing")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})
}

func TestContractStore_UpdateContract(t *testing.T) {
	t.Run("rewrites mutable fields", func(t *testing.T) {
		store, mock := newMockContractStore(t)
		contract := sampleContract()
		contract.EscrowAmount = 75000
		contract.Status = domain.ContractStatusCompleted

		mock.ExpectExec("UPDATE contracts").
			WithArgs(contract.EscrowAmount, contract.Status, contract.ContractID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateContract(context.Background(), contract)

		require.NoError(t, err)
	})

	t.Run("missing contract", func(t *testing.T) {
		store, mock := newMockContractStore(t)
		contract := sampleContract()
		contract.ContractID = "missing"

		mock.ExpectExec("UPDATE contracts").
			WithArgs(contract.EscrowAmount, contract.Status, contract.ContractID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateContract(context.Background(), contract)

		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})
}

func TestContractStore_UpdateContractStatus(t *testing.T) {
	t.Run("updates status", func(t *testing.T) {
		store, mock := newMockContractStore(t)

		mock.ExpectExec("UPDATE contracts").
			WithArgs(domain.ContractStatusDisputed, "contract-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.UpdateContractStatus(context.Background(), "contract-1", domain.ContractStatusDisputed)

		require.NoError(t, err)
	})

	t.Run("missing contract", func(t *testing.T) {
		store, mock := newMockContractStore(t)

		mock.ExpectExec("UPDATE contracts").
			WithArgs(domain.ContractStatusCompleted, "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.UpdateContractStatus(context.Background(), "missing", domain.ContractStatusCompleted)

		assert.ErrorIs(t, err, domain.ErrContractNotFound)
	})
}
