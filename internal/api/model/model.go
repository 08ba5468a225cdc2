package model

import (
	"database/sql"
	"time"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
)

// Job is a job posting with a fixed number of proposal slots.
// AcceptedSlots only ever grows, and never past NumberOfSlots.
type Job struct {
	JobID         string           `db:"job_id"`
	ClientID      string           `db:"client_id"`
	Title         string           `db:"title"`
	Description   string           `db:"description"`
	Category      string           `db:"category"`
	Budget        int64            `db:"budget"`
	NumberOfSlots int              `db:"number_of_slots"`
	AcceptedSlots int              `db:"accepted_slots"`
	Status        domain.JobStatus `db:"status"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}

// Contract binds an accepted proposal to a held escrow amount.
type Contract struct {
	ContractID   string                `db:"contract_id"`
	ProposalID   string                `db:"proposal_id"`
	UserID       string                `db:"user_id"`
	EscrowAmount int64                 `db:"escrow_amount"`
	Status       domain.ContractStatus `db:"status"`
	CreatedAt    time.Time             `db:"created_at"`
	UpdatedAt    time.Time             `db:"updated_at"`
}

// Payment is a local escrow payment record. TransactionID stays NULL until
// the gateway acknowledges a transaction; it is the correlation key to the
// external system.
type Payment struct {
	PaymentID     string               `db:"payment_id"`
	ContractID    string               `db:"contract_id"`
	Amount        int64                `db:"amount"`
	PaymentMethod domain.PaymentMethod `db:"payment_method"`
	TransactionID sql.NullString       `db:"transaction_id"`
	Status        domain.PaymentStatus `db:"status"`
	CreatedAt     time.Time            `db:"created_at"`
	UpdatedAt     time.Time            `db:"updated_at"`
}
