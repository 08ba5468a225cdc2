// Package gateway wraps the external Fapshi payment service behind a narrow
// client interface so the orchestration layer can be tested against a double.
package gateway

import (
	"context"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
)

// TransactionStatus is the gateway's own status enum for a transaction.
type TransactionStatus string

const (
	StatusCreated    TransactionStatus = "CREATED"
	StatusPending    TransactionStatus = "PENDING"
	StatusSuccessful TransactionStatus = "SUCCESSFUL"
	StatusFailed     TransactionStatus = "FAILED"
	StatusExpired    TransactionStatus = "EXPIRED"
)

// MapStatus maps a gateway transaction status onto the local payment status.
// The mapping is total and does not depend on prior local state; anything the
// gateway has not settled stays pending.
func MapStatus(s TransactionStatus) domain.PaymentStatus {
	switch s {
	case StatusSuccessful:
		return domain.PaymentStatusCompleted
	case StatusFailed, StatusExpired:
		return domain.PaymentStatusFailed
	case StatusCreated, StatusPending:
		return domain.PaymentStatusPending
	default:
		return domain.PaymentStatusPending
	}
}

// LinkRequest asks the gateway for a hosted checkout link.
// ExternalID carries the local payment id so the two systems can be
// cross-referenced before a transaction id exists locally.
type LinkRequest struct {
	Amount      int64  `json:"amount"`
	Email       string `json:"email,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	UserID      string `json:"userId,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	Message     string `json:"message,omitempty"`
	CardOnly    bool   `json:"cardOnly,omitempty"`
}

// LinkResponse is the gateway's answer to a link request.
type LinkResponse struct {
	Link    string `json:"link"`
	TransID string `json:"transId"`
}

// DirectRequest pushes a charge prompt straight to a payer's mobile device.
type DirectRequest struct {
	Amount     int64  `json:"amount"`
	Phone      string `json:"phone"`
	Medium     string `json:"medium,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	UserID     string `json:"userId,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// DirectResponse is the gateway's answer to a direct charge request.
type DirectResponse struct {
	TransID string `json:"transId"`
}

// Transaction is the gateway's view of one transaction.
type Transaction struct {
	TransID    string            `json:"transId"`
	Status     TransactionStatus `json:"status"`
	Amount     int64             `json:"amount"`
	Medium     string            `json:"medium,omitempty"`
	UserID     string            `json:"userId,omitempty"`
	ExternalID string            `json:"externalId,omitempty"`
	Message    string            `json:"message,omitempty"`
	CreatedAt  string            `json:"createdAt,omitempty"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

// SearchQuery filters the gateway's transaction search endpoint. Zero values
// are omitted from the query string.
type SearchQuery struct {
	Status     TransactionStatus
	Medium     string
	Name       string
	Start      string // yyyy-mm-dd
	End        string // yyyy-mm-dd
	Amount     int64
	Limit      int
	Sort       string // asc or desc
	ExternalID string
}

// Client is the four-plus-three call contract the rest of the system depends
// on. Every call is a single blocking request with a bounded timeout; retry
// policy, if any, belongs to the caller.
type Client interface {
	GenerateLink(ctx context.Context, req LinkRequest) (*LinkResponse, error)
	InitiateDirect(ctx context.Context, req DirectRequest) (*DirectResponse, error)
	GetStatus(ctx context.Context, transID string) (*Transaction, error)
	Expire(ctx context.Context, transID string) (*Transaction, error)
	ListUserTransactions(ctx context.Context, userID string) ([]Transaction, error)
	Search(ctx context.Context, q SearchQuery) ([]Transaction, error)
	Balance(ctx context.Context) (int64, error)
}
