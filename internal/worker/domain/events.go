package domain

// Event types carried on the marketplace exchange.
const (
	EventProposalAccepted = "proposal.accepted"
	EventPaymentSync      = "payment.sync"
)

// Envelope is the common wrapper around every published message; the payload
// is decoded a second time once the event type is known.
type Envelope struct {
	EventType string `json:"event_type"`
}

// ProposalAcceptedEvent signals that a client accepted a proposal: the worker
// consumes one job slot and opens the escrow contract.
type ProposalAcceptedEvent struct {
	EventType    string `json:"event_type"`
	ProposalID   string `json:"proposal_id"`
	JobID        string `json:"job_id"`
	UserID       string `json:"user_id"`
	EscrowAmount int64  `json:"escrow_amount"`
}

// PaymentSyncEvent asks the worker to reconcile a payment's status with the
// gateway.
type PaymentSyncEvent struct {
	EventType string `json:"event_type"`
	PaymentID string `json:"payment_id"`
}

// TaskMessage is a parsed delivery handed to the worker pool.
type TaskMessage struct {
	EventType   string
	Body        []byte
	DeliveryTag uint64
}
