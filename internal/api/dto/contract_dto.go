package dto

type AcceptProposalRequest struct {
	ProposalID   string `json:"proposal_id" binding:"required"`
	UserID       string `json:"user_id" binding:"required"`
	EscrowAmount int64  `json:"escrow_amount" binding:"required"`
}

type CreateContractRequest struct {
	ProposalID   string `json:"proposal_id" binding:"required"`
	UserID       string `json:"user_id" binding:"required"`
	EscrowAmount int64  `json:"escrow_amount" binding:"required"`
}

type ListContractsRequest struct {
	UserID string `form:"user_id"`
	Status string `form:"status"`
}

type ListContractsResponse struct {
	Contracts []ContractDTO `json:"contracts"`
}

type UpdateContractRequest struct {
	EscrowAmount int64  `json:"escrow_amount" binding:"required"`
	Status       string `json:"status"`
}

type UpdateContractStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ContractDTO struct {
	ContractID   string `json:"contract_id"`
	ProposalID   string `json:"proposal_id"`
	UserID       string `json:"user_id"`
	EscrowAmount int64  `json:"escrow_amount"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
