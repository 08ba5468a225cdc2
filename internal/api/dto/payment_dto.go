package dto

type FundLinkRequest struct {
	ContractID    string `json:"contract_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	PayerEmail    string `json:"payer_email"`
	RedirectURL   string `json:"redirect_url"`
	Message       string `json:"message"`
}

type FundDirectRequest struct {
	ContractID    string `json:"contract_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	Medium        string `json:"medium"`
	PayerName     string `json:"payer_name"`
	PayerEmail    string `json:"payer_email"`
	Message       string `json:"message"`
}

type FundResponse struct {
	Payment PaymentDTO `json:"payment"`
	Link    string     `json:"link,omitempty"`
	TransID string     `json:"trans_id"`
	Replay  bool       `json:"replay"`
}

type CreatePaymentRequest struct {
	ContractID    string `json:"contract_id" binding:"required"`
	Amount        int64  `json:"amount" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListPaymentsRequest struct {
	ContractID string `form:"contract_id"`
	Status     string `form:"status"`
}

type ListPaymentsResponse struct {
	Payments []PaymentDTO `json:"payments"`
}

type PaymentDTO struct {
	PaymentID     string `json:"payment_id"`
	ContractID    string `json:"contract_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
