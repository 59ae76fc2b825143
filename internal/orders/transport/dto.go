package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID             uuid.UUID       `json:"id"`
	InquiryGroupID uuid.UUID       `json:"inquiryGroupId"`
	UserID         uuid.UUID       `json:"userId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	AmountDue      decimal.Decimal `json:"amountDue"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// OrderListResponse wraps a customer's order list.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Total int             `json:"total"`
}

// AdminListResponse wraps the paginated admin order list.
type AdminListResponse struct {
	Items      []OrderResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// ListOrdersRequest contains admin list filters.
type ListOrdersRequest struct {
	Status   *string `form:"status" validate:"omitempty,oneof=WAITING_PAYMENT PARTIALLY_PAID PAID"`
	Page     int     `form:"page" validate:"omitempty,min=1"`
	PageSize int     `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// RecordPaymentRequest contains data for recording an offline payment.
type RecordPaymentRequest struct {
	Amount           decimal.Decimal `json:"amount" validate:"required"`
	PaymentMode      string          `json:"paymentMode" validate:"required,oneof=UPI CASH BANK_TRANSFER CARD OTHER"`
	Notes            *string         `json:"notes,omitempty" validate:"omitempty,max=2000"`
	GatewayOrderID   *string         `json:"gatewayOrderId,omitempty" validate:"omitempty,max=200"`
	GatewayPaymentID *string         `json:"gatewayPaymentId,omitempty" validate:"omitempty,max=200"`
}

// TransactionResponse represents one payment ledger entry.
type TransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          uuid.UUID       `json:"orderId"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMode      string          `json:"paymentMode"`
	Notes            *string         `json:"notes,omitempty"`
	GatewayOrderID   *string         `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string         `json:"gatewayPaymentId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// PaymentsResponse is the ledger of an order with its current balance.
type PaymentsResponse struct {
	Order        OrderResponse         `json:"order"`
	Transactions []TransactionResponse `json:"transactions"`
}

// RecordPaymentResponse is the result of recording a payment.
type RecordPaymentResponse struct {
	Order       OrderResponse       `json:"order"`
	Transaction TransactionResponse `json:"transaction"`
}
