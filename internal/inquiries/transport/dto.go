package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateItemRequest is one requested line in a new inquiry. Exactly one of
// ProductTemplateID or the ServiceID/VariantID pair must be set.
type CreateItemRequest struct {
	ProductTemplateID *uuid.UUID     `json:"productTemplateId,omitempty"`
	ServiceID         *uuid.UUID     `json:"serviceId,omitempty"`
	VariantID         *uuid.UUID     `json:"variantId,omitempty"`
	Quantity          int            `json:"quantity" validate:"min=1"`
	Selections        map[string]any `json:"selections,omitempty"`
	Notes             *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Images            []string       `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// CreateInquiryRequest contains data for creating an inquiry group.
type CreateInquiryRequest struct {
	Items []CreateItemRequest `json:"items" validate:"required,min=1,dive"`
}

// QuoteRequest contains data for issuing or re-issuing a quote.
type QuoteRequest struct {
	TotalQuotedPrice decimal.Decimal            `json:"totalQuotedPrice" validate:"required"`
	AdminNotes       *string                    `json:"adminNotes,omitempty" validate:"omitempty,max=5000"`
	ValidForDays     int                        `json:"validForDays,omitempty" validate:"omitempty,min=1"`
	LineItemPrices   map[string]decimal.Decimal `json:"lineItemPrices,omitempty"`
}

// RespondRequest is a customer's decision on a quote. QuotedAt is the quote
// version being responded to; a mismatch with the current quote is rejected.
type RespondRequest struct {
	Status   string    `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	QuotedAt time.Time `json:"quotedAt" validate:"required"`
}

// AddMessageRequest contains data for appending a thread message.
type AddMessageRequest struct {
	Content  string   `json:"content" validate:"required,max=5000"`
	FileURLs []string `json:"fileUrls,omitempty" validate:"omitempty,dive,url"`
}

// ListInquiriesRequest contains admin list filters.
type ListInquiriesRequest struct {
	Status   *string `form:"status" validate:"omitempty,oneof=PENDING QUOTED ACCEPTED REJECTED"`
	Page     int     `form:"page" validate:"omitempty,min=1"`
	PageSize int     `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ItemResponse represents an inquiry line item in API responses.
type ItemResponse struct {
	ID                  uuid.UUID        `json:"id"`
	ProductTemplateID   *uuid.UUID       `json:"productTemplateId,omitempty"`
	ServiceID           *uuid.UUID       `json:"serviceId,omitempty"`
	VariantID           *uuid.UUID       `json:"variantId,omitempty"`
	Quantity            int              `json:"quantity"`
	Selections          json.RawMessage  `json:"selections,omitempty"`
	Notes               *string          `json:"notes,omitempty"`
	Images              []string         `json:"images,omitempty"`
	EstimatedUnitPrice  decimal.Decimal  `json:"estimatedUnitPrice"`
	EstimatedTotalPrice decimal.Decimal  `json:"estimatedTotalPrice"`
	LineItemPrice       *decimal.Decimal `json:"lineItemPrice,omitempty"`
}

// MessageResponse represents a thread message. Role is derived from the
// sender, never stored.
type MessageResponse struct {
	ID        int64     `json:"id"`
	SenderID  uuid.UUID `json:"senderId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	FileURLs  []string  `json:"fileUrls,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InquiryResponse represents an inquiry group in API responses.
type InquiryResponse struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"userId"`
	Status           string            `json:"status"`
	TotalQuotedPrice *decimal.Decimal  `json:"totalQuotedPrice,omitempty"`
	QuoteValidUntil  *time.Time        `json:"quoteValidUntil,omitempty"`
	QuoteExpired     bool              `json:"quoteExpired,omitempty"`
	AdminNotes       *string           `json:"adminNotes,omitempty"`
	QuotedAt         *time.Time        `json:"quotedAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	Items            []ItemResponse    `json:"items"`
	Messages         []MessageResponse `json:"messages,omitempty"`
}

// InquiryListResponse wraps a customer's inquiry list.
type InquiryListResponse struct {
	Items []InquiryResponse `json:"items"`
	Total int               `json:"total"`
}

// AdminListResponse wraps the paginated admin inquiry list.
type AdminListResponse struct {
	Items      []InquiryResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// OrderSummary is the order returned when a quote is accepted.
type OrderSummary struct {
	ID             uuid.UUID       `json:"id"`
	InquiryGroupID uuid.UUID       `json:"inquiryGroupId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	AmountPaid     decimal.Decimal `json:"amountPaid"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// RespondResponse is the outcome of a customer decision. Order is set only
// for accepts.
type RespondResponse struct {
	Inquiry InquiryResponse `json:"inquiry"`
	Order   *OrderSummary   `json:"order,omitempty"`
}
