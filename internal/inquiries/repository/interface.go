package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// InquiryGroup is the database model for an inquiry with its quote fields.
// TotalQuotedPrice, QuoteValidUntil and QuotedAt stay null until the first
// quote is issued.
type InquiryGroup struct {
	ID               uuid.UUID        `db:"id"`
	UserID           uuid.UUID        `db:"user_id"`
	Status           string           `db:"status"`
	TotalQuotedPrice *decimal.Decimal `db:"total_quoted_price"`
	QuoteValidUntil  *time.Time       `db:"quote_valid_until"`
	AdminNotes       *string          `db:"admin_notes"`
	QuotedAt         *time.Time       `db:"quoted_at"`
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
	Items            []InquiryItem
	Messages         []InquiryMessage
}

// InquiryItem is one requested line in an inquiry. Exactly one of
// ProductTemplateID or the ServiceID/VariantID pair is set.
type InquiryItem struct {
	ID                  uuid.UUID        `db:"id"`
	GroupID             uuid.UUID        `db:"inquiry_group_id"`
	ProductTemplateID   *uuid.UUID       `db:"product_template_id"`
	ServiceID           *uuid.UUID       `db:"service_id"`
	VariantID           *uuid.UUID       `db:"variant_id"`
	Quantity            int              `db:"quantity"`
	Selections          json.RawMessage  `db:"selections"`
	Notes               *string          `db:"notes"`
	Images              []string         `db:"images"`
	EstimatedUnitPrice  decimal.Decimal  `db:"estimated_unit_price"`
	EstimatedTotalPrice decimal.Decimal  `db:"estimated_total_price"`
	LineItemPrice       *decimal.Decimal `db:"line_item_price"`
}

// InquiryMessage is one entry in an inquiry's conversation thread. The
// sender's role is derived by comparing SenderID to the group's UserID.
type InquiryMessage struct {
	ID        int64     `db:"id"`
	GroupID   uuid.UUID `db:"inquiry_group_id"`
	SenderID  uuid.UUID `db:"sender_id"`
	Content   string    `db:"content"`
	FileURLs  []string  `db:"file_urls"`
	CreatedAt time.Time `db:"created_at"`
}

// CreateItemParams contains parameters for one inquiry line item.
type CreateItemParams struct {
	ProductTemplateID   *uuid.UUID
	ServiceID           *uuid.UUID
	VariantID           *uuid.UUID
	Quantity            int
	Selections          json.RawMessage
	Notes               *string
	Images              []string
	EstimatedUnitPrice  decimal.Decimal
	EstimatedTotalPrice decimal.Decimal
}

// CreateGroupParams contains parameters for creating an inquiry group.
type CreateGroupParams struct {
	UserID uuid.UUID
	Items  []CreateItemParams
}

// QuoteParams contains parameters for issuing or re-issuing a quote.
type QuoteParams struct {
	GroupID          uuid.UUID
	TotalQuotedPrice decimal.Decimal
	AdminNotes       *string
	ValidForDays     int
	LineItemPrices   map[uuid.UUID]decimal.Decimal
}

// RespondParams contains parameters for a customer accept or reject.
// QuotedAt is the quote version the customer is responding to.
type RespondParams struct {
	GroupID  uuid.UUID
	UserID   uuid.UUID
	QuotedAt time.Time
}

// AddMessageParams contains parameters for appending a thread message.
type AddMessageParams struct {
	GroupID  uuid.UUID
	SenderID uuid.UUID
	Content  string
	FileURLs []string
}

// ListParams contains parameters for the admin inquiry listing.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing inquiry groups.
type ListResult struct {
	Items      []InquiryGroup
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// ConvertedOrder is the order produced by accepting a quote.
type ConvertedOrder struct {
	ID             uuid.UUID
	InquiryGroupID uuid.UUID
	UserID         uuid.UUID
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	Status         string
	CreatedAt      time.Time
}

// ConvertOrderParams contains parameters for creating the order of an
// accepted inquiry.
type ConvertOrderParams struct {
	InquiryGroupID uuid.UUID
	UserID         uuid.UUID
	TotalAmount    decimal.Decimal
}

// OrderConverter creates and reads orders inside the accepting transaction.
// The accept flow commits the status change and the order as one unit.
type OrderConverter interface {
	InsertForInquiry(ctx context.Context, tx pgx.Tx, params ConvertOrderParams) (ConvertedOrder, error)
	GetForInquiry(ctx context.Context, tx pgx.Tx, inquiryGroupID uuid.UUID) (ConvertedOrder, error)
}

// AcceptResult is the outcome of an accept request. AlreadyAccepted is true
// when a previous accept created the order and this request returned it.
type AcceptResult struct {
	Group           InquiryGroup
	Order           ConvertedOrder
	AlreadyAccepted bool
}

// Repository defines storage operations for the inquiries bounded context.
type Repository interface {
	CreateGroup(ctx context.Context, params CreateGroupParams) (InquiryGroup, error)
	GetByID(ctx context.Context, id uuid.UUID) (InquiryGroup, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]InquiryGroup, error)
	List(ctx context.Context, params ListParams) (ListResult, error)
	DeleteOwn(ctx context.Context, id, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	Quote(ctx context.Context, params QuoteParams) (InquiryGroup, error)
	Accept(ctx context.Context, params RespondParams, converter OrderConverter) (AcceptResult, error)
	Reject(ctx context.Context, params RespondParams) (InquiryGroup, error)
	AddMessage(ctx context.Context, params AddMessageParams) (InquiryMessage, error)
	GetMessages(ctx context.Context, groupID uuid.UUID) ([]InquiryMessage, error)
}
