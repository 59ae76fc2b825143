// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"printstudio_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Inquiry Domain Events
// =============================================================================

// InquiryCreated is published when a customer submits a new inquiry group.
type InquiryCreated struct {
	BaseEvent
	InquiryGroupID uuid.UUID `json:"inquiryGroupId"`
	UserID         uuid.UUID `json:"userId"`
	ItemCount      int       `json:"itemCount"`
}

func (e InquiryCreated) EventName() string { return "inquiries.inquiry.created" }

// InquiryQuoted is published when an admin issues or revises a quote.
type InquiryQuoted struct {
	BaseEvent
	InquiryGroupID   uuid.UUID       `json:"inquiryGroupId"`
	UserID           uuid.UUID       `json:"userId"`
	TotalQuotedPrice decimal.Decimal `json:"totalQuotedPrice"`
	QuoteValidUntil  string          `json:"quoteValidUntil"`
	Requote          bool            `json:"requote"`
}

func (e InquiryQuoted) EventName() string { return "inquiries.inquiry.quoted" }

// QuoteAccepted is published when a customer accepts a quote. The order is
// already committed when this event fires.
type QuoteAccepted struct {
	BaseEvent
	InquiryGroupID uuid.UUID       `json:"inquiryGroupId"`
	UserID         uuid.UUID       `json:"userId"`
	OrderID        uuid.UUID       `json:"orderId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

func (e QuoteAccepted) EventName() string { return "inquiries.quote.accepted" }

// QuoteRejected is published when a customer rejects a quote.
type QuoteRejected struct {
	BaseEvent
	InquiryGroupID uuid.UUID `json:"inquiryGroupId"`
	UserID         uuid.UUID `json:"userId"`
}

func (e QuoteRejected) EventName() string { return "inquiries.quote.rejected" }

// InquiryMessageAdded is published when either party posts a thread message.
type InquiryMessageAdded struct {
	BaseEvent
	InquiryGroupID uuid.UUID `json:"inquiryGroupId"`
	MessageID      int64     `json:"messageId"`
	SenderID       uuid.UUID `json:"senderId"`
	SenderRole     string    `json:"senderRole"`
	OwnerID        uuid.UUID `json:"ownerId"`
}

func (e InquiryMessageAdded) EventName() string { return "inquiries.message.added" }

// QuoteExpiryReminderDue is published by the scheduler worker when a quote
// is still open shortly before its validity window closes.
type QuoteExpiryReminderDue struct {
	BaseEvent
	InquiryGroupID   uuid.UUID       `json:"inquiryGroupId"`
	UserID           uuid.UUID       `json:"userId"`
	TotalQuotedPrice decimal.Decimal `json:"totalQuotedPrice"`
	QuoteValidUntil  string          `json:"quoteValidUntil"`
}

func (e QuoteExpiryReminderDue) EventName() string { return "inquiries.quote.expiry_reminder" }

// =============================================================================
// Order Domain Events
// =============================================================================

// OrderCreated is published when an accepted inquiry is converted to an order.
type OrderCreated struct {
	BaseEvent
	OrderID        uuid.UUID       `json:"orderId"`
	InquiryGroupID uuid.UUID       `json:"inquiryGroupId"`
	UserID         uuid.UUID       `json:"userId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
}

func (e OrderCreated) EventName() string { return "orders.order.created" }

// PaymentRecorded is published when a payment is recorded against an order.
type PaymentRecorded struct {
	BaseEvent
	OrderID     uuid.UUID       `json:"orderId"`
	UserID      uuid.UUID       `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentMode string          `json:"paymentMode"`
	OrderStatus string          `json:"orderStatus"`
	AmountDue   decimal.Decimal `json:"amountDue"`
}

func (e PaymentRecorded) EventName() string { return "orders.payment.recorded" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record should be delivered.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
