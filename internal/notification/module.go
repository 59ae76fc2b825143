// Package notification turns domain events into email deliveries. Handlers
// render the message at enqueue time and persist it to the outbox; the
// scheduler worker publishes NotificationOutboxDue when a record should be
// sent, and this module performs the actual delivery.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"printstudio_backend/internal/email"
	"printstudio_backend/internal/events"
	"printstudio_backend/internal/notification/outbox"
	"printstudio_backend/internal/users"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"
)

const (
	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = time.Minute
	outboxRetryMaxDelay    = 60 * time.Minute

	outboxKindEmail = "email"
)

// RecipientResolver looks up the contact details for a user.
type RecipientResolver interface {
	GetContact(ctx context.Context, userID uuid.UUID) (users.Contact, error)
}

// OutboxStore persists and updates notification outbox records.
type OutboxStore interface {
	Insert(ctx context.Context, params outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// emailSendPayload is the rendered message stored in the outbox. Delivery
// only needs to read it back and hand it to the sender.
type emailSendPayload struct {
	ToEmail  string `json:"toEmail"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"bodyHtml"`
}

// Module subscribes to domain events and manages the email delivery flow.
type Module struct {
	outbox  OutboxStore
	sender  email.Sender
	users   RecipientResolver
	catalog *Catalog
	cfg     config.NotificationConfig
	log     *logger.Logger
}

// New creates the notification module. Fails if the embedded template
// catalog does not compile.
func New(store OutboxStore, sender email.Sender, resolver RecipientResolver, cfg config.NotificationConfig, log *logger.Logger) (*Module, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Module{
		outbox:  store,
		sender:  sender,
		users:   resolver,
		catalog: catalog,
		cfg:     cfg,
		log:     log,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.InquiryCreated{}.EventName(), m)
	bus.Subscribe(events.InquiryQuoted{}.EventName(), m)
	bus.Subscribe(events.QuoteAccepted{}.EventName(), m)
	bus.Subscribe(events.QuoteRejected{}.EventName(), m)
	bus.Subscribe(events.InquiryMessageAdded{}.EventName(), m)
	bus.Subscribe(events.QuoteExpiryReminderDue{}.EventName(), m)
	bus.Subscribe(events.OrderCreated{}.EventName(), m)
	bus.Subscribe(events.PaymentRecorded{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.InquiryCreated:
		return m.handleInquiryCreated(ctx, e)
	case events.InquiryQuoted:
		return m.handleInquiryQuoted(ctx, e)
	case events.QuoteAccepted:
		return m.handleQuoteAccepted(ctx, e)
	case events.QuoteRejected:
		return m.handleQuoteRejected(ctx, e)
	case events.InquiryMessageAdded:
		return m.handleInquiryMessageAdded(ctx, e)
	case events.QuoteExpiryReminderDue:
		return m.handleQuoteExpiryReminderDue(ctx, e)
	case events.OrderCreated:
		return m.handleOrderCreated(ctx, e)
	case events.PaymentRecorded:
		return m.handlePaymentRecorded(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleInquiryCreated(ctx context.Context, e events.InquiryCreated) error {
	contact, ok := m.resolveContact(ctx, e.UserID, "inquiry_received")
	if !ok {
		return nil
	}
	return m.enqueueEmail(ctx, "inquiry_received", contact.Email, map[string]any{
		"customerName": displayName(contact),
		"itemCount":    e.ItemCount,
		"inquiryUrl":   m.inquiryURL(e.InquiryGroupID),
	})
}

func (m *Module) handleInquiryQuoted(ctx context.Context, e events.InquiryQuoted) error {
	contact, ok := m.resolveContact(ctx, e.UserID, "inquiry_quoted")
	if !ok {
		return nil
	}
	return m.enqueueEmail(ctx, "inquiry_quoted", contact.Email, map[string]any{
		"customerName":     displayName(contact),
		"totalQuotedPrice": e.TotalQuotedPrice.StringFixed(2),
		"quoteValidUntil":  e.QuoteValidUntil,
		"requote":          e.Requote,
		"inquiryUrl":       m.inquiryURL(e.InquiryGroupID),
	})
}

func (m *Module) handleQuoteAccepted(ctx context.Context, e events.QuoteAccepted) error {
	adminEmail := strings.TrimSpace(m.cfg.GetAdminEmail())
	if adminEmail == "" {
		return nil
	}
	return m.enqueueEmail(ctx, "quote_accepted_admin", adminEmail, map[string]any{
		"inquiryGroupId": e.InquiryGroupID.String(),
		"orderId":        e.OrderID.String(),
		"totalAmount":    e.TotalAmount.StringFixed(2),
	})
}

func (m *Module) handleQuoteRejected(ctx context.Context, e events.QuoteRejected) error {
	adminEmail := strings.TrimSpace(m.cfg.GetAdminEmail())
	if adminEmail == "" {
		return nil
	}
	return m.enqueueEmail(ctx, "quote_rejected_admin", adminEmail, map[string]any{
		"inquiryGroupId": e.InquiryGroupID.String(),
	})
}

func (m *Module) handleInquiryMessageAdded(ctx context.Context, e events.InquiryMessageAdded) error {
	if e.SenderRole == "admin" {
		contact, ok := m.resolveContact(ctx, e.OwnerID, "message_received")
		if !ok {
			return nil
		}
		return m.enqueueEmail(ctx, "message_received", contact.Email, map[string]any{
			"customerName": displayName(contact),
			"inquiryUrl":   m.inquiryURL(e.InquiryGroupID),
		})
	}

	adminEmail := strings.TrimSpace(m.cfg.GetAdminEmail())
	if adminEmail == "" {
		return nil
	}
	return m.enqueueEmail(ctx, "message_received_admin", adminEmail, map[string]any{
		"inquiryGroupId": e.InquiryGroupID.String(),
	})
}

func (m *Module) handleQuoteExpiryReminderDue(ctx context.Context, e events.QuoteExpiryReminderDue) error {
	contact, ok := m.resolveContact(ctx, e.UserID, "quote_expiring")
	if !ok {
		return nil
	}
	return m.enqueueEmail(ctx, "quote_expiring", contact.Email, map[string]any{
		"customerName":     displayName(contact),
		"totalQuotedPrice": e.TotalQuotedPrice.StringFixed(2),
		"quoteValidUntil":  e.QuoteValidUntil,
		"inquiryUrl":       m.inquiryURL(e.InquiryGroupID),
	})
}

func (m *Module) handleOrderCreated(ctx context.Context, e events.OrderCreated) error {
	contact, ok := m.resolveContact(ctx, e.UserID, "order_created")
	if !ok {
		return nil
	}
	return m.enqueueEmail(ctx, "order_created", contact.Email, map[string]any{
		"customerName": displayName(contact),
		"orderId":      e.OrderID.String(),
		"totalAmount":  e.TotalAmount.StringFixed(2),
		"orderUrl":     m.orderURL(e.OrderID),
	})
}

func (m *Module) handlePaymentRecorded(ctx context.Context, e events.PaymentRecorded) error {
	contact, ok := m.resolveContact(ctx, e.UserID, "payment_recorded")
	if !ok {
		return nil
	}
	return m.enqueueEmail(ctx, "payment_recorded", contact.Email, map[string]any{
		"customerName": displayName(contact),
		"orderId":      e.OrderID.String(),
		"amount":       e.Amount.StringFixed(2),
		"paymentMode":  e.PaymentMode,
		"fullyPaid":    e.AmountDue.IsZero(),
		"amountDue":    e.AmountDue.StringFixed(2),
	})
}

// enqueueEmail renders the template and persists the ready-to-send message
// to the outbox.
func (m *Module) enqueueEmail(ctx context.Context, templateName, toEmail string, vars map[string]any) error {
	subject, body, err := m.catalog.Render(templateName, vars)
	if err != nil {
		m.log.Error("template render failed", "template", templateName, "error", err)
		return err
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:     outboxKindEmail,
		Template: templateName,
		Payload: emailSendPayload{
			ToEmail:  toEmail,
			Subject:  subject,
			BodyHTML: body,
		},
		RunAt: time.Now().UTC(),
	})
	if err != nil {
		m.log.Error("outbox insert failed", "template", templateName, "error", err)
		return err
	}

	m.log.Info("email enqueued", "outboxId", id, "template", templateName)
	return nil
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		m.log.Error("outbox record lookup failed", "outboxId", e.OutboxID, "error", err)
		return err
	}
	if rec.Status == outbox.StatusSucceeded {
		m.log.Debug("outbox record already delivered", "outboxId", rec.ID)
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}
	// MarkProcessing bumped the attempt counter in the database.
	attempt := rec.Attempts + 1

	if rec.Kind != outboxKindEmail {
		m.log.Warn("unsupported outbox kind", "outboxId", rec.ID, "kind", rec.Kind)
		return m.outbox.MarkFailed(ctx, rec.ID, "unsupported kind: "+rec.Kind)
	}

	var payload emailSendPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return m.outbox.MarkFailed(ctx, rec.ID, "invalid payload: "+err.Error())
	}

	if err := m.sender.Send(ctx, payload.ToEmail, payload.Subject, payload.BodyHTML); err != nil {
		return m.handleDeliveryError(ctx, rec.ID, attempt, err)
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}
	m.log.Info("email delivered", "outboxId", rec.ID, "template", rec.Template, "attempt", attempt)
	return nil
}

// handleDeliveryError retries failed sends with exponential backoff and
// gives up after maxOutboxRetryAttempts.
func (m *Module) handleDeliveryError(ctx context.Context, id uuid.UUID, attempt int, sendErr error) error {
	if attempt >= maxOutboxRetryAttempts {
		m.log.Error("email delivery failed permanently", "outboxId", id, "attempt", attempt, "error", sendErr)
		return m.outbox.MarkFailed(ctx, id, sendErr.Error())
	}

	delay := computeOutboxRetryDelay(attempt)
	runAt := time.Now().UTC().Add(delay)
	m.log.Warn("email delivery failed, retry scheduled", "outboxId", id, "attempt", attempt, "retryIn", delay, "error", sendErr)
	return m.outbox.ScheduleRetry(ctx, id, runAt, sendErr.Error())
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		delay = outboxRetryMaxDelay
	}
	return delay
}

// resolveContact looks up the recipient; a missing contact is logged and
// skipped rather than failing the event.
func (m *Module) resolveContact(ctx context.Context, userID uuid.UUID, templateName string) (users.Contact, bool) {
	contact, err := m.users.GetContact(ctx, userID)
	if err != nil {
		m.log.Warn("recipient lookup failed, notification skipped", "userId", userID, "template", templateName, "error", err)
		return users.Contact{}, false
	}
	if strings.TrimSpace(contact.Email) == "" {
		m.log.Warn("recipient has no email, notification skipped", "userId", userID, "template", templateName)
		return users.Contact{}, false
	}
	return contact, true
}

func displayName(c users.Contact) string {
	name := strings.TrimSpace(c.FullName)
	if name == "" {
		return "there"
	}
	return name
}

func (m *Module) inquiryURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/inquiries/%s", strings.TrimRight(m.cfg.GetAppBaseURL(), "/"), id)
}

func (m *Module) orderURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/orders/%s", strings.TrimRight(m.cfg.GetAppBaseURL(), "/"), id)
}
