package notification

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"printstudio_backend/internal/events"
	"printstudio_backend/internal/notification/outbox"
	"printstudio_backend/internal/users"
	"printstudio_backend/platform/logger"
)

type fakeOutbox struct {
	records map[uuid.UUID]outbox.Record

	inserted   []outbox.InsertParams
	processing []uuid.UUID
	succeeded  []uuid.UUID
	failed     map[uuid.UUID]string
	retries    map[uuid.UUID]time.Time
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		records: make(map[uuid.UUID]outbox.Record),
		failed:  make(map[uuid.UUID]string),
		retries: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeOutbox) Insert(_ context.Context, params outbox.InsertParams) (uuid.UUID, error) {
	f.inserted = append(f.inserted, params)
	return uuid.New(), nil
}

func (f *fakeOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	return f.records[id], nil
}

func (f *fakeOutbox) MarkProcessing(_ context.Context, id uuid.UUID) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	f.succeeded = append(f.succeeded, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	f.failed[id] = lastError
	return nil
}

func (f *fakeOutbox) ScheduleRetry(_ context.Context, id uuid.UUID, runAt time.Time, _ string) error {
	f.retries[id] = runAt
	return nil
}

type fakeResolver struct {
	contacts map[uuid.UUID]users.Contact
}

func (f *fakeResolver) GetContact(_ context.Context, userID uuid.UUID) (users.Contact, error) {
	if c, ok := f.contacts[userID]; ok {
		return c, nil
	}
	return users.Contact{}, context.Canceled
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

func (f *fakeSender) Send(_ context.Context, toEmail, subject, htmlContent string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: toEmail, subject: subject, body: htmlContent})
	return nil
}

type staticNotificationConfig struct {
	baseURL    string
	adminEmail string
}

func (c staticNotificationConfig) GetAppBaseURL() string { return c.baseURL }
func (c staticNotificationConfig) GetAdminEmail() string { return c.adminEmail }

func newTestModule(t *testing.T, store OutboxStore, sender *fakeSender, resolver *fakeResolver, adminEmail string) *Module {
	t.Helper()
	cfg := staticNotificationConfig{baseURL: "https://app.example.com", adminEmail: adminEmail}
	m, err := New(store, sender, resolver, cfg, logger.New("test"))
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	return m
}

func emailPayload(t *testing.T, params outbox.InsertParams) emailSendPayload {
	t.Helper()
	payload, ok := params.Payload.(emailSendPayload)
	if !ok {
		t.Fatalf("expected emailSendPayload, got %T", params.Payload)
	}
	return payload
}

func TestHandleInquiryQuoted_RendersAndEnqueues(t *testing.T) {
	store := newFakeOutbox()
	userID := uuid.New()
	resolver := &fakeResolver{contacts: map[uuid.UUID]users.Contact{
		userID: {Email: "asha@example.com", FullName: "Asha"},
	}}
	m := newTestModule(t, store, &fakeSender{}, resolver, "")

	groupID := uuid.New()
	err := m.Handle(context.Background(), events.InquiryQuoted{
		BaseEvent:        events.NewBaseEvent(),
		InquiryGroupID:   groupID,
		UserID:           userID,
		TotalQuotedPrice: decimal.RequireFromString("1200.5"),
		QuoteValidUntil:  "2026-09-07T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected one outbox insert, got %d", len(store.inserted))
	}
	params := store.inserted[0]
	if params.Kind != "email" || params.Template != "inquiry_quoted" {
		t.Fatalf("unexpected insert params: %+v", params)
	}
	payload := emailPayload(t, params)
	if payload.ToEmail != "asha@example.com" {
		t.Fatalf("unexpected recipient: %s", payload.ToEmail)
	}
	if payload.Subject != "Your quote is ready" {
		t.Fatalf("unexpected subject: %q", payload.Subject)
	}
	if !strings.Contains(payload.BodyHTML, "1200.50") {
		t.Fatalf("body missing quoted price: %s", payload.BodyHTML)
	}
	if !strings.Contains(payload.BodyHTML, "https://app.example.com/inquiries/"+groupID.String()) {
		t.Fatalf("body missing inquiry link: %s", payload.BodyHTML)
	}
}

func TestHandleQuoteAccepted_RequiresAdminEmail(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(t, store, &fakeSender{}, &fakeResolver{}, "")

	evt := events.QuoteAccepted{
		BaseEvent:      events.NewBaseEvent(),
		InquiryGroupID: uuid.New(),
		OrderID:        uuid.New(),
		TotalAmount:    decimal.RequireFromString("900"),
	}
	if err := m.Handle(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no insert without admin email, got %d", len(store.inserted))
	}

	m = newTestModule(t, store, &fakeSender{}, &fakeResolver{}, "owner@example.com")
	if err := m.Handle(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(store.inserted))
	}
	payload := emailPayload(t, store.inserted[0])
	if payload.ToEmail != "owner@example.com" {
		t.Fatalf("unexpected recipient: %s", payload.ToEmail)
	}
	if !strings.Contains(payload.BodyHTML, "900.00") {
		t.Fatalf("body missing order total: %s", payload.BodyHTML)
	}
}

func TestHandleInquiryMessageAdded_RoutesByRole(t *testing.T) {
	store := newFakeOutbox()
	ownerID := uuid.New()
	resolver := &fakeResolver{contacts: map[uuid.UUID]users.Contact{
		ownerID: {Email: "owner@customer.com", FullName: "Ravi"},
	}}
	m := newTestModule(t, store, &fakeSender{}, resolver, "shop@example.com")

	adminReply := events.InquiryMessageAdded{
		BaseEvent:      events.NewBaseEvent(),
		InquiryGroupID: uuid.New(),
		SenderID:       uuid.New(),
		SenderRole:     "admin",
		OwnerID:        ownerID,
	}
	if err := m.Handle(context.Background(), adminReply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := emailPayload(t, store.inserted[0]); got.ToEmail != "owner@customer.com" {
		t.Fatalf("admin reply should go to the customer, got %s", got.ToEmail)
	}

	customerMessage := adminReply
	customerMessage.SenderRole = "customer"
	customerMessage.SenderID = ownerID
	if err := m.Handle(context.Background(), customerMessage); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := emailPayload(t, store.inserted[1]); got.ToEmail != "shop@example.com" {
		t.Fatalf("customer message should go to the admin, got %s", got.ToEmail)
	}
}

func TestHandlePaymentRecorded_FullyPaidVariant(t *testing.T) {
	store := newFakeOutbox()
	userID := uuid.New()
	resolver := &fakeResolver{contacts: map[uuid.UUID]users.Contact{
		userID: {Email: "asha@example.com", FullName: "Asha"},
	}}
	m := newTestModule(t, store, &fakeSender{}, resolver, "")

	err := m.Handle(context.Background(), events.PaymentRecorded{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     uuid.New(),
		UserID:      userID,
		Amount:      decimal.RequireFromString("1000"),
		PaymentMode: "UPI",
		OrderStatus: "PAID",
		AmountDue:   decimal.Zero,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := emailPayload(t, store.inserted[0])
	if !strings.Contains(payload.BodyHTML, "fully paid") {
		t.Fatalf("expected fully paid wording: %s", payload.BodyHTML)
	}
}

func TestHandleInquiryCreated_SkipsUnknownRecipient(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(t, store, &fakeSender{}, &fakeResolver{}, "")

	err := m.Handle(context.Background(), events.InquiryCreated{
		BaseEvent:      events.NewBaseEvent(),
		InquiryGroupID: uuid.New(),
		UserID:         uuid.New(),
		ItemCount:      2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("expected no insert for unknown recipient, got %d", len(store.inserted))
	}
}

func pendingEmailRecord(t *testing.T, attempts int) outbox.Record {
	t.Helper()
	payload, err := json.Marshal(emailSendPayload{
		ToEmail:  "asha@example.com",
		Subject:  "Hello",
		BodyHTML: "<p>Hi</p>",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.Record{
		ID:       uuid.New(),
		Kind:     "email",
		Template: "inquiry_quoted",
		Payload:  payload,
		Status:   outbox.StatusEnqueued,
		Attempts: attempts,
	}
}

func TestOutboxDue_DeliversAndMarksSucceeded(t *testing.T) {
	store := newFakeOutbox()
	rec := pendingEmailRecord(t, 0)
	store.records[rec.ID] = rec
	sender := &fakeSender{}
	m := newTestModule(t, store, sender, &fakeResolver{}, "")

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.processing) != 1 || len(store.succeeded) != 1 {
		t.Fatalf("expected processing and succeeded marks, got %d/%d", len(store.processing), len(store.succeeded))
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "asha@example.com" || sender.sent[0].subject != "Hello" {
		t.Fatalf("unexpected delivery: %+v", sender.sent)
	}
}

func TestOutboxDue_SkipsAlreadyDelivered(t *testing.T) {
	store := newFakeOutbox()
	rec := pendingEmailRecord(t, 1)
	rec.Status = outbox.StatusSucceeded
	store.records[rec.ID] = rec
	sender := &fakeSender{}
	m := newTestModule(t, store, sender, &fakeResolver{}, "")

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 || len(store.processing) != 0 {
		t.Fatal("delivered record should not be reprocessed")
	}
}

func TestOutboxDue_SchedulesRetryOnFailure(t *testing.T) {
	store := newFakeOutbox()
	rec := pendingEmailRecord(t, 0)
	store.records[rec.ID] = rec
	sender := &fakeSender{err: context.DeadlineExceeded}
	m := newTestModule(t, store, sender, &fakeResolver{}, "")

	before := time.Now().UTC()
	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runAt, ok := store.retries[rec.ID]
	if !ok {
		t.Fatal("expected a retry to be scheduled")
	}
	if runAt.Before(before.Add(outboxRetryBaseDelay - time.Second)) {
		t.Fatalf("retry scheduled too early: %s", runAt)
	}
	if _, failed := store.failed[rec.ID]; failed {
		t.Fatal("first failure should not mark the record failed")
	}
}

func TestOutboxDue_MarksFailedAfterMaxAttempts(t *testing.T) {
	store := newFakeOutbox()
	rec := pendingEmailRecord(t, maxOutboxRetryAttempts-1)
	store.records[rec.ID] = rec
	sender := &fakeSender{err: context.DeadlineExceeded}
	m := newTestModule(t, store, sender, &fakeResolver{}, "")

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, failed := store.failed[rec.ID]; !failed {
		t.Fatal("expected record to be marked failed")
	}
	if _, retried := store.retries[rec.ID]; retried {
		t.Fatal("exhausted record should not be retried")
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	cases := map[int]time.Duration{
		0: time.Minute,
		1: time.Minute,
		2: 2 * time.Minute,
		3: 4 * time.Minute,
		5: 16 * time.Minute,
		9: 60 * time.Minute,
	}
	for attempt, want := range cases {
		if got := computeOutboxRetryDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}

func TestLoadCatalog_AllTemplatesRender(t *testing.T) {
	catalog, err := LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	for _, name := range []string{
		"inquiry_received", "inquiry_quoted", "quote_expiring", "quote_accepted_admin",
		"quote_rejected_admin", "message_received", "message_received_admin",
		"order_created", "payment_recorded",
	} {
		subject, body, err := catalog.Render(name, map[string]any{
			"customerName": "Asha", "itemCount": 1, "inquiryUrl": "u",
			"totalQuotedPrice": "1.00", "quoteValidUntil": "v", "requote": false,
			"inquiryGroupId": "g", "orderId": "o", "totalAmount": "2.00",
			"orderUrl": "u", "amount": "1.00", "paymentMode": "UPI",
			"fullyPaid": false, "amountDue": "1.00",
		})
		if err != nil {
			t.Fatalf("render %s: %v", name, err)
		}
		if subject == "" || body == "" {
			t.Fatalf("template %s rendered empty output", name)
		}
	}

	if _, _, err := catalog.Render("missing", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
