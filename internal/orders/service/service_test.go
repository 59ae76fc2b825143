package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"printstudio_backend/internal/events"
	"printstudio_backend/internal/orders/repository"
	"printstudio_backend/internal/orders/transport"
	"printstudio_backend/platform/apperr"
	"printstudio_backend/platform/logger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeStore struct {
	Store

	order    repository.Order
	recorded repository.RecordPaymentParams
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Order, error) {
	if id != f.order.ID {
		return repository.Order{}, apperr.NotFound("order not found")
	}
	return f.order, nil
}

func (f *fakeStore) RecordPayment(_ context.Context, params repository.RecordPaymentParams) (repository.Order, repository.Transaction, error) {
	newPaid, newStatus, err := repository.ApplyPayment(f.order, params.Amount)
	if err != nil {
		return repository.Order{}, repository.Transaction{}, err
	}
	f.recorded = params
	o := f.order
	o.AmountPaid = newPaid
	o.Status = newStatus
	f.order = o
	return o, repository.Transaction{
		ID:          uuid.New(),
		OrderID:     o.ID,
		Amount:      params.Amount,
		PaymentMode: params.PaymentMode,
	}, nil
}

type staticPaymentConfig struct {
	vpa   string
	payee string
}

func (c staticPaymentConfig) GetUPIVPA() string       { return c.vpa }
func (c staticPaymentConfig) GetUPIPayeeName() string { return c.payee }

func testOrder() repository.Order {
	return repository.Order{
		ID:             uuid.New(),
		InquiryGroupID: uuid.New(),
		UserID:         uuid.New(),
		TotalAmount:    dec("1000"),
		AmountPaid:     dec("0"),
		Status:         repository.StatusWaitingPayment,
	}
}

func newTestService(store Store, bus events.Bus) *Service {
	cfg := staticPaymentConfig{vpa: "shop@upi", payee: "Print Studio"}
	return New(store, bus, cfg, logger.New("test"))
}

func TestRecordPayment_RollsBalanceAndPublishes(t *testing.T) {
	store := &fakeStore{order: testOrder()}
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	result, err := svc.RecordPayment(context.Background(), store.order.ID, transport.RecordPaymentRequest{
		Amount:      dec("400"),
		PaymentMode: "UPI",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Status != repository.StatusPartiallyPaid {
		t.Fatalf("expected partially paid, got %s", result.Order.Status)
	}
	if !result.Order.AmountDue.Equal(dec("600")) {
		t.Fatalf("expected due 600, got %s", result.Order.AmountDue)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.PaymentRecorded)
	if !ok {
		t.Fatalf("expected PaymentRecorded, got %T", bus.published[0])
	}
	if !evt.AmountDue.Equal(dec("600")) || evt.OrderStatus != repository.StatusPartiallyPaid {
		t.Fatalf("unexpected event payload: %+v", evt)
	}
}

func TestRecordPayment_FullAmountMarksPaid(t *testing.T) {
	store := &fakeStore{order: testOrder()}
	svc := newTestService(store, &recordingBus{})

	result, err := svc.RecordPayment(context.Background(), store.order.ID, transport.RecordPaymentRequest{
		Amount:      dec("1000"),
		PaymentMode: "CASH",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Status != repository.StatusPaid {
		t.Fatalf("expected paid, got %s", result.Order.Status)
	}
	if !result.Order.AmountDue.IsZero() {
		t.Fatalf("expected zero due, got %s", result.Order.AmountDue)
	}
}

func TestRecordPayment_RejectsOverpaymentAndNonPositive(t *testing.T) {
	store := &fakeStore{order: testOrder()}
	svc := newTestService(store, &recordingBus{})

	if _, err := svc.RecordPayment(context.Background(), store.order.ID, transport.RecordPaymentRequest{
		Amount:      dec("1500"),
		PaymentMode: "UPI",
	}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for overpayment, got %v", err)
	}

	if _, err := svc.RecordPayment(context.Background(), store.order.ID, transport.RecordPaymentRequest{
		Amount:      dec("0"),
		PaymentMode: "UPI",
	}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestRecordPayment_RepeatedFullPaymentCannotOverpay(t *testing.T) {
	store := &fakeStore{order: testOrder()}
	svc := newTestService(store, &recordingBus{})

	pay := transport.RecordPaymentRequest{Amount: dec("1000"), PaymentMode: "UPI"}
	if _, err := svc.RecordPayment(context.Background(), store.order.ID, pay); err != nil {
		t.Fatalf("unexpected error on first payment: %v", err)
	}

	// A second full payment sees the rolled balance at record time and must
	// be rejected, even though both requests carried a valid amount.
	if _, err := svc.RecordPayment(context.Background(), store.order.ID, pay); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for second payment, got %v", err)
	}
	if store.order.AmountPaid.GreaterThan(store.order.TotalAmount) {
		t.Fatalf("order overpaid: amount_paid=%s total=%s", store.order.AmountPaid, store.order.TotalAmount)
	}
}

func TestPaymentQR_OwnerOnlyAndPayloadFormat(t *testing.T) {
	order := testOrder()
	order.AmountPaid = dec("250")
	store := &fakeStore{order: order}
	svc := newTestService(store, &recordingBus{})

	png, err := svc.PaymentQR(context.Background(), order.UserID, false, order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("expected PNG bytes")
	}

	stranger := uuid.New()
	if _, err := svc.PaymentQR(context.Background(), stranger, false, order.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	// Admins may fetch the QR for any order.
	if _, err := svc.PaymentQR(context.Background(), stranger, true, order.ID); err != nil {
		t.Fatalf("unexpected error for admin: %v", err)
	}
}

func TestPaymentQR_RejectsFullyPaidOrder(t *testing.T) {
	order := testOrder()
	order.AmountPaid = order.TotalAmount
	order.Status = repository.StatusPaid
	store := &fakeStore{order: order}
	svc := newTestService(store, &recordingBus{})

	if _, err := svc.PaymentQR(context.Background(), order.UserID, false, order.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for paid order, got %v", err)
	}
}

func TestAmountDue_NeverNegative(t *testing.T) {
	o := repository.Order{TotalAmount: dec("100"), AmountPaid: dec("150")}
	if !o.AmountDue().IsZero() {
		t.Fatalf("expected zero due, got %s", o.AmountDue())
	}
}
