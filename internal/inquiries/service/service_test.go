package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	catalogrepo "printstudio_backend/internal/catalog/repository"
	"printstudio_backend/internal/events"
	"printstudio_backend/internal/inquiries/domain"
	"printstudio_backend/internal/inquiries/repository"
	"printstudio_backend/internal/inquiries/transport"
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

func (b *recordingBus) names() []string {
	var names []string
	for _, e := range b.published {
		names = append(names, e.EventName())
	}
	return names
}

type fakeCatalog struct {
	template catalogrepo.ProductTemplate
	variant  catalogrepo.ServiceVariant
}

func (f *fakeCatalog) GetTemplateByID(_ context.Context, id uuid.UUID) (catalogrepo.ProductTemplate, error) {
	if id != f.template.ID {
		return catalogrepo.ProductTemplate{}, apperr.NotFound("product template not found")
	}
	return f.template, nil
}

func (f *fakeCatalog) GetVariantByID(_ context.Context, serviceID, variantID uuid.UUID) (catalogrepo.ServiceVariant, error) {
	if serviceID != f.variant.ServiceID || variantID != f.variant.ID {
		return catalogrepo.ServiceVariant{}, apperr.NotFound("service variant not found")
	}
	return f.variant, nil
}

type fakeRepo struct {
	repository.Repository

	created      repository.CreateGroupParams
	group        repository.InquiryGroup
	acceptResult repository.AcceptResult
	acceptErr    error
	message      repository.InquiryMessage
	quoteParams  repository.QuoteParams
}

func (f *fakeRepo) CreateGroup(_ context.Context, params repository.CreateGroupParams) (repository.InquiryGroup, error) {
	f.created = params
	g := repository.InquiryGroup{ID: uuid.New(), UserID: params.UserID, Status: domain.StatusPending}
	for _, item := range params.Items {
		g.Items = append(g.Items, repository.InquiryItem{
			ID:                  uuid.New(),
			GroupID:             g.ID,
			ProductTemplateID:   item.ProductTemplateID,
			ServiceID:           item.ServiceID,
			VariantID:           item.VariantID,
			Quantity:            item.Quantity,
			Selections:          item.Selections,
			EstimatedUnitPrice:  item.EstimatedUnitPrice,
			EstimatedTotalPrice: item.EstimatedTotalPrice,
		})
	}
	return g, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.InquiryGroup, error) {
	if id != f.group.ID {
		return repository.InquiryGroup{}, apperr.NotFound("inquiry not found")
	}
	return f.group, nil
}

func (f *fakeRepo) Accept(_ context.Context, params repository.RespondParams, _ repository.OrderConverter) (repository.AcceptResult, error) {
	if f.acceptErr != nil {
		return repository.AcceptResult{}, f.acceptErr
	}
	return f.acceptResult, nil
}

func (f *fakeRepo) Reject(_ context.Context, params repository.RespondParams) (repository.InquiryGroup, error) {
	g := f.group
	g.Status = domain.StatusRejected
	return g, nil
}

func (f *fakeRepo) AddMessage(_ context.Context, params repository.AddMessageParams) (repository.InquiryMessage, error) {
	f.message = repository.InquiryMessage{
		ID:        1,
		GroupID:   params.GroupID,
		SenderID:  params.SenderID,
		Content:   params.Content,
		CreatedAt: time.Now(),
	}
	return f.message, nil
}

func (f *fakeRepo) Quote(_ context.Context, params repository.QuoteParams) (repository.InquiryGroup, error) {
	f.quoteParams = params
	g := f.group
	g.Status = domain.StatusQuoted
	g.TotalQuotedPrice = &params.TotalQuotedPrice
	now := time.Now()
	until := now.AddDate(0, 0, params.ValidForDays)
	g.QuotedAt = &now
	g.QuoteValidUntil = &until
	return g, nil
}

type noopConverter struct{}

func (noopConverter) InsertForInquiry(_ context.Context, _ pgx.Tx, params repository.ConvertOrderParams) (repository.ConvertedOrder, error) {
	return repository.ConvertedOrder{}, nil
}

func (noopConverter) GetForInquiry(_ context.Context, _ pgx.Tx, _ uuid.UUID) (repository.ConvertedOrder, error) {
	return repository.ConvertedOrder{}, nil
}

type staticQuoteConfig struct{ days int }

func (c staticQuoteConfig) GetQuoteValidityDays() int { return c.days }

func newTestService(repo repository.Repository, catalog Catalog, bus events.Bus) *Service {
	return New(repo, catalog, noopConverter{}, bus, staticQuoteConfig{days: 7}, logger.New("test"))
}

func TestCreate_ValidatesItemsAndStoresEstimates(t *testing.T) {
	catalog := &fakeCatalog{template: catalogrepo.ProductTemplate{
		ID:              uuid.New(),
		BasePrice:       dec("100"),
		MinimumQuantity: 1,
		IsActive:        true,
	}}
	repo := &fakeRepo{}
	bus := &recordingBus{}
	svc := newTestService(repo, catalog, bus)
	userID := uuid.New()

	result, err := svc.Create(context.Background(), userID, transport.CreateInquiryRequest{
		Items: []transport.CreateItemRequest{{
			ProductTemplateID: &catalog.template.ID,
			Quantity:          5,
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", result.Status)
	}
	if !repo.created.Items[0].EstimatedTotalPrice.Equal(dec("500")) {
		t.Fatalf("expected stored estimate 500, got %s", repo.created.Items[0].EstimatedTotalPrice)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "inquiries.inquiry.created" {
		t.Fatalf("expected InquiryCreated event, got %v", names)
	}
}

func TestCreate_RejectsAmbiguousItemFamilies(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := newTestService(&fakeRepo{}, catalog, &recordingBus{})

	templateID := uuid.New()
	serviceID := uuid.New()
	cases := []transport.CreateItemRequest{
		{Quantity: 1},
		{ProductTemplateID: &templateID, ServiceID: &serviceID, Quantity: 1},
	}
	for i, item := range cases {
		_, err := svc.Create(context.Background(), uuid.New(), transport.CreateInquiryRequest{
			Items: []transport.CreateItemRequest{item},
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreate_RejectsQuantityBelowMinimum(t *testing.T) {
	catalog := &fakeCatalog{template: catalogrepo.ProductTemplate{
		ID:              uuid.New(),
		BasePrice:       dec("100"),
		MinimumQuantity: 50,
		IsActive:        true,
	}}
	svc := newTestService(&fakeRepo{}, catalog, &recordingBus{})

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateInquiryRequest{
		Items: []transport.CreateItemRequest{{
			ProductTemplateID: &catalog.template.ID,
			Quantity:          10,
		}},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRespond_AcceptReturnsOrderAndPublishes(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	orderID := uuid.New()
	repo := &fakeRepo{acceptResult: repository.AcceptResult{
		Group: repository.InquiryGroup{ID: groupID, UserID: userID, Status: domain.StatusAccepted},
		Order: repository.ConvertedOrder{
			ID:             orderID,
			InquiryGroupID: groupID,
			UserID:         userID,
			TotalAmount:    dec("1500"),
			Status:         "WAITING_PAYMENT",
		},
	}}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeCatalog{}, bus)

	result, err := svc.Respond(context.Background(), userID, groupID, transport.RespondRequest{
		Status:   domain.StatusAccepted,
		QuotedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order == nil || result.Order.ID != orderID {
		t.Fatalf("expected order %s in response, got %+v", orderID, result.Order)
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "inquiries.quote.accepted" || names[1] != "orders.order.created" {
		t.Fatalf("expected accept and order events, got %v", names)
	}
}

func TestRespond_RepeatAcceptIsIdempotent(t *testing.T) {
	userID := uuid.New()
	groupID := uuid.New()
	repo := &fakeRepo{acceptResult: repository.AcceptResult{
		Group:           repository.InquiryGroup{ID: groupID, UserID: userID, Status: domain.StatusAccepted},
		Order:           repository.ConvertedOrder{ID: uuid.New(), InquiryGroupID: groupID},
		AlreadyAccepted: true,
	}}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeCatalog{}, bus)

	result, err := svc.Respond(context.Background(), userID, groupID, transport.RespondRequest{
		Status:   domain.StatusAccepted,
		QuotedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order == nil {
		t.Fatal("expected the existing order in the response")
	}
	if len(bus.published) != 0 {
		t.Fatalf("repeat accept must not publish events, got %v", bus.names())
	}
}

func TestRespond_RejectPublishesQuoteRejected(t *testing.T) {
	userID := uuid.New()
	group := repository.InquiryGroup{ID: uuid.New(), UserID: userID, Status: domain.StatusQuoted}
	bus := &recordingBus{}
	svc := newTestService(&fakeRepo{group: group}, &fakeCatalog{}, bus)

	result, err := svc.Respond(context.Background(), userID, group.ID, transport.RespondRequest{
		Status:   domain.StatusRejected,
		QuotedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Inquiry.Status != domain.StatusRejected {
		t.Fatalf("expected rejected status, got %s", result.Inquiry.Status)
	}
	if names := bus.names(); len(names) != 1 || names[0] != "inquiries.quote.rejected" {
		t.Fatalf("expected QuoteRejected event, got %v", names)
	}
}

func TestAddMessage_TrimsAndDerivesRole(t *testing.T) {
	owner := uuid.New()
	group := repository.InquiryGroup{ID: uuid.New(), UserID: owner, Status: domain.StatusPending}
	repo := &fakeRepo{group: group}
	svc := newTestService(repo, &fakeCatalog{}, &recordingBus{})

	msg, err := svc.AddMessage(context.Background(), owner, false, group.ID, transport.AddMessageRequest{
		Content: "  hello there  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Content != "hello there" {
		t.Fatalf("expected trimmed content, got %q", msg.Content)
	}
	if msg.Role != RoleCustomer {
		t.Fatalf("expected customer role, got %s", msg.Role)
	}

	adminID := uuid.New()
	msg, err = svc.AddMessage(context.Background(), adminID, true, group.ID, transport.AddMessageRequest{
		Content: "we can do that",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Role != RoleAdmin {
		t.Fatalf("expected admin role, got %s", msg.Role)
	}
}

func TestAddMessage_RejectsEmptyContentAndStrangers(t *testing.T) {
	owner := uuid.New()
	group := repository.InquiryGroup{ID: uuid.New(), UserID: owner, Status: domain.StatusPending}
	svc := newTestService(&fakeRepo{group: group}, &fakeCatalog{}, &recordingBus{})

	if _, err := svc.AddMessage(context.Background(), owner, false, group.ID, transport.AddMessageRequest{Content: "   "}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for blank content, got %v", err)
	}

	stranger := uuid.New()
	if _, err := svc.AddMessage(context.Background(), stranger, false, group.ID, transport.AddMessageRequest{Content: "hi"}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}
}

func TestQuote_DefaultsValidityAndFlagsRequote(t *testing.T) {
	group := repository.InquiryGroup{ID: uuid.New(), UserID: uuid.New(), Status: domain.StatusQuoted}
	repo := &fakeRepo{group: group}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeCatalog{}, bus)

	_, err := svc.Quote(context.Background(), group.ID, transport.QuoteRequest{
		TotalQuotedPrice: dec("2500"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.quoteParams.ValidForDays != 7 {
		t.Fatalf("expected default validity 7 days, got %d", repo.quoteParams.ValidForDays)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one event, got %v", bus.names())
	}
	quoted, ok := bus.published[0].(events.InquiryQuoted)
	if !ok {
		t.Fatalf("expected InquiryQuoted, got %T", bus.published[0])
	}
	if !quoted.Requote {
		t.Fatal("expected requote flag when the group was already quoted")
	}
}

func TestQuote_RejectsNegativePrice(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeCatalog{}, &recordingBus{})

	_, err := svc.Quote(context.Background(), uuid.New(), transport.QuoteRequest{
		TotalQuotedPrice: dec("-1"),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
