// Package service contains the inquiry lifecycle: creation, quoting, the
// customer decision with order conversion, and the conversation thread.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogrepo "printstudio_backend/internal/catalog/repository"
	"printstudio_backend/internal/events"
	"printstudio_backend/internal/inquiries/domain"
	"printstudio_backend/internal/inquiries/repository"
	"printstudio_backend/internal/inquiries/transport"
	"printstudio_backend/internal/pricing"
	"printstudio_backend/platform/apperr"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"
)

// Sender roles derived from the group owner, never stored.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// quoteExpiryReminderLead is how long before a quote expires the customer
// gets a reminder email.
const quoteExpiryReminderLead = 24 * time.Hour

// Catalog is the narrow read surface the inquiry flow needs from the catalog
// module to validate and price line items.
type Catalog interface {
	GetTemplateByID(ctx context.Context, id uuid.UUID) (catalogrepo.ProductTemplate, error)
	GetVariantByID(ctx context.Context, serviceID, variantID uuid.UUID) (catalogrepo.ServiceVariant, error)
}

// ReminderScheduler schedules a quote expiry reminder. The quotedAt stamp
// lets the worker drop reminders for quotes revised after scheduling.
type ReminderScheduler interface {
	ScheduleQuoteExpiryReminder(ctx context.Context, inquiryGroupID uuid.UUID, quotedAt, runAt time.Time) error
}

// Service implements inquiry use cases.
type Service struct {
	repo      repository.Repository
	catalog   Catalog
	converter repository.OrderConverter
	eventBus  events.Bus
	quoteCfg  config.QuoteConfig
	reminders ReminderScheduler
	log       *logger.Logger
}

// New creates a new inquiries service.
func New(
	repo repository.Repository,
	catalog Catalog,
	converter repository.OrderConverter,
	eventBus events.Bus,
	quoteCfg config.QuoteConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		converter: converter,
		eventBus:  eventBus,
		quoteCfg:  quoteCfg,
		log:       log,
	}
}

// Create validates every line item against the catalog, stores the inquiry
// with server-computed estimates, and publishes InquiryCreated.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req transport.CreateInquiryRequest) (transport.InquiryResponse, error) {
	items := make([]repository.CreateItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		params, err := s.buildItem(ctx, item)
		if err != nil {
			return transport.InquiryResponse{}, prefixItemError(i, err)
		}
		items = append(items, params)
	}

	group, err := s.repo.CreateGroup(ctx, repository.CreateGroupParams{UserID: userID, Items: items})
	if err != nil {
		return transport.InquiryResponse{}, err
	}

	s.eventBus.Publish(ctx, events.InquiryCreated{
		BaseEvent:      events.NewBaseEvent(),
		InquiryGroupID: group.ID,
		UserID:         group.UserID,
		ItemCount:      len(group.Items),
	})

	return toInquiryResponse(group, true), nil
}

func (s *Service) buildItem(ctx context.Context, item transport.CreateItemRequest) (repository.CreateItemParams, error) {
	hasProduct := item.ProductTemplateID != nil
	hasService := item.ServiceID != nil || item.VariantID != nil
	if hasProduct == hasService {
		return repository.CreateItemParams{}, apperr.Validation("exactly one of productTemplateId or serviceId/variantId is required")
	}

	var breakdown pricing.Breakdown

	if hasProduct {
		tpl, err := s.catalog.GetTemplateByID(ctx, *item.ProductTemplateID)
		if err != nil {
			return repository.CreateItemParams{}, err
		}
		if !tpl.IsActive {
			return repository.CreateItemParams{}, apperr.NotFound("product template not found")
		}
		if item.Quantity < tpl.MinimumQuantity {
			return repository.CreateItemParams{}, apperr.Validation("quantity is below the product minimum").
				WithDetails(map[string]int{"minimumQuantity": tpl.MinimumQuantity})
		}

		schema, err := pricing.ParseSchema(tpl.ConfigSchema)
		if err != nil {
			return repository.CreateItemParams{}, err
		}
		breakdown, err = pricing.ComputePrice(schema, item.Selections, item.Quantity, tpl.BasePrice)
		if err != nil {
			return repository.CreateItemParams{}, err
		}
	} else {
		if item.ServiceID == nil || item.VariantID == nil {
			return repository.CreateItemParams{}, apperr.Validation("serviceId and variantId are both required for service items")
		}
		variant, err := s.catalog.GetVariantByID(ctx, *item.ServiceID, *item.VariantID)
		if err != nil {
			return repository.CreateItemParams{}, err
		}
		if !variant.IsActive {
			return repository.CreateItemParams{}, apperr.NotFound("service variant not found")
		}
		if item.Quantity < variant.MinimumQuantity {
			return repository.CreateItemParams{}, apperr.Validation("quantity is below the variant minimum").
				WithDetails(map[string]int{"minimumQuantity": variant.MinimumQuantity})
		}

		breakdown, err = pricing.ComputeServicePrice(variant.BasePrice, variant.PricePerUnit, item.Quantity)
		if err != nil {
			return repository.CreateItemParams{}, err
		}
	}

	selections := json.RawMessage(`{}`)
	if len(item.Selections) > 0 {
		raw, err := json.Marshal(item.Selections)
		if err != nil {
			return repository.CreateItemParams{}, apperr.Wrap(apperr.KindValidation, "invalid selections", err)
		}
		selections = raw
	}

	return repository.CreateItemParams{
		ProductTemplateID:   item.ProductTemplateID,
		ServiceID:           item.ServiceID,
		VariantID:           item.VariantID,
		Quantity:            item.Quantity,
		Selections:          selections,
		Notes:               item.Notes,
		Images:              item.Images,
		EstimatedUnitPrice:  breakdown.UnitPrice,
		EstimatedTotalPrice: breakdown.TotalPrice,
	}, nil
}

// ListMine returns the caller's inquiries, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) (transport.InquiryListResponse, error) {
	groups, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return transport.InquiryListResponse{}, err
	}

	items := make([]transport.InquiryResponse, 0, len(groups))
	for _, g := range groups {
		items = append(items, toInquiryResponse(g, false))
	}
	return transport.InquiryListResponse{Items: items, Total: len(items)}, nil
}

// GetMine returns one of the caller's inquiries with items and messages.
func (s *Service) GetMine(ctx context.Context, userID, id uuid.UUID) (transport.InquiryResponse, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.InquiryResponse{}, err
	}
	if group.UserID != userID {
		return transport.InquiryResponse{}, apperr.Forbidden("you do not have access to this inquiry")
	}
	return toInquiryResponse(group, true), nil
}

// DeleteMine withdraws a pending inquiry owned by the caller.
func (s *Service) DeleteMine(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteOwn(ctx, id, userID)
}

// Respond processes the customer's accept or reject decision. An accept
// converts the inquiry to an order atomically and returns it; repeating an
// accept returns the existing order.
func (s *Service) Respond(ctx context.Context, userID, id uuid.UUID, req transport.RespondRequest) (transport.RespondResponse, error) {
	params := repository.RespondParams{GroupID: id, UserID: userID, QuotedAt: req.QuotedAt}

	if req.Status == domain.StatusRejected {
		group, err := s.repo.Reject(ctx, params)
		if err != nil {
			return transport.RespondResponse{}, err
		}

		s.eventBus.Publish(ctx, events.QuoteRejected{
			BaseEvent:      events.NewBaseEvent(),
			InquiryGroupID: group.ID,
			UserID:         group.UserID,
		})
		return transport.RespondResponse{Inquiry: toInquiryResponse(group, false)}, nil
	}

	result, err := s.repo.Accept(ctx, params, s.converter)
	if err != nil {
		return transport.RespondResponse{}, err
	}

	if !result.AlreadyAccepted {
		s.eventBus.Publish(ctx, events.QuoteAccepted{
			BaseEvent:      events.NewBaseEvent(),
			InquiryGroupID: result.Group.ID,
			UserID:         result.Group.UserID,
			OrderID:        result.Order.ID,
			TotalAmount:    result.Order.TotalAmount,
		})
		s.eventBus.Publish(ctx, events.OrderCreated{
			BaseEvent:      events.NewBaseEvent(),
			OrderID:        result.Order.ID,
			InquiryGroupID: result.Group.ID,
			UserID:         result.Group.UserID,
			TotalAmount:    result.Order.TotalAmount,
		})
	}

	order := toOrderSummary(result.Order)
	return transport.RespondResponse{
		Inquiry: toInquiryResponse(result.Group, false),
		Order:   &order,
	}, nil
}

// AddMessage appends a thread message after checking the caller can see the
// inquiry. Content must be non-empty after trimming.
func (s *Service) AddMessage(ctx context.Context, senderID uuid.UUID, isAdmin bool, groupID uuid.UUID, req transport.AddMessageRequest) (transport.MessageResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return transport.MessageResponse{}, apperr.Validation("message content cannot be empty")
	}

	group, err := s.repo.GetByID(ctx, groupID)
	if err != nil {
		return transport.MessageResponse{}, err
	}
	if !isAdmin && group.UserID != senderID {
		return transport.MessageResponse{}, apperr.Forbidden("you do not have access to this inquiry")
	}

	msg, err := s.repo.AddMessage(ctx, repository.AddMessageParams{
		GroupID:  groupID,
		SenderID: senderID,
		Content:  content,
		FileURLs: req.FileURLs,
	})
	if err != nil {
		return transport.MessageResponse{}, err
	}

	role := deriveRole(msg.SenderID, group.UserID)
	s.eventBus.Publish(ctx, events.InquiryMessageAdded{
		BaseEvent:      events.NewBaseEvent(),
		InquiryGroupID: groupID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		SenderRole:     role,
		OwnerID:        group.UserID,
	})

	return toMessageResponse(msg, group.UserID), nil
}

// List returns the paginated admin view with an optional status filter.
func (s *Service) List(ctx context.Context, req transport.ListInquiriesRequest) (transport.AdminListResponse, error) {
	if req.Status != nil && !domain.IsKnownStatus(*req.Status) {
		return transport.AdminListResponse{}, apperr.Validation("unknown inquiry status")
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	result, err := s.repo.List(ctx, repository.ListParams{Status: req.Status, Page: page, PageSize: pageSize})
	if err != nil {
		return transport.AdminListResponse{}, err
	}

	items := make([]transport.InquiryResponse, 0, len(result.Items))
	for _, g := range result.Items {
		items = append(items, toInquiryResponse(g, false))
	}
	return transport.AdminListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// Get returns any inquiry with items and messages (admin).
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.InquiryResponse, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.InquiryResponse{}, err
	}
	return toInquiryResponse(group, true), nil
}

// Quote issues or re-issues a quote and publishes InquiryQuoted.
func (s *Service) Quote(ctx context.Context, id uuid.UUID, req transport.QuoteRequest) (transport.InquiryResponse, error) {
	if req.TotalQuotedPrice.IsNegative() {
		return transport.InquiryResponse{}, apperr.Validation("quoted price cannot be negative")
	}

	validDays := req.ValidForDays
	if validDays <= 0 {
		validDays = s.quoteCfg.GetQuoteValidityDays()
	}

	prices, err := parseLineItemPrices(req.LineItemPrices)
	if err != nil {
		return transport.InquiryResponse{}, err
	}

	wasQuoted := false
	if current, err := s.repo.GetByID(ctx, id); err == nil {
		wasQuoted = current.Status == domain.StatusQuoted
	}

	group, err := s.repo.Quote(ctx, repository.QuoteParams{
		GroupID:          id,
		TotalQuotedPrice: req.TotalQuotedPrice,
		AdminNotes:       req.AdminNotes,
		ValidForDays:     validDays,
		LineItemPrices:   prices,
	})
	if err != nil {
		return transport.InquiryResponse{}, err
	}

	validUntil := ""
	if group.QuoteValidUntil != nil {
		validUntil = group.QuoteValidUntil.Format(time.RFC3339)
	}
	s.eventBus.Publish(ctx, events.InquiryQuoted{
		BaseEvent:        events.NewBaseEvent(),
		InquiryGroupID:   group.ID,
		UserID:           group.UserID,
		TotalQuotedPrice: req.TotalQuotedPrice,
		QuoteValidUntil:  validUntil,
		Requote:          wasQuoted,
	})

	s.scheduleExpiryReminder(ctx, group)

	return toInquiryResponse(group, false), nil
}

// scheduleExpiryReminder is best effort: a quote works without it, so a
// scheduling failure only logs.
func (s *Service) scheduleExpiryReminder(ctx context.Context, group repository.InquiryGroup) {
	if s.reminders == nil || group.QuoteValidUntil == nil || group.QuotedAt == nil {
		return
	}
	runAt := group.QuoteValidUntil.Add(-quoteExpiryReminderLead)
	if !runAt.After(time.Now()) {
		return
	}
	if err := s.reminders.ScheduleQuoteExpiryReminder(ctx, group.ID, *group.QuotedAt, runAt); err != nil {
		s.log.Warn("failed to schedule quote expiry reminder", "inquiryGroupId", group.ID, "error", err)
	}
}

// SetReminderScheduler injects the optional expiry reminder scheduler.
func (s *Service) SetReminderScheduler(scheduler ReminderScheduler) {
	s.reminders = scheduler
}

// Delete removes an inquiry in any status (admin). Converted orders survive.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func deriveRole(senderID, ownerID uuid.UUID) string {
	if senderID == ownerID {
		return RoleCustomer
	}
	return RoleAdmin
}

func toInquiryResponse(g repository.InquiryGroup, withMessages bool) transport.InquiryResponse {
	items := make([]transport.ItemResponse, 0, len(g.Items))
	for _, it := range g.Items {
		items = append(items, transport.ItemResponse{
			ID:                  it.ID,
			ProductTemplateID:   it.ProductTemplateID,
			ServiceID:           it.ServiceID,
			VariantID:           it.VariantID,
			Quantity:            it.Quantity,
			Selections:          it.Selections,
			Notes:               it.Notes,
			Images:              it.Images,
			EstimatedUnitPrice:  it.EstimatedUnitPrice,
			EstimatedTotalPrice: it.EstimatedTotalPrice,
			LineItemPrice:       it.LineItemPrice,
		})
	}

	resp := transport.InquiryResponse{
		ID:               g.ID,
		UserID:           g.UserID,
		Status:           g.Status,
		TotalQuotedPrice: g.TotalQuotedPrice,
		QuoteValidUntil:  g.QuoteValidUntil,
		AdminNotes:       g.AdminNotes,
		QuotedAt:         g.QuotedAt,
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
		Items:            items,
	}
	if g.Status == domain.StatusQuoted && g.QuoteValidUntil != nil && g.QuoteValidUntil.Before(time.Now()) {
		resp.QuoteExpired = true
	}
	if withMessages {
		resp.Messages = make([]transport.MessageResponse, 0, len(g.Messages))
		for _, m := range g.Messages {
			resp.Messages = append(resp.Messages, toMessageResponse(m, g.UserID))
		}
	}
	return resp
}

func toMessageResponse(m repository.InquiryMessage, ownerID uuid.UUID) transport.MessageResponse {
	return transport.MessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Role:      deriveRole(m.SenderID, ownerID),
		Content:   m.Content,
		FileURLs:  m.FileURLs,
		CreatedAt: m.CreatedAt,
	}
}

func toOrderSummary(o repository.ConvertedOrder) transport.OrderSummary {
	return transport.OrderSummary{
		ID:             o.ID,
		InquiryGroupID: o.InquiryGroupID,
		TotalAmount:    o.TotalAmount,
		AmountPaid:     o.AmountPaid,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
	}
}

func parseLineItemPrices(raw map[string]decimal.Decimal) (map[uuid.UUID]decimal.Decimal, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	prices := make(map[uuid.UUID]decimal.Decimal, len(raw))
	for key, price := range raw {
		itemID, err := uuid.Parse(key)
		if err != nil {
			return nil, apperr.Validation("invalid line item ID in lineItemPrices")
		}
		if price.IsNegative() {
			return nil, apperr.Validation("line item prices cannot be negative")
		}
		prices[itemID] = price
	}
	return prices, nil
}

func prefixItemError(index int, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return apperr.New(ae.Kind, fmt.Sprintf("item %d: %s", index+1, ae.Message)).WithDetails(ae.Details)
	}
	return err
}
