// Package service contains order business logic: the customer order view,
// the offline payment ledger, and UPI payment QR generation.
package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"printstudio_backend/internal/events"
	"printstudio_backend/internal/orders/repository"
	"printstudio_backend/internal/orders/transport"
	"printstudio_backend/platform/apperr"
	"printstudio_backend/platform/config"
	"printstudio_backend/platform/logger"
)

// Store is the storage surface the order flow needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Order, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
	GetTransactions(ctx context.Context, orderID uuid.UUID) ([]repository.Transaction, error)
	RecordPayment(ctx context.Context, params repository.RecordPaymentParams) (repository.Order, repository.Transaction, error)
}

// Service implements order use cases on top of the repository.
type Service struct {
	repo       Store
	eventBus   events.Bus
	paymentCfg config.PaymentConfig
	log        *logger.Logger
}

// New creates a new orders service.
func New(repo Store, eventBus events.Bus, paymentCfg config.PaymentConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, paymentCfg: paymentCfg, log: log}
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) (transport.OrderListResponse, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return transport.OrderListResponse{}, err
	}

	items := make([]transport.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	return transport.OrderListResponse{Items: items, Total: len(items)}, nil
}

// GetMine returns one of the caller's orders.
func (s *Service) GetMine(ctx context.Context, userID, id uuid.UUID) (transport.OrderResponse, error) {
	o, err := s.getAccessible(ctx, id, userID, false)
	if err != nil {
		return transport.OrderResponse{}, err
	}
	return toOrderResponse(o), nil
}

// List returns the paginated admin view with an optional status filter.
func (s *Service) List(ctx context.Context, req transport.ListOrdersRequest) (transport.AdminListResponse, error) {
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

	items := make([]transport.OrderResponse, 0, len(result.Items))
	for _, o := range result.Items {
		items = append(items, toOrderResponse(o))
	}
	return transport.AdminListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	}, nil
}

// GetPayments returns an order's ledger for its owner or an admin.
func (s *Service) GetPayments(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID) (transport.PaymentsResponse, error) {
	o, err := s.getAccessible(ctx, orderID, callerID, isAdmin)
	if err != nil {
		return transport.PaymentsResponse{}, err
	}

	txns, err := s.repo.GetTransactions(ctx, orderID)
	if err != nil {
		return transport.PaymentsResponse{}, err
	}

	items := make([]transport.TransactionResponse, 0, len(txns))
	for _, t := range txns {
		items = append(items, toTransactionResponse(t))
	}
	return transport.PaymentsResponse{Order: toOrderResponse(o), Transactions: items}, nil
}

// RecordPayment records an offline payment, rolls the balance and status,
// and publishes PaymentRecorded. The balance check lives in the repository
// behind the row lock; a pre-read here would race concurrent payments.
func (s *Service) RecordPayment(ctx context.Context, orderID uuid.UUID, req transport.RecordPaymentRequest) (transport.RecordPaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return transport.RecordPaymentResponse{}, apperr.Validation("payment amount must be positive")
	}

	order, txn, err := s.repo.RecordPayment(ctx, repository.RecordPaymentParams{
		OrderID:          orderID,
		Amount:           req.Amount,
		PaymentMode:      req.PaymentMode,
		Notes:            req.Notes,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
	})
	if err != nil {
		return transport.RecordPaymentResponse{}, err
	}

	s.eventBus.Publish(ctx, events.PaymentRecorded{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		Amount:      txn.Amount,
		PaymentMode: txn.PaymentMode,
		OrderStatus: order.Status,
		AmountDue:   order.AmountDue(),
	})

	return transport.RecordPaymentResponse{
		Order:       toOrderResponse(order),
		Transaction: toTransactionResponse(txn),
	}, nil
}

// PaymentQR renders a UPI payment QR code PNG for the outstanding balance.
func (s *Service) PaymentQR(ctx context.Context, callerID uuid.UUID, isAdmin bool, orderID uuid.UUID) ([]byte, error) {
	o, err := s.getAccessible(ctx, orderID, callerID, isAdmin)
	if err != nil {
		return nil, err
	}
	if o.Status == repository.StatusPaid {
		return nil, apperr.Conflict("order is already fully paid")
	}

	vpa := s.paymentCfg.GetUPIVPA()
	if vpa == "" {
		return nil, apperr.Internal("UPI payments are not configured")
	}

	params := url.Values{}
	params.Set("pa", vpa)
	params.Set("pn", s.paymentCfg.GetUPIPayeeName())
	params.Set("am", o.AmountDue().StringFixed(2))
	params.Set("cu", "INR")
	params.Set("tn", fmt.Sprintf("Order %s", o.ID))
	payload := "upi://pay?" + params.Encode()

	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment QR: %w", err)
	}
	return png, nil
}

func (s *Service) getAccessible(ctx context.Context, orderID, callerID uuid.UUID, isAdmin bool) (repository.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return repository.Order{}, err
	}
	if !isAdmin && o.UserID != callerID {
		return repository.Order{}, apperr.Forbidden("you do not have access to this order")
	}
	return o, nil
}

func toOrderResponse(o repository.Order) transport.OrderResponse {
	return transport.OrderResponse{
		ID:             o.ID,
		InquiryGroupID: o.InquiryGroupID,
		UserID:         o.UserID,
		TotalAmount:    o.TotalAmount,
		AmountPaid:     o.AmountPaid,
		AmountDue:      o.AmountDue(),
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toTransactionResponse(t repository.Transaction) transport.TransactionResponse {
	return transport.TransactionResponse{
		ID:               t.ID,
		OrderID:          t.OrderID,
		Amount:           t.Amount,
		PaymentMode:      t.PaymentMode,
		Notes:            t.Notes,
		GatewayOrderID:   t.GatewayOrderID,
		GatewayPaymentID: t.GatewayPaymentID,
		CreatedAt:        t.CreatedAt,
	}
}
