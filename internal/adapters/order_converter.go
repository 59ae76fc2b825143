package adapters

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	inquiriesrepo "printstudio_backend/internal/inquiries/repository"
	ordersrepo "printstudio_backend/internal/orders/repository"
)

// OrderConverterAdapter adapts the orders repository for the inquiry accept
// flow. It implements inquiries/repository.OrderConverter so the status
// change and the order insert commit in the same transaction.
type OrderConverterAdapter struct {
	orders *ordersrepo.Repository
}

// NewOrderConverterAdapter creates a new order conversion adapter.
func NewOrderConverterAdapter(orders *ordersrepo.Repository) *OrderConverterAdapter {
	return &OrderConverterAdapter{orders: orders}
}

// InsertForInquiry creates the order for an accepted inquiry inside the
// caller's transaction.
func (a *OrderConverterAdapter) InsertForInquiry(ctx context.Context, tx pgx.Tx, params inquiriesrepo.ConvertOrderParams) (inquiriesrepo.ConvertedOrder, error) {
	order, err := a.orders.InsertTx(ctx, tx, ordersrepo.InsertParams{
		InquiryGroupID: params.InquiryGroupID,
		UserID:         params.UserID,
		TotalAmount:    params.TotalAmount,
	})
	if err != nil {
		return inquiriesrepo.ConvertedOrder{}, err
	}
	return toConvertedOrder(order), nil
}

// GetForInquiry reads the existing order of an inquiry inside the caller's
// transaction, used when an accept is repeated.
func (a *OrderConverterAdapter) GetForInquiry(ctx context.Context, tx pgx.Tx, inquiryGroupID uuid.UUID) (inquiriesrepo.ConvertedOrder, error) {
	order, err := a.orders.GetByInquiryTx(ctx, tx, inquiryGroupID)
	if err != nil {
		return inquiriesrepo.ConvertedOrder{}, err
	}
	return toConvertedOrder(order), nil
}

func toConvertedOrder(o ordersrepo.Order) inquiriesrepo.ConvertedOrder {
	return inquiriesrepo.ConvertedOrder{
		ID:             o.ID,
		InquiryGroupID: o.InquiryGroupID,
		UserID:         o.UserID,
		TotalAmount:    o.TotalAmount,
		AmountPaid:     o.AmountPaid,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
	}
}

var _ inquiriesrepo.OrderConverter = (*OrderConverterAdapter)(nil)
