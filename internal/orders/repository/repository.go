package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printstudio_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Order payment statuses.
const (
	StatusWaitingPayment = "WAITING_PAYMENT"
	StatusPartiallyPaid  = "PARTIALLY_PAID"
	StatusPaid           = "PAID"
)

const orderNotFoundMsg = "order not found"

// Order is the database model for an order. InquiryGroupID is a weak
// reference: the inquiry may be deleted later without touching the order.
type Order struct {
	ID             uuid.UUID       `db:"id"`
	InquiryGroupID uuid.UUID       `db:"inquiry_group_id"`
	UserID         uuid.UUID       `db:"user_id"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	AmountPaid     decimal.Decimal `db:"amount_paid"`
	Status         string          `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// AmountDue returns the outstanding balance, never below zero.
func (o Order) AmountDue() decimal.Decimal {
	due := o.TotalAmount.Sub(o.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Transaction is one recorded payment against an order.
type Transaction struct {
	ID               uuid.UUID       `db:"id"`
	OrderID          uuid.UUID       `db:"order_id"`
	Amount           decimal.Decimal `db:"amount"`
	PaymentMode      string          `db:"payment_mode"`
	Notes            *string         `db:"notes"`
	GatewayOrderID   *string         `db:"gateway_order_id"`
	GatewayPaymentID *string         `db:"gateway_payment_id"`
	CreatedAt        time.Time       `db:"created_at"`
}

// InsertParams contains parameters for creating an order.
type InsertParams struct {
	InquiryGroupID uuid.UUID
	UserID         uuid.UUID
	TotalAmount    decimal.Decimal
}

// RecordPaymentParams contains parameters for recording a payment.
type RecordPaymentParams struct {
	OrderID          uuid.UUID
	Amount           decimal.Decimal
	PaymentMode      string
	Notes            *string
	GatewayOrderID   *string
	GatewayPaymentID *string
}

// ListParams contains admin list filters.
type ListParams struct {
	Status   *string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing orders.
type ListResult struct {
	Items      []Order
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Repository provides database operations for orders and their payment ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new orders repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orderColumns = `id, inquiry_group_id, user_id, total_amount, amount_paid, status, created_at, updated_at`

// InsertTx creates an order inside an existing transaction. The unique
// constraint on inquiry_group_id guarantees at most one order per inquiry.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, params InsertParams) (Order, error) {
	var o Order
	query := `
		INSERT INTO orders (id, inquiry_group_id, user_id, total_amount, amount_paid, status)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING ` + orderColumns

	err := scanOrder(tx.QueryRow(ctx, query,
		uuid.New(), params.InquiryGroupID, params.UserID, params.TotalAmount, StatusWaitingPayment,
	), &o)
	if err != nil {
		if isUniqueViolation(err) {
			return Order{}, apperr.Conflict("an order already exists for this inquiry")
		}
		return Order{}, fmt.Errorf("failed to insert order: %w", err)
	}
	return o, nil
}

// GetByInquiryTx reads the order of an inquiry inside an existing transaction.
func (r *Repository) GetByInquiryTx(ctx context.Context, tx pgx.Tx, inquiryGroupID uuid.UUID) (Order, error) {
	var o Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE inquiry_group_id = $1`
	if err := scanOrder(tx.QueryRow(ctx, query, inquiryGroupID), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMsg)
		}
		return Order{}, fmt.Errorf("failed to get order by inquiry: %w", err)
	}
	return o, nil
}

// GetByID retrieves an order by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, apperr.NotFound(orderNotFoundMsg)
		}
		return Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListByUser retrieves a customer's orders, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	return collectOrders(rows)
}

// List retrieves orders for the admin view with an optional status filter.
func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	baseQuery := ` FROM orders WHERE ($1::text IS NULL OR status = $1)`

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, statusParam).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("failed to count orders: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	query := `SELECT ` + orderColumns + baseQuery + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, statusParam, params.PageSize, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{
		Items:      orders,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetTransactions retrieves the payment ledger of an order, oldest first.
func (r *Repository) GetTransactions(ctx context.Context, orderID uuid.UUID) ([]Transaction, error) {
	query := `
		SELECT id, order_id, amount, payment_mode, notes, gateway_order_id, gateway_payment_id, created_at
		FROM order_transactions
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.OrderID, &t.Amount, &t.PaymentMode, &t.Notes,
			&t.GatewayOrderID, &t.GatewayPaymentID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

// ApplyPayment validates a payment against an order snapshot and returns the
// rolled balance and status. RecordPayment calls it after taking the row
// lock, so two concurrent payments cannot both pass a stale balance check.
func ApplyPayment(o Order, amount decimal.Decimal) (decimal.Decimal, string, error) {
	if !amount.IsPositive() {
		return decimal.Decimal{}, "", apperr.Validation("payment amount must be positive")
	}
	if amount.GreaterThan(o.AmountDue()) {
		return decimal.Decimal{}, "", apperr.Validation("payment exceeds the outstanding balance").
			WithDetails(map[string]string{"amountDue": o.AmountDue().String()})
	}

	newPaid := o.AmountPaid.Add(amount)
	newStatus := StatusPartiallyPaid
	if newPaid.GreaterThanOrEqual(o.TotalAmount) {
		newStatus = StatusPaid
	}
	return newPaid, newStatus, nil
}

// RecordPayment appends a ledger row and rolls the order's amount_paid and
// status in one transaction. The order row is locked for the duration.
func (r *Repository) RecordPayment(ctx context.Context, params RecordPaymentParams) (Order, Transaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Order{}, Transaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var o Order
	lockQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	if err := scanOrder(tx.QueryRow(ctx, lockQuery, params.OrderID), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, Transaction{}, apperr.NotFound(orderNotFoundMsg)
		}
		return Order{}, Transaction{}, fmt.Errorf("failed to lock order: %w", err)
	}

	newPaid, newStatus, err := ApplyPayment(o, params.Amount)
	if err != nil {
		return Order{}, Transaction{}, err
	}

	var t Transaction
	insertQuery := `
		INSERT INTO order_transactions (id, order_id, amount, payment_mode, notes, gateway_order_id, gateway_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, order_id, amount, payment_mode, notes, gateway_order_id, gateway_payment_id, created_at`
	if err := tx.QueryRow(ctx, insertQuery,
		uuid.New(), params.OrderID, params.Amount, params.PaymentMode,
		params.Notes, params.GatewayOrderID, params.GatewayPaymentID,
	).Scan(
		&t.ID, &t.OrderID, &t.Amount, &t.PaymentMode, &t.Notes,
		&t.GatewayOrderID, &t.GatewayPaymentID, &t.CreatedAt,
	); err != nil {
		return Order{}, Transaction{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	updateQuery := `
		UPDATE orders SET amount_paid = $2, status = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + orderColumns
	if err := scanOrder(tx.QueryRow(ctx, updateQuery, params.OrderID, newPaid, newStatus), &o); err != nil {
		return Order{}, Transaction{}, fmt.Errorf("failed to update order balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, Transaction{}, fmt.Errorf("failed to commit payment: %w", err)
	}
	return o, t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner, o *Order) error {
	return row.Scan(
		&o.ID, &o.InquiryGroupID, &o.UserID, &o.TotalAmount,
		&o.AmountPaid, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
