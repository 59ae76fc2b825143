package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printstudio_backend/internal/inquiries/domain"
	"printstudio_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const inquiryNotFoundMsg = "inquiry not found"

// Repo provides database operations for inquiry groups, items and messages.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new inquiries repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const groupColumns = `id, user_id, status, total_quoted_price, quote_valid_until, admin_notes, quoted_at, created_at, updated_at`

// CreateGroup inserts an inquiry group and its items in a single transaction.
func (r *Repo) CreateGroup(ctx context.Context, params CreateGroupParams) (InquiryGroup, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var g InquiryGroup
	query := `
		INSERT INTO inquiry_groups (id, user_id, status)
		VALUES ($1, $2, $3)
		RETURNING ` + groupColumns

	if err := scanGroup(tx.QueryRow(ctx, query, uuid.New(), params.UserID, domain.StatusPending), &g); err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to insert inquiry group: %w", err)
	}

	itemQuery := `
		INSERT INTO inquiry_items (
			id, inquiry_group_id, product_template_id, service_id, variant_id,
			quantity, selections, notes, images, estimated_unit_price, estimated_total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + itemColumns

	for _, item := range params.Items {
		selections := item.Selections
		if len(selections) == 0 {
			selections = []byte(`{}`)
		}
		var it InquiryItem
		if err := scanItem(tx.QueryRow(ctx, itemQuery,
			uuid.New(), g.ID, item.ProductTemplateID, item.ServiceID, item.VariantID,
			item.Quantity, selections, item.Notes, item.Images,
			item.EstimatedUnitPrice, item.EstimatedTotalPrice,
		), &it); err != nil {
			return InquiryGroup{}, fmt.Errorf("failed to insert inquiry item: %w", err)
		}
		g.Items = append(g.Items, it)
	}

	if err := tx.Commit(ctx); err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to commit inquiry group: %w", err)
	}
	return g, nil
}

// GetByID retrieves an inquiry group with its items and messages.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (InquiryGroup, error) {
	var g InquiryGroup
	query := `SELECT ` + groupColumns + ` FROM inquiry_groups WHERE id = $1`
	if err := scanGroup(r.pool.QueryRow(ctx, query, id), &g); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InquiryGroup{}, apperr.NotFound(inquiryNotFoundMsg)
		}
		return InquiryGroup{}, fmt.Errorf("failed to get inquiry group: %w", err)
	}

	itemsByGroup, err := r.loadItems(ctx, []uuid.UUID{g.ID})
	if err != nil {
		return InquiryGroup{}, err
	}
	g.Items = itemsByGroup[g.ID]

	g.Messages, err = r.GetMessages(ctx, g.ID)
	if err != nil {
		return InquiryGroup{}, err
	}
	return g, nil
}

// ListByUser retrieves all inquiry groups of a customer, newest first,
// including items but not messages.
func (r *Repo) ListByUser(ctx context.Context, userID uuid.UUID) ([]InquiryGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM inquiry_groups WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiry groups: %w", err)
	}
	defer rows.Close()

	groups, err := collectGroups(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// List retrieves inquiry groups for the admin view with an optional status
// filter and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (ListResult, error) {
	var statusParam interface{}
	if params.Status != nil {
		statusParam = *params.Status
	}

	baseQuery := ` FROM inquiry_groups WHERE ($1::text IS NULL OR status = $1)`

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, statusParam).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("failed to count inquiry groups: %w", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	offset := (params.Page - 1) * params.PageSize

	query := `SELECT ` + groupColumns + baseQuery + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, statusParam, params.PageSize, offset)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list inquiry groups: %w", err)
	}
	defer rows.Close()

	groups, err := collectGroups(rows)
	if err != nil {
		return ListResult{}, err
	}
	if err := r.attachItems(ctx, groups); err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Items:      groups,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// DeleteOwn removes a customer's own inquiry. Only pending inquiries can be
// withdrawn; items and messages cascade.
func (r *Repo) DeleteOwn(ctx context.Context, id, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := lockGroup(ctx, tx, id)
	if err != nil {
		return err
	}
	if g.UserID != userID {
		return apperr.Forbidden("you do not have access to this inquiry")
	}
	if !domain.AllowsCustomerDeletion(g.Status) {
		return apperr.Conflict("only pending inquiries can be withdrawn").
			WithDetails(map[string]string{"currentStatus": g.Status})
	}

	if _, err := tx.Exec(ctx, `DELETE FROM inquiry_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete inquiry group: %w", err)
	}
	return tx.Commit(ctx)
}

// Delete removes an inquiry in any status (admin). Orders created from the
// inquiry are untouched.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM inquiry_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inquiry group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(inquiryNotFoundMsg)
	}
	return nil
}

// Quote issues or re-issues a quote on a pending or quoted inquiry. Quote
// fields and optional per-item prices are written in one transaction.
func (r *Repo) Quote(ctx context.Context, params QuoteParams) (InquiryGroup, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := lockGroup(ctx, tx, params.GroupID)
	if err != nil {
		return InquiryGroup{}, err
	}
	if !domain.CanTransition(g.Status, domain.StatusQuoted) {
		return InquiryGroup{}, invalidTransition(g.Status, domain.StatusQuoted)
	}

	now := time.Now()
	validUntil := now.AddDate(0, 0, params.ValidForDays)

	query := `
		UPDATE inquiry_groups
		SET status = $2, total_quoted_price = $3, admin_notes = $4,
			quote_valid_until = $5, quoted_at = $6, updated_at = $6
		WHERE id = $1
		RETURNING ` + groupColumns

	if err := scanGroup(tx.QueryRow(ctx, query,
		params.GroupID, domain.StatusQuoted, params.TotalQuotedPrice,
		params.AdminNotes, validUntil, now,
	), &g); err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to update quote: %w", err)
	}

	for itemID, price := range params.LineItemPrices {
		result, err := tx.Exec(ctx,
			`UPDATE inquiry_items SET line_item_price = $3 WHERE id = $1 AND inquiry_group_id = $2`,
			itemID, params.GroupID, price,
		)
		if err != nil {
			return InquiryGroup{}, fmt.Errorf("failed to update line item price: %w", err)
		}
		if result.RowsAffected() == 0 {
			return InquiryGroup{}, apperr.Validation("line item does not belong to this inquiry")
		}
	}

	items, err := loadItemsTx(ctx, tx, params.GroupID)
	if err != nil {
		return InquiryGroup{}, err
	}
	g.Items = items

	if err := tx.Commit(ctx); err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to commit quote: %w", err)
	}
	return g, nil
}

// acceptGate validates an accept decision against the locked group snapshot.
// A group that was already accepted reports alreadyAccepted so the caller
// returns the existing order instead of failing.
func acceptGate(g InquiryGroup, quotedAt, now time.Time) (alreadyAccepted bool, err error) {
	if g.Status == domain.StatusAccepted {
		return true, nil
	}
	if !domain.CanTransition(g.Status, domain.StatusAccepted) {
		return false, invalidTransition(g.Status, domain.StatusAccepted)
	}
	if g.QuotedAt == nil || !g.QuotedAt.Equal(quotedAt) {
		return false, apperr.Conflict("the quote has changed since it was viewed")
	}
	if g.QuoteValidUntil != nil && g.QuoteValidUntil.Before(now) {
		return false, apperr.Gone("the quote has expired")
	}
	if g.TotalQuotedPrice == nil {
		return false, apperr.Conflict("inquiry has no quote to accept")
	}
	return false, nil
}

// rejectGate validates a reject decision against the locked group snapshot.
// An expired quote may still be rejected.
func rejectGate(g InquiryGroup, quotedAt time.Time) error {
	if !domain.CanTransition(g.Status, domain.StatusRejected) {
		return invalidTransition(g.Status, domain.StatusRejected)
	}
	if g.QuotedAt == nil || !g.QuotedAt.Equal(quotedAt) {
		return apperr.Conflict("the quote has changed since it was viewed")
	}
	return nil
}

// Accept transitions a quoted inquiry to accepted and creates its order in
// the same transaction. A repeat accept returns the existing order.
//
// The row lock serializes concurrent accepts; the unique constraint on
// orders.inquiry_group_id is the storage-level backstop.
func (r *Repo) Accept(ctx context.Context, params RespondParams, converter OrderConverter) (AcceptResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := lockGroup(ctx, tx, params.GroupID)
	if err != nil {
		return AcceptResult{}, err
	}
	if g.UserID != params.UserID {
		return AcceptResult{}, apperr.Forbidden("you do not have access to this inquiry")
	}

	alreadyAccepted, err := acceptGate(g, params.QuotedAt, time.Now())
	if err != nil {
		return AcceptResult{}, err
	}
	if alreadyAccepted {
		order, err := converter.GetForInquiry(ctx, tx, g.ID)
		if err != nil {
			return AcceptResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return AcceptResult{}, fmt.Errorf("failed to commit: %w", err)
		}
		return AcceptResult{Group: g, Order: order, AlreadyAccepted: true}, nil
	}

	query := `
		UPDATE inquiry_groups SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + groupColumns
	if err := scanGroup(tx.QueryRow(ctx, query, params.GroupID, domain.StatusAccepted), &g); err != nil {
		return AcceptResult{}, fmt.Errorf("failed to accept quote: %w", err)
	}

	order, err := converter.InsertForInquiry(ctx, tx, ConvertOrderParams{
		InquiryGroupID: g.ID,
		UserID:         g.UserID,
		TotalAmount:    *g.TotalQuotedPrice,
	})
	if err != nil {
		return AcceptResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AcceptResult{}, fmt.Errorf("failed to commit accept: %w", err)
	}
	return AcceptResult{Group: g, Order: order}, nil
}

// Reject transitions a quoted inquiry to rejected.
func (r *Repo) Reject(ctx context.Context, params RespondParams) (InquiryGroup, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	g, err := lockGroup(ctx, tx, params.GroupID)
	if err != nil {
		return InquiryGroup{}, err
	}
	if g.UserID != params.UserID {
		return InquiryGroup{}, apperr.Forbidden("you do not have access to this inquiry")
	}
	if err := rejectGate(g, params.QuotedAt); err != nil {
		return InquiryGroup{}, err
	}

	query := `
		UPDATE inquiry_groups SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + groupColumns
	if err := scanGroup(tx.QueryRow(ctx, query, params.GroupID, domain.StatusRejected), &g); err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to reject quote: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return InquiryGroup{}, fmt.Errorf("failed to commit reject: %w", err)
	}
	return g, nil
}

// AddMessage appends a message to the thread. The group row is share-locked
// so the append cannot land after a terminal transition in the same instant.
func (r *Repo) AddMessage(ctx context.Context, params AddMessageParams) (InquiryMessage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return InquiryMessage{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM inquiry_groups WHERE id = $1 FOR SHARE`, params.GroupID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InquiryMessage{}, apperr.NotFound(inquiryNotFoundMsg)
		}
		return InquiryMessage{}, fmt.Errorf("failed to lock inquiry group: %w", err)
	}
	if !domain.AllowsMessages(status) {
		return InquiryMessage{}, apperr.Conflict("inquiry is closed").
			WithDetails(map[string]string{"currentStatus": status})
	}

	var m InquiryMessage
	query := `
		INSERT INTO inquiry_messages (inquiry_group_id, sender_id, content, file_urls)
		VALUES ($1, $2, $3, $4)
		RETURNING id, inquiry_group_id, sender_id, content, file_urls, created_at`
	if err := tx.QueryRow(ctx, query,
		params.GroupID, params.SenderID, params.Content, params.FileURLs,
	).Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.FileURLs, &m.CreatedAt); err != nil {
		return InquiryMessage{}, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return InquiryMessage{}, fmt.Errorf("failed to commit message: %w", err)
	}
	return m, nil
}

// GetMessages retrieves a thread in ascending creation order, ties broken by
// the monotonic message id.
func (r *Repo) GetMessages(ctx context.Context, groupID uuid.UUID) ([]InquiryMessage, error) {
	query := `
		SELECT id, inquiry_group_id, sender_id, content, file_urls, created_at
		FROM inquiry_messages
		WHERE inquiry_group_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []InquiryMessage
	for rows.Next() {
		var m InquiryMessage
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Content, &m.FileURLs, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func invalidTransition(from, to string) error {
	return apperr.Conflict(fmt.Sprintf("cannot move inquiry from %s to %s", from, to)).
		WithDetails(map[string]string{"currentStatus": from})
}

func lockGroup(ctx context.Context, tx pgx.Tx, id uuid.UUID) (InquiryGroup, error) {
	var g InquiryGroup
	query := `SELECT ` + groupColumns + ` FROM inquiry_groups WHERE id = $1 FOR UPDATE`
	if err := scanGroup(tx.QueryRow(ctx, query, id), &g); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InquiryGroup{}, apperr.NotFound(inquiryNotFoundMsg)
		}
		return InquiryGroup{}, fmt.Errorf("failed to lock inquiry group: %w", err)
	}
	return g, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner, g *InquiryGroup) error {
	return row.Scan(
		&g.ID, &g.UserID, &g.Status, &g.TotalQuotedPrice, &g.QuoteValidUntil,
		&g.AdminNotes, &g.QuotedAt, &g.CreatedAt, &g.UpdatedAt,
	)
}

const itemColumns = `id, inquiry_group_id, product_template_id, service_id, variant_id,
		quantity, selections, notes, images, estimated_unit_price, estimated_total_price, line_item_price`

func scanItem(row rowScanner, it *InquiryItem) error {
	return row.Scan(
		&it.ID, &it.GroupID, &it.ProductTemplateID, &it.ServiceID, &it.VariantID,
		&it.Quantity, &it.Selections, &it.Notes, &it.Images,
		&it.EstimatedUnitPrice, &it.EstimatedTotalPrice, &it.LineItemPrice,
	)
}

func collectGroups(rows pgx.Rows) ([]InquiryGroup, error) {
	var groups []InquiryGroup
	for rows.Next() {
		var g InquiryGroup
		if err := scanGroup(rows, &g); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inquiry groups: %w", err)
	}
	return groups, nil
}

func (r *Repo) attachItems(ctx context.Context, groups []InquiryGroup) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	byGroup, err := r.loadItems(ctx, ids)
	if err != nil {
		return err
	}
	for i := range groups {
		groups[i].Items = byGroup[groups[i].ID]
	}
	return nil
}

func (r *Repo) loadItems(ctx context.Context, groupIDs []uuid.UUID) (map[uuid.UUID][]InquiryItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inquiry_items
		WHERE inquiry_group_id = ANY($1)
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiry items: %w", err)
	}
	defer rows.Close()

	byGroup := make(map[uuid.UUID][]InquiryItem)
	for rows.Next() {
		var it InquiryItem
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry item: %w", err)
		}
		byGroup[it.GroupID] = append(byGroup[it.GroupID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inquiry items: %w", err)
	}
	return byGroup, nil
}

func loadItemsTx(ctx context.Context, tx pgx.Tx, groupID uuid.UUID) ([]InquiryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inquiry_items WHERE inquiry_group_id = $1 ORDER BY created_at, id`
	rows, err := tx.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiry items: %w", err)
	}
	defer rows.Close()

	var items []InquiryItem
	for rows.Next() {
		var it InquiryItem
		if err := scanItem(rows, &it); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inquiry items: %w", err)
	}
	return items, nil
}
