package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"printstudio_backend/platform/apperr"
)

const (
	templateNotFoundMessage = "product template not found"
	serviceNotFoundMessage  = "service not found"
	variantNotFoundMessage  = "service variant not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const templateColumns = `id, slug, name, description, base_price, minimum_quantity, config_schema, images, is_active, created_at, updated_at`

// GetTemplateByID retrieves a product template by its ID.
func (r *Repo) GetTemplateByID(ctx context.Context, id uuid.UUID) (ProductTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM product_templates WHERE id = $1`

	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductTemplate{}, apperr.NotFound(templateNotFoundMessage)
		}
		return ProductTemplate{}, fmt.Errorf("get product template by id: %w", err)
	}
	return tpl, nil
}

// GetTemplateBySlug retrieves a product template by its slug.
func (r *Repo) GetTemplateBySlug(ctx context.Context, slug string) (ProductTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM product_templates WHERE slug = $1`

	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductTemplate{}, apperr.NotFound(templateNotFoundMessage)
		}
		return ProductTemplate{}, fmt.Errorf("get product template by slug: %w", err)
	}
	return tpl, nil
}

// ListTemplates retrieves product templates ordered by name.
func (r *Repo) ListTemplates(ctx context.Context, activeOnly bool) ([]ProductTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM product_templates WHERE ($1 = false OR is_active = true) ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list product templates: %w", err)
	}
	defer rows.Close()

	var results []ProductTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product template: %w", err)
		}
		results = append(results, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product templates: %w", err)
	}
	return results, nil
}

// CreateTemplate creates a new product template.
func (r *Repo) CreateTemplate(ctx context.Context, params CreateTemplateParams) (ProductTemplate, error) {
	query := `
		INSERT INTO product_templates (slug, name, description, base_price, minimum_quantity, config_schema, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + templateColumns

	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query,
		params.Slug, params.Name, params.Description, params.BasePrice, params.MinimumQuantity,
		params.ConfigSchema, params.Images,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return ProductTemplate{}, apperr.Conflict("a product with this slug already exists")
		}
		return ProductTemplate{}, fmt.Errorf("create product template: %w", err)
	}
	return tpl, nil
}

// UpdateTemplate updates an existing product template.
func (r *Repo) UpdateTemplate(ctx context.Context, params UpdateTemplateParams) (ProductTemplate, error) {
	query := `
		UPDATE product_templates SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			base_price = COALESCE($4, base_price),
			minimum_quantity = COALESCE($5, minimum_quantity),
			config_schema = COALESCE($6, config_schema),
			images = COALESCE($7, images),
			is_active = COALESCE($8, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + templateColumns

	var schemaParam any
	if len(params.ConfigSchema) > 0 {
		schemaParam = params.ConfigSchema
	}

	tpl, err := scanTemplate(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.Description, params.BasePrice, params.MinimumQuantity,
		schemaParam, params.Images, params.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductTemplate{}, apperr.NotFound(templateNotFoundMessage)
		}
		return ProductTemplate{}, fmt.Errorf("update product template: %w", err)
	}
	return tpl, nil
}

// DeleteTemplate removes a product template (hard delete).
// Existing inquiry items keep their stored selections; use IsActive for retirement.
func (r *Repo) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM product_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(templateNotFoundMessage)
	}
	return nil
}

// GetServiceByID retrieves a service with its variants.
func (r *Repo) GetServiceByID(ctx context.Context, id uuid.UUID) (Service, error) {
	query := `SELECT id, slug, name, description, is_active, created_at, updated_at FROM services WHERE id = $1`

	svc, err := scanService(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("get service by id: %w", err)
	}

	if svc.Variants, err = r.listVariants(ctx, svc.ID); err != nil {
		return Service{}, err
	}
	return svc, nil
}

// GetServiceBySlug retrieves a service with its variants by slug.
func (r *Repo) GetServiceBySlug(ctx context.Context, slug string) (Service, error) {
	query := `SELECT id, slug, name, description, is_active, created_at, updated_at FROM services WHERE slug = $1`

	svc, err := scanService(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("get service by slug: %w", err)
	}

	if svc.Variants, err = r.listVariants(ctx, svc.ID); err != nil {
		return Service{}, err
	}
	return svc, nil
}

// ListServices retrieves services with their variants ordered by name.
func (r *Repo) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	query := `SELECT id, slug, name, description, is_active, created_at, updated_at
		FROM services WHERE ($1 = false OR is_active = true) ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var results []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		results = append(results, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	for i := range results {
		if results[i].Variants, err = r.listVariants(ctx, results[i].ID); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// GetVariantByID retrieves a single variant scoped to its service.
func (r *Repo) GetVariantByID(ctx context.Context, serviceID, variantID uuid.UUID) (ServiceVariant, error) {
	query := `SELECT id, service_id, name, base_price, price_per_unit, minimum_quantity, is_active
		FROM service_variants WHERE id = $1 AND service_id = $2`

	var v ServiceVariant
	err := r.pool.QueryRow(ctx, query, variantID, serviceID).Scan(
		&v.ID, &v.ServiceID, &v.Name, &v.BasePrice, &v.PricePerUnit, &v.MinimumQuantity, &v.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceVariant{}, apperr.NotFound(variantNotFoundMessage)
		}
		return ServiceVariant{}, fmt.Errorf("get service variant: %w", err)
	}
	return v, nil
}

// CreateService creates a service and its initial variants in one transaction.
func (r *Repo) CreateService(ctx context.Context, params CreateServiceParams) (Service, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Service{}, fmt.Errorf("begin create service: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	svc, err := scanService(tx.QueryRow(ctx, `
		INSERT INTO services (slug, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, slug, name, description, is_active, created_at, updated_at`,
		params.Slug, params.Name, params.Description,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return Service{}, apperr.Conflict("a service with this slug already exists")
		}
		return Service{}, fmt.Errorf("create service: %w", err)
	}

	for _, vp := range params.Variants {
		var v ServiceVariant
		err := tx.QueryRow(ctx, `
			INSERT INTO service_variants (service_id, name, base_price, price_per_unit, minimum_quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, service_id, name, base_price, price_per_unit, minimum_quantity, is_active`,
			svc.ID, vp.Name, vp.BasePrice, vp.PricePerUnit, vp.MinimumQuantity,
		).Scan(&v.ID, &v.ServiceID, &v.Name, &v.BasePrice, &v.PricePerUnit, &v.MinimumQuantity, &v.IsActive)
		if err != nil {
			return Service{}, fmt.Errorf("create service variant: %w", err)
		}
		svc.Variants = append(svc.Variants, v)
	}

	if err := tx.Commit(ctx); err != nil {
		return Service{}, fmt.Errorf("commit create service: %w", err)
	}
	return svc, nil
}

// UpdateService updates an existing service.
func (r *Repo) UpdateService(ctx context.Context, params UpdateServiceParams) (Service, error) {
	query := `
		UPDATE services SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			is_active = COALESCE($4, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING id, slug, name, description, is_active, created_at, updated_at`

	svc, err := scanService(r.pool.QueryRow(ctx, query, params.ID, params.Name, params.Description, params.IsActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("update service: %w", err)
	}

	if svc.Variants, err = r.listVariants(ctx, svc.ID); err != nil {
		return Service{}, err
	}
	return svc, nil
}

// DeleteService removes a service and its variants.
func (r *Repo) DeleteService(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(serviceNotFoundMessage)
	}
	return nil
}

// CreateVariant adds a variant to an existing service.
func (r *Repo) CreateVariant(ctx context.Context, serviceID uuid.UUID, params CreateVariantParams) (ServiceVariant, error) {
	var v ServiceVariant
	err := r.pool.QueryRow(ctx, `
		INSERT INTO service_variants (service_id, name, base_price, price_per_unit, minimum_quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, service_id, name, base_price, price_per_unit, minimum_quantity, is_active`,
		serviceID, params.Name, params.BasePrice, params.PricePerUnit, params.MinimumQuantity,
	).Scan(&v.ID, &v.ServiceID, &v.Name, &v.BasePrice, &v.PricePerUnit, &v.MinimumQuantity, &v.IsActive)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ServiceVariant{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return ServiceVariant{}, fmt.Errorf("create service variant: %w", err)
	}
	return v, nil
}

// UpdateVariant updates an existing service variant.
func (r *Repo) UpdateVariant(ctx context.Context, params UpdateVariantParams) (ServiceVariant, error) {
	query := `
		UPDATE service_variants SET
			name = COALESCE($3, name),
			base_price = COALESCE($4, base_price),
			price_per_unit = COALESCE($5, price_per_unit),
			minimum_quantity = COALESCE($6, minimum_quantity),
			is_active = COALESCE($7, is_active)
		WHERE id = $1 AND service_id = $2
		RETURNING id, service_id, name, base_price, price_per_unit, minimum_quantity, is_active`

	var v ServiceVariant
	err := r.pool.QueryRow(ctx, query,
		params.ID, params.ServiceID, params.Name, params.BasePrice, params.PricePerUnit,
		params.MinimumQuantity, params.IsActive,
	).Scan(&v.ID, &v.ServiceID, &v.Name, &v.BasePrice, &v.PricePerUnit, &v.MinimumQuantity, &v.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceVariant{}, apperr.NotFound(variantNotFoundMessage)
		}
		return ServiceVariant{}, fmt.Errorf("update service variant: %w", err)
	}
	return v, nil
}

// DeleteVariant removes a variant from a service.
func (r *Repo) DeleteVariant(ctx context.Context, serviceID, variantID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM service_variants WHERE id = $1 AND service_id = $2`, variantID, serviceID)
	if err != nil {
		return fmt.Errorf("delete service variant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(variantNotFoundMessage)
	}
	return nil
}

func (r *Repo) listVariants(ctx context.Context, serviceID uuid.UUID) ([]ServiceVariant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, service_id, name, base_price, price_per_unit, minimum_quantity, is_active
		FROM service_variants WHERE service_id = $1 ORDER BY base_price ASC, name ASC`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list service variants: %w", err)
	}
	defer rows.Close()

	var results []ServiceVariant
	for rows.Next() {
		var v ServiceVariant
		if err := rows.Scan(&v.ID, &v.ServiceID, &v.Name, &v.BasePrice, &v.PricePerUnit, &v.MinimumQuantity, &v.IsActive); err != nil {
			return nil, fmt.Errorf("scan service variant: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service variants: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (ProductTemplate, error) {
	var tpl ProductTemplate
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&tpl.ID, &tpl.Slug, &tpl.Name, &tpl.Description, &tpl.BasePrice, &tpl.MinimumQuantity,
		&tpl.ConfigSchema, &tpl.Images, &tpl.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return ProductTemplate{}, err
	}

	tpl.CreatedAt = createdAt.Format(time.RFC3339)
	tpl.UpdatedAt = updatedAt.Format(time.RFC3339)
	return tpl, nil
}

func scanService(row rowScanner) (Service, error) {
	var svc Service
	var createdAt, updatedAt time.Time

	err := row.Scan(&svc.ID, &svc.Slug, &svc.Name, &svc.Description, &svc.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return Service{}, err
	}

	svc.CreatedAt = createdAt.Format(time.RFC3339)
	svc.UpdatedAt = updatedAt.Format(time.RFC3339)
	return svc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
