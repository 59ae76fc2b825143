package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductTemplate is a configurable print product offered in the catalog.
// ConfigSchema holds the configurator document in its stored wire format.
type ProductTemplate struct {
	ID              uuid.UUID       `db:"id"`
	Slug            string          `db:"slug"`
	Name            string          `db:"name"`
	Description     *string         `db:"description"`
	BasePrice       decimal.Decimal `db:"base_price"`
	MinimumQuantity int             `db:"minimum_quantity"`
	ConfigSchema    json.RawMessage `db:"config_schema"`
	Images          []string        `db:"images"`
	IsActive        bool            `db:"is_active"`
	CreatedAt       string          `db:"created_at"`
	UpdatedAt       string          `db:"updated_at"`
}

// Service is a non-configurable offering priced through tiered variants.
type Service struct {
	ID          uuid.UUID `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   string    `db:"created_at"`
	UpdatedAt   string    `db:"updated_at"`
	Variants    []ServiceVariant
}

// ServiceVariant is one price tier of a service.
type ServiceVariant struct {
	ID              uuid.UUID       `db:"id"`
	ServiceID       uuid.UUID       `db:"service_id"`
	Name            string          `db:"name"`
	BasePrice       decimal.Decimal `db:"base_price"`
	PricePerUnit    decimal.Decimal `db:"price_per_unit"`
	MinimumQuantity int             `db:"minimum_quantity"`
	IsActive        bool            `db:"is_active"`
}

// CreateTemplateParams contains parameters for creating a product template.
type CreateTemplateParams struct {
	Slug            string
	Name            string
	Description     *string
	BasePrice       decimal.Decimal
	MinimumQuantity int
	ConfigSchema    json.RawMessage
	Images          []string
}

// UpdateTemplateParams contains parameters for updating a product template.
// Nil fields are left unchanged.
type UpdateTemplateParams struct {
	ID              uuid.UUID
	Name            *string
	Description     *string
	BasePrice       *decimal.Decimal
	MinimumQuantity *int
	ConfigSchema    json.RawMessage
	Images          []string
	IsActive        *bool
}

// CreateServiceParams contains parameters for creating a service with variants.
type CreateServiceParams struct {
	Slug        string
	Name        string
	Description *string
	Variants    []CreateVariantParams
}

// CreateVariantParams contains parameters for one service variant.
type CreateVariantParams struct {
	Name            string
	BasePrice       decimal.Decimal
	PricePerUnit    decimal.Decimal
	MinimumQuantity int
}

// UpdateServiceParams contains parameters for updating a service.
type UpdateServiceParams struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	IsActive    *bool
}

// UpdateVariantParams contains parameters for updating a service variant.
type UpdateVariantParams struct {
	ID              uuid.UUID
	ServiceID       uuid.UUID
	Name            *string
	BasePrice       *decimal.Decimal
	PricePerUnit    *decimal.Decimal
	MinimumQuantity *int
	IsActive        *bool
}

// TemplateReader provides read operations for product templates.
type TemplateReader interface {
	GetTemplateByID(ctx context.Context, id uuid.UUID) (ProductTemplate, error)
	GetTemplateBySlug(ctx context.Context, slug string) (ProductTemplate, error)
	ListTemplates(ctx context.Context, activeOnly bool) ([]ProductTemplate, error)
}

// TemplateWriter provides write operations for product templates.
type TemplateWriter interface {
	CreateTemplate(ctx context.Context, params CreateTemplateParams) (ProductTemplate, error)
	UpdateTemplate(ctx context.Context, params UpdateTemplateParams) (ProductTemplate, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
}

// ServiceReader provides read operations for services and variants.
type ServiceReader interface {
	GetServiceByID(ctx context.Context, id uuid.UUID) (Service, error)
	GetServiceBySlug(ctx context.Context, slug string) (Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]Service, error)
	GetVariantByID(ctx context.Context, serviceID, variantID uuid.UUID) (ServiceVariant, error)
}

// ServiceWriter provides write operations for services and variants.
type ServiceWriter interface {
	CreateService(ctx context.Context, params CreateServiceParams) (Service, error)
	UpdateService(ctx context.Context, params UpdateServiceParams) (Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
	CreateVariant(ctx context.Context, serviceID uuid.UUID, params CreateVariantParams) (ServiceVariant, error)
	UpdateVariant(ctx context.Context, params UpdateVariantParams) (ServiceVariant, error)
	DeleteVariant(ctx context.Context, serviceID, variantID uuid.UUID) error
}

// Repository combines all catalog repository operations.
type Repository interface {
	TemplateReader
	TemplateWriter
	ServiceReader
	ServiceWriter
}
