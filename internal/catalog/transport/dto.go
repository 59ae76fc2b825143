package transport

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTemplateRequest contains data for creating a product template.
type CreateTemplateRequest struct {
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	Description     *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	BasePrice       decimal.Decimal `json:"basePrice" validate:"required"`
	MinimumQuantity int             `json:"minimumQuantity" validate:"min=1"`
	ConfigSchema    json.RawMessage `json:"configSchema,omitempty"`
	Images          []string        `json:"images,omitempty" validate:"omitempty,dive,url"`
}

// UpdateTemplateRequest contains data for updating a product template.
type UpdateTemplateRequest struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	BasePrice       *decimal.Decimal `json:"basePrice,omitempty"`
	MinimumQuantity *int             `json:"minimumQuantity,omitempty" validate:"omitempty,min=1"`
	ConfigSchema    json.RawMessage  `json:"configSchema,omitempty"`
	Images          []string         `json:"images,omitempty" validate:"omitempty,dive,url"`
	IsActive        *bool            `json:"isActive,omitempty"`
}

// TemplateResponse represents a product template in API responses.
type TemplateResponse struct {
	ID              uuid.UUID       `json:"id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	MinimumQuantity int             `json:"minimumQuantity"`
	ConfigSchema    json.RawMessage `json:"configSchema,omitempty"`
	Images          []string        `json:"images,omitempty"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

// TemplateListResponse wraps a list of product templates.
type TemplateListResponse struct {
	Items []TemplateResponse `json:"items"`
	Total int                `json:"total"`
}

// VariantRequest contains data for one service variant.
type VariantRequest struct {
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	BasePrice       decimal.Decimal `json:"basePrice" validate:"required"`
	PricePerUnit    decimal.Decimal `json:"pricePerUnit"`
	MinimumQuantity int             `json:"minimumQuantity" validate:"min=1"`
}

// UpdateVariantRequest contains data for updating a service variant.
type UpdateVariantRequest struct {
	Name            *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	BasePrice       *decimal.Decimal `json:"basePrice,omitempty"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit,omitempty"`
	MinimumQuantity *int             `json:"minimumQuantity,omitempty" validate:"omitempty,min=1"`
	IsActive        *bool            `json:"isActive,omitempty"`
}

// CreateServiceRequest contains data for creating a service with variants.
type CreateServiceRequest struct {
	Name        string           `json:"name" validate:"required,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Variants    []VariantRequest `json:"variants" validate:"required,min=1,dive"`
}

// UpdateServiceRequest contains data for updating a service.
type UpdateServiceRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// VariantResponse represents a service variant in API responses.
type VariantResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	BasePrice       decimal.Decimal `json:"basePrice"`
	PricePerUnit    decimal.Decimal `json:"pricePerUnit"`
	MinimumQuantity int             `json:"minimumQuantity"`
	IsActive        bool            `json:"isActive"`
}

// ServiceResponse represents a service in API responses.
type ServiceResponse struct {
	ID          uuid.UUID         `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	IsActive    bool              `json:"isActive"`
	Variants    []VariantResponse `json:"variants"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

// ServiceListResponse wraps a list of services.
type ServiceListResponse struct {
	Items []ServiceResponse `json:"items"`
	Total int               `json:"total"`
}

// EstimateRequest asks the server to price a configuration. Exactly one of
// ProductTemplateID or the ServiceID/VariantID pair must be set.
type EstimateRequest struct {
	ProductTemplateID *uuid.UUID     `json:"productTemplateId,omitempty"`
	ServiceID         *uuid.UUID     `json:"serviceId,omitempty"`
	VariantID         *uuid.UUID     `json:"variantId,omitempty"`
	Selections        map[string]any `json:"selections,omitempty"`
	Quantity          int            `json:"quantity" validate:"min=1"`
}

// EstimateResponse is the server-computed price for a configuration.
type EstimateResponse struct {
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Negative   bool            `json:"negative,omitempty"`
}
