// Package service contains catalog business logic: template and service
// management, configurator schema validation, and server-side price estimates.
package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"printstudio_backend/internal/catalog/repository"
	"printstudio_backend/internal/catalog/transport"
	"printstudio_backend/internal/pricing"
	"printstudio_backend/platform/apperr"
	"printstudio_backend/platform/logger"
)

// Service implements catalog use cases on top of the repository.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new catalog service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ListTemplates returns templates; non-admin callers see active ones only.
func (s *Service) ListTemplates(ctx context.Context, includeInactive bool) (transport.TemplateListResponse, error) {
	templates, err := s.repo.ListTemplates(ctx, !includeInactive)
	if err != nil {
		return transport.TemplateListResponse{}, err
	}

	items := make([]transport.TemplateResponse, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, toTemplateResponse(tpl))
	}
	return transport.TemplateListResponse{Items: items, Total: len(items)}, nil
}

// GetTemplate returns a single template. Inactive templates are hidden from
// non-admin callers.
func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID, includeInactive bool) (transport.TemplateResponse, error) {
	tpl, err := s.repo.GetTemplateByID(ctx, id)
	if err != nil {
		return transport.TemplateResponse{}, err
	}
	if !tpl.IsActive && !includeInactive {
		return transport.TemplateResponse{}, apperr.NotFound("product template not found")
	}
	return toTemplateResponse(tpl), nil
}

// CreateTemplate validates the configurator schema and creates the template.
func (s *Service) CreateTemplate(ctx context.Context, req transport.CreateTemplateRequest) (transport.TemplateResponse, error) {
	if req.BasePrice.IsNegative() {
		return transport.TemplateResponse{}, apperr.Validation("base price cannot be negative")
	}
	if err := validateSchemaDocument(req.ConfigSchema); err != nil {
		return transport.TemplateResponse{}, err
	}

	minQty := req.MinimumQuantity
	if minQty < 1 {
		minQty = 1
	}

	tpl, err := s.repo.CreateTemplate(ctx, repository.CreateTemplateParams{
		Slug:            slugify(req.Name),
		Name:            req.Name,
		Description:     req.Description,
		BasePrice:       req.BasePrice,
		MinimumQuantity: minQty,
		ConfigSchema:    req.ConfigSchema,
		Images:          req.Images,
	})
	if err != nil {
		return transport.TemplateResponse{}, err
	}
	return toTemplateResponse(tpl), nil
}

// UpdateTemplate validates any replacement schema and applies the update.
func (s *Service) UpdateTemplate(ctx context.Context, id uuid.UUID, req transport.UpdateTemplateRequest) (transport.TemplateResponse, error) {
	if req.BasePrice != nil && req.BasePrice.IsNegative() {
		return transport.TemplateResponse{}, apperr.Validation("base price cannot be negative")
	}
	if len(req.ConfigSchema) > 0 {
		if err := validateSchemaDocument(req.ConfigSchema); err != nil {
			return transport.TemplateResponse{}, err
		}
	}

	tpl, err := s.repo.UpdateTemplate(ctx, repository.UpdateTemplateParams{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		BasePrice:       req.BasePrice,
		MinimumQuantity: req.MinimumQuantity,
		ConfigSchema:    req.ConfigSchema,
		Images:          req.Images,
		IsActive:        req.IsActive,
	})
	if err != nil {
		return transport.TemplateResponse{}, err
	}
	return toTemplateResponse(tpl), nil
}

// DeleteTemplate removes a template permanently.
func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTemplate(ctx, id)
}

// ListServices returns services; non-admin callers see active ones only.
func (s *Service) ListServices(ctx context.Context, includeInactive bool) (transport.ServiceListResponse, error) {
	services, err := s.repo.ListServices(ctx, !includeInactive)
	if err != nil {
		return transport.ServiceListResponse{}, err
	}

	items := make([]transport.ServiceResponse, 0, len(services))
	for _, svc := range services {
		items = append(items, toServiceResponse(svc))
	}
	return transport.ServiceListResponse{Items: items, Total: len(items)}, nil
}

// GetService returns a single service with its variants.
func (s *Service) GetService(ctx context.Context, id uuid.UUID, includeInactive bool) (transport.ServiceResponse, error) {
	svc, err := s.repo.GetServiceByID(ctx, id)
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	if !svc.IsActive && !includeInactive {
		return transport.ServiceResponse{}, apperr.NotFound("service not found")
	}
	return toServiceResponse(svc), nil
}

// CreateService creates a service with its initial variants.
func (s *Service) CreateService(ctx context.Context, req transport.CreateServiceRequest) (transport.ServiceResponse, error) {
	variants := make([]repository.CreateVariantParams, 0, len(req.Variants))
	for _, v := range req.Variants {
		if v.BasePrice.IsNegative() || v.PricePerUnit.IsNegative() {
			return transport.ServiceResponse{}, apperr.Validation("variant prices cannot be negative")
		}
		minQty := v.MinimumQuantity
		if minQty < 1 {
			minQty = 1
		}
		variants = append(variants, repository.CreateVariantParams{
			Name:            v.Name,
			BasePrice:       v.BasePrice,
			PricePerUnit:    v.PricePerUnit,
			MinimumQuantity: minQty,
		})
	}

	svc, err := s.repo.CreateService(ctx, repository.CreateServiceParams{
		Slug:        slugify(req.Name),
		Name:        req.Name,
		Description: req.Description,
		Variants:    variants,
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	return toServiceResponse(svc), nil
}

// UpdateService applies a partial update to a service.
func (s *Service) UpdateService(ctx context.Context, id uuid.UUID, req transport.UpdateServiceRequest) (transport.ServiceResponse, error) {
	svc, err := s.repo.UpdateService(ctx, repository.UpdateServiceParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return transport.ServiceResponse{}, err
	}
	return toServiceResponse(svc), nil
}

// DeleteService removes a service and its variants.
func (s *Service) DeleteService(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteService(ctx, id)
}

// CreateVariant adds a price tier to a service.
func (s *Service) CreateVariant(ctx context.Context, serviceID uuid.UUID, req transport.VariantRequest) (transport.VariantResponse, error) {
	if req.BasePrice.IsNegative() || req.PricePerUnit.IsNegative() {
		return transport.VariantResponse{}, apperr.Validation("variant prices cannot be negative")
	}
	minQty := req.MinimumQuantity
	if minQty < 1 {
		minQty = 1
	}

	v, err := s.repo.CreateVariant(ctx, serviceID, repository.CreateVariantParams{
		Name:            req.Name,
		BasePrice:       req.BasePrice,
		PricePerUnit:    req.PricePerUnit,
		MinimumQuantity: minQty,
	})
	if err != nil {
		return transport.VariantResponse{}, err
	}
	return toVariantResponse(v), nil
}

// UpdateVariant applies a partial update to a service variant.
func (s *Service) UpdateVariant(ctx context.Context, serviceID, variantID uuid.UUID, req transport.UpdateVariantRequest) (transport.VariantResponse, error) {
	if req.BasePrice != nil && req.BasePrice.IsNegative() {
		return transport.VariantResponse{}, apperr.Validation("variant prices cannot be negative")
	}
	if req.PricePerUnit != nil && req.PricePerUnit.IsNegative() {
		return transport.VariantResponse{}, apperr.Validation("variant prices cannot be negative")
	}

	v, err := s.repo.UpdateVariant(ctx, repository.UpdateVariantParams{
		ID:              variantID,
		ServiceID:       serviceID,
		Name:            req.Name,
		BasePrice:       req.BasePrice,
		PricePerUnit:    req.PricePerUnit,
		MinimumQuantity: req.MinimumQuantity,
		IsActive:        req.IsActive,
	})
	if err != nil {
		return transport.VariantResponse{}, err
	}
	return toVariantResponse(v), nil
}

// DeleteVariant removes a price tier from a service.
func (s *Service) DeleteVariant(ctx context.Context, serviceID, variantID uuid.UUID) error {
	return s.repo.DeleteVariant(ctx, serviceID, variantID)
}

// Estimate recomputes a configuration's price server-side. Client-side
// estimates are advisory; this is the authoritative calculation.
func (s *Service) Estimate(ctx context.Context, req transport.EstimateRequest) (transport.EstimateResponse, error) {
	breakdown, err := s.estimate(ctx, req)
	if err != nil {
		return transport.EstimateResponse{}, err
	}

	if breakdown.Negative {
		s.log.Warn("estimate produced negative price",
			"unitPrice", breakdown.UnitPrice.String(),
			"quantity", req.Quantity,
		)
	}

	return transport.EstimateResponse{
		UnitPrice:  breakdown.UnitPrice,
		TotalPrice: breakdown.TotalPrice,
		Negative:   breakdown.Negative,
	}, nil
}

func (s *Service) estimate(ctx context.Context, req transport.EstimateRequest) (pricing.Breakdown, error) {
	hasProduct := req.ProductTemplateID != nil
	hasService := req.ServiceID != nil || req.VariantID != nil
	if hasProduct == hasService {
		return pricing.Breakdown{}, apperr.Validation("exactly one of productTemplateId or serviceId/variantId is required")
	}

	if hasProduct {
		tpl, err := s.repo.GetTemplateByID(ctx, *req.ProductTemplateID)
		if err != nil {
			return pricing.Breakdown{}, err
		}
		if !tpl.IsActive {
			return pricing.Breakdown{}, apperr.NotFound("product template not found")
		}
		if req.Quantity < tpl.MinimumQuantity {
			return pricing.Breakdown{}, apperr.Validation("quantity is below the product minimum").
				WithDetails(map[string]int{"minimumQuantity": tpl.MinimumQuantity})
		}

		schema, err := pricing.ParseSchema(tpl.ConfigSchema)
		if err != nil {
			return pricing.Breakdown{}, err
		}
		return pricing.ComputePrice(schema, req.Selections, req.Quantity, tpl.BasePrice)
	}

	if req.ServiceID == nil || req.VariantID == nil {
		return pricing.Breakdown{}, apperr.Validation("serviceId and variantId are both required for service estimates")
	}

	variant, err := s.repo.GetVariantByID(ctx, *req.ServiceID, *req.VariantID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	if !variant.IsActive {
		return pricing.Breakdown{}, apperr.NotFound("service variant not found")
	}
	if req.Quantity < variant.MinimumQuantity {
		return pricing.Breakdown{}, apperr.Validation("quantity is below the variant minimum").
			WithDetails(map[string]int{"minimumQuantity": variant.MinimumQuantity})
	}

	return pricing.ComputeServicePrice(variant.BasePrice, variant.PricePerUnit, req.Quantity)
}

func validateSchemaDocument(raw []byte) error {
	schema, err := pricing.ParseSchema(raw)
	if err != nil {
		return err
	}
	return schema.Validate()
}

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugSanitizer.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func toTemplateResponse(tpl repository.ProductTemplate) transport.TemplateResponse {
	return transport.TemplateResponse{
		ID:              tpl.ID,
		Slug:            tpl.Slug,
		Name:            tpl.Name,
		Description:     tpl.Description,
		BasePrice:       tpl.BasePrice,
		MinimumQuantity: tpl.MinimumQuantity,
		ConfigSchema:    tpl.ConfigSchema,
		Images:          tpl.Images,
		IsActive:        tpl.IsActive,
		CreatedAt:       tpl.CreatedAt,
		UpdatedAt:       tpl.UpdatedAt,
	}
}

func toServiceResponse(svc repository.Service) transport.ServiceResponse {
	variants := make([]transport.VariantResponse, 0, len(svc.Variants))
	for _, v := range svc.Variants {
		variants = append(variants, toVariantResponse(v))
	}
	return transport.ServiceResponse{
		ID:          svc.ID,
		Slug:        svc.Slug,
		Name:        svc.Name,
		Description: svc.Description,
		IsActive:    svc.IsActive,
		Variants:    variants,
		CreatedAt:   svc.CreatedAt,
		UpdatedAt:   svc.UpdatedAt,
	}
}

func toVariantResponse(v repository.ServiceVariant) transport.VariantResponse {
	return transport.VariantResponse{
		ID:              v.ID,
		Name:            v.Name,
		BasePrice:       v.BasePrice,
		PricePerUnit:    v.PricePerUnit,
		MinimumQuantity: v.MinimumQuantity,
		IsActive:        v.IsActive,
	}
}
