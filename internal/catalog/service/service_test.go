package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"printstudio_backend/internal/catalog/repository"
	"printstudio_backend/internal/catalog/transport"
	"printstudio_backend/platform/apperr"
	"printstudio_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	template repository.ProductTemplate
	variant  repository.ServiceVariant
}

func (f *fakeRepo) GetTemplateByID(_ context.Context, id uuid.UUID) (repository.ProductTemplate, error) {
	if id != f.template.ID {
		return repository.ProductTemplate{}, apperr.NotFound("product template not found")
	}
	return f.template, nil
}

func (f *fakeRepo) GetVariantByID(_ context.Context, serviceID, variantID uuid.UUID) (repository.ServiceVariant, error) {
	if serviceID != f.variant.ServiceID || variantID != f.variant.ID {
		return repository.ServiceVariant{}, apperr.NotFound("service variant not found")
	}
	return f.variant, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestService(repo repository.Repository) *Service {
	return New(repo, logger.New("test"))
}

func testTemplate() repository.ProductTemplate {
	return repository.ProductTemplate{
		ID:              uuid.New(),
		Slug:            "business-cards",
		Name:            "Business Cards",
		BasePrice:       dec("100"),
		MinimumQuantity: 50,
		IsActive:        true,
		ConfigSchema: json.RawMessage(`{"sections":[
			{"key":"finish","label":"Finish","type":"dropdown","options":[
				{"label":"Matte","value":"matte","price_mod":0},
				{"label":"Glossy","value":"glossy","price_mod":20}
			]}
		]}`),
	}
}

func TestEstimate_ProductTemplate(t *testing.T) {
	tpl := testTemplate()
	svc := newTestService(&fakeRepo{template: tpl})

	result, err := svc.Estimate(context.Background(), transport.EstimateRequest{
		ProductTemplateID: &tpl.ID,
		Selections:        map[string]any{"finish": "glossy"},
		Quantity:          100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("120")) {
		t.Fatalf("expected unit price 120, got %s", result.UnitPrice)
	}
	if !result.TotalPrice.Equal(dec("12000")) {
		t.Fatalf("expected total price 12000, got %s", result.TotalPrice)
	}
}

func TestEstimate_BelowMinimumQuantityRejected(t *testing.T) {
	tpl := testTemplate()
	svc := newTestService(&fakeRepo{template: tpl})

	_, err := svc.Estimate(context.Background(), transport.EstimateRequest{
		ProductTemplateID: &tpl.ID,
		Quantity:          10,
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEstimate_InactiveTemplateHidden(t *testing.T) {
	tpl := testTemplate()
	tpl.IsActive = false
	svc := newTestService(&fakeRepo{template: tpl})

	_, err := svc.Estimate(context.Background(), transport.EstimateRequest{
		ProductTemplateID: &tpl.ID,
		Quantity:          100,
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEstimate_ServiceVariant(t *testing.T) {
	variant := repository.ServiceVariant{
		ID:              uuid.New(),
		ServiceID:       uuid.New(),
		Name:            "Large format",
		BasePrice:       dec("500"),
		PricePerUnit:    dec("12.50"),
		MinimumQuantity: 1,
		IsActive:        true,
	}
	svc := newTestService(&fakeRepo{variant: variant})

	result, err := svc.Estimate(context.Background(), transport.EstimateRequest{
		ServiceID: &variant.ServiceID,
		VariantID: &variant.ID,
		Quantity:  10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.TotalPrice.Equal(dec("625")) {
		t.Fatalf("expected total price 625, got %s", result.TotalPrice)
	}
}

func TestEstimate_RequiresExactlyOneTarget(t *testing.T) {
	tpl := testTemplate()
	svc := newTestService(&fakeRepo{template: tpl})

	serviceID := uuid.New()
	cases := []transport.EstimateRequest{
		{Quantity: 1},
		{ProductTemplateID: &tpl.ID, ServiceID: &serviceID, Quantity: 1},
	}
	for i, req := range cases {
		if _, err := svc.Estimate(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestCreateTemplate_RejectsInvalidSchema(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.CreateTemplate(context.Background(), transport.CreateTemplateRequest{
		Name:         "Flyers",
		BasePrice:    dec("10"),
		ConfigSchema: json.RawMessage(`{"sections":[{"key":"a","type":"slider"}]}`),
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Business Cards":      "business-cards",
		"  A4 Flyers (Matte)": "a4-flyers-matte",
		"UPPER_case":          "upper-case",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
