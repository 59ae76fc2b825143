package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"printstudio_backend/platform/apperr"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testSchema() Schema {
	return Schema{Sections: []Section{
		{
			Key:   "paper",
			Label: "Paper type",
			Type:  SectionDropdown,
			Options: []Option{
				{Label: "Standard", Value: "A", PriceMod: dec("0")},
				{Label: "Premium", Value: "B", PriceMod: dec("50")},
			},
		},
		{
			Key:          "pages",
			Label:        "Extra pages",
			Type:         SectionNumberInput,
			PricePerUnit: decPtr("5"),
		},
		{
			Key:   "note",
			Label: "Print note",
			Type:  SectionTextInput,
		},
	}}
}

func TestComputePrice_OptionModifierComposition(t *testing.T) {
	result, err := ComputePrice(testSchema(), Selections{"paper": "B"}, 2, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("150")) {
		t.Fatalf("expected unit price 150, got %s", result.UnitPrice)
	}
	if !result.TotalPrice.Equal(dec("300")) {
		t.Fatalf("expected total price 300, got %s", result.TotalPrice)
	}
}

func TestComputePrice_NumberInputScalesPerUnit(t *testing.T) {
	result, err := ComputePrice(testSchema(), Selections{"pages": "3"}, 1, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("115")) {
		t.Fatalf("expected unit price 115, got %s", result.UnitPrice)
	}
}

func TestComputePrice_Deterministic(t *testing.T) {
	selections := Selections{"paper": "B", "pages": float64(4), "note": "rush"}
	first, err := ComputePrice(testSchema(), selections, 3, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ComputePrice(testSchema(), selections, 3, dec("100"))
		if err != nil {
			t.Fatalf("unexpected error on run %d: %v", i, err)
		}
		if !again.UnitPrice.Equal(first.UnitPrice) || !again.TotalPrice.Equal(first.TotalPrice) {
			t.Fatalf("run %d diverged: %s/%s vs %s/%s", i, again.UnitPrice, again.TotalPrice, first.UnitPrice, first.TotalPrice)
		}
	}
}

func TestComputePrice_UnknownOptionValueIsValidationError(t *testing.T) {
	_, err := ComputePrice(testSchema(), Selections{"paper": "Z"}, 1, dec("100"))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputePrice_UnknownKeysIgnored(t *testing.T) {
	result, err := ComputePrice(testSchema(), Selections{"paper": "A", "legacy_field": "x"}, 1, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("100")) {
		t.Fatalf("expected unit price 100, got %s", result.UnitPrice)
	}
}

func TestComputePrice_MissingAndNonNumericAnswersContributeNothing(t *testing.T) {
	result, err := ComputePrice(testSchema(), Selections{"pages": "not a number"}, 2, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("100")) {
		t.Fatalf("expected unit price 100, got %s", result.UnitPrice)
	}
	if !result.TotalPrice.Equal(dec("200")) {
		t.Fatalf("expected total price 200, got %s", result.TotalPrice)
	}
}

func TestComputePrice_TextInputNeverAffectsPrice(t *testing.T) {
	result, err := ComputePrice(testSchema(), Selections{"note": "deliver by friday"}, 1, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("100")) {
		t.Fatalf("expected unit price 100, got %s", result.UnitPrice)
	}
}

func TestComputePrice_NegativeUnitPriceFlaggedNotClamped(t *testing.T) {
	schema := Schema{Sections: []Section{{
		Key:  "promo",
		Type: SectionDropdown,
		Options: []Option{
			{Label: "Clearance", Value: "big_discount", PriceMod: dec("-200")},
		},
	}}}

	result, err := ComputePrice(schema, Selections{"promo": "big_discount"}, 1, dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("-100")) {
		t.Fatalf("expected unit price -100, got %s", result.UnitPrice)
	}
	if !result.Negative {
		t.Fatal("expected negative flag to be set")
	}
}

func TestComputePrice_NumberBoundsEnforced(t *testing.T) {
	schema := Schema{Sections: []Section{{
		Key:          "copies",
		Type:         SectionNumberInput,
		MinVal:       decPtr("1"),
		MaxVal:       decPtr("10"),
		PricePerUnit: decPtr("2"),
	}}}

	if _, err := ComputePrice(schema, Selections{"copies": "11"}, 1, dec("50")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error above maximum, got %v", err)
	}
	if _, err := ComputePrice(schema, Selections{"copies": "0"}, 1, dec("50")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error below minimum, got %v", err)
	}
}

func TestComputePrice_NonPositiveQuantityRejected(t *testing.T) {
	if _, err := ComputePrice(testSchema(), Selections{}, 0, dec("100")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestComputeServicePrice_TierPlusPerUnit(t *testing.T) {
	result, err := ComputeServicePrice(dec("500"), dec("12.50"), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.UnitPrice.Equal(dec("500")) {
		t.Fatalf("expected unit price 500, got %s", result.UnitPrice)
	}
	if !result.TotalPrice.Equal(dec("625")) {
		t.Fatalf("expected total price 625, got %s", result.TotalPrice)
	}
}

func TestParseSchema_WireFormatRoundTrip(t *testing.T) {
	raw := json.RawMessage(`{"sections":[{"key":"size","label":"Size","type":"dropdown","options":[{"label":"A4","value":"a4","price_mod":0},{"label":"A3","value":"a3","price_mod":25.5}]},{"key":"qty_extra","label":"Extras","type":"number_input","min_val":0,"max_val":100,"price_per_unit":1.25}]}`)

	schema, err := ParseSchema(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(schema.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(schema.Sections))
	}
	if schema.Sections[0].Options[1].PriceMod.String() != "25.5" {
		t.Fatalf("expected price_mod 25.5, got %s", schema.Sections[0].Options[1].PriceMod)
	}
	if schema.Sections[1].PricePerUnit == nil || schema.Sections[1].PricePerUnit.String() != "1.25" {
		t.Fatalf("expected price_per_unit 1.25, got %v", schema.Sections[1].PricePerUnit)
	}
	if err := schema.Validate(); err != nil {
		t.Fatalf("expected valid schema, got %v", err)
	}
}

func TestSchemaValidate_RejectsBadSchemas(t *testing.T) {
	cases := []struct {
		name   string
		schema Schema
	}{
		{"dropdown without options", Schema{Sections: []Section{{Key: "a", Type: SectionDropdown}}}},
		{"duplicate section keys", Schema{Sections: []Section{
			{Key: "a", Type: SectionTextInput},
			{Key: "a", Type: SectionTextInput},
		}}},
		{"duplicate option values", Schema{Sections: []Section{{
			Key:  "a",
			Type: SectionRadio,
			Options: []Option{
				{Value: "x", PriceMod: dec("0")},
				{Value: "x", PriceMod: dec("1")},
			},
		}}}},
		{"unknown section type", Schema{Sections: []Section{{Key: "a", Type: "slider"}}}},
		{"inverted number bounds", Schema{Sections: []Section{{
			Key: "a", Type: SectionNumberInput, MinVal: decPtr("10"), MaxVal: decPtr("1"),
		}}}},
	}

	for _, tc := range cases {
		if err := tc.schema.Validate(); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}
