package pricing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"printstudio_backend/platform/apperr"
)

// Selections maps a section key to the customer's raw answer as it arrives
// from JSON: an option value string, a number (or numeric string), or text.
type Selections map[string]any

// Selection is one resolved answer, typed against its schema section.
// Exactly one of Option, Number, or Text carries the value.
type Selection struct {
	Section Section
	Option  *Option
	Number  *decimal.Decimal
	Text    string
}

// Breakdown is the result of a price computation. All accumulation is exact
// decimal arithmetic; rounding happens only at presentation.
type Breakdown struct {
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	// Negative is set when modifiers drive the unit price below zero.
	// The price still flows through; callers decide whether to warn.
	Negative bool `json:"negative,omitempty"`
}

// ResolveSelections validates raw selections against the schema and returns
// them typed, in schema section order. Unknown keys in the input are ignored.
// A dropdown/radio answer that is not one of the section's option values is a
// validation error. Missing or non-numeric number answers are skipped and
// contribute nothing to the price.
func ResolveSelections(schema Schema, raw Selections) ([]Selection, error) {
	resolved := make([]Selection, 0, len(schema.Sections))

	for _, section := range schema.Sections {
		value, present := raw[section.Key]
		if !present || value == nil {
			continue
		}

		switch section.Type {
		case SectionDropdown, SectionRadio:
			chosen, ok := value.(string)
			if !ok {
				return nil, apperr.Validation(fmt.Sprintf("section %q: selection must be an option value", section.Key))
			}
			if chosen == "" {
				continue
			}
			opt, found := findOption(section.Options, chosen)
			if !found {
				return nil, apperr.Validation(fmt.Sprintf("section %q: unknown option %q", section.Key, chosen))
			}
			resolved = append(resolved, Selection{Section: section, Option: &opt})

		case SectionNumberInput:
			num, ok := parseNumeric(value)
			if !ok {
				continue
			}
			if section.MinVal != nil && num.LessThan(*section.MinVal) {
				return nil, apperr.Validation(fmt.Sprintf("section %q: value below minimum %s", section.Key, section.MinVal.String()))
			}
			if section.MaxVal != nil && num.GreaterThan(*section.MaxVal) {
				return nil, apperr.Validation(fmt.Sprintf("section %q: value above maximum %s", section.Key, section.MaxVal.String()))
			}
			resolved = append(resolved, Selection{Section: section, Number: &num})

		case SectionTextInput:
			text, ok := value.(string)
			if !ok {
				return nil, apperr.Validation(fmt.Sprintf("section %q: selection must be text", section.Key))
			}
			resolved = append(resolved, Selection{Section: section, Text: text})
		}
	}

	return resolved, nil
}

// ComputePrice derives the price for a configured product. The unit price is
// the base price plus option modifiers plus number answers scaled by their
// per-unit rate; the total is the unit price times quantity. Deterministic
// for identical inputs.
func ComputePrice(schema Schema, raw Selections, quantity int, basePrice decimal.Decimal) (Breakdown, error) {
	if quantity <= 0 {
		return Breakdown{}, apperr.Validation("quantity must be positive")
	}

	selections, err := ResolveSelections(schema, raw)
	if err != nil {
		return Breakdown{}, err
	}

	unit := basePrice
	for _, sel := range selections {
		switch {
		case sel.Option != nil:
			unit = unit.Add(sel.Option.PriceMod)
		case sel.Number != nil && sel.Section.PricePerUnit != nil:
			unit = unit.Add(sel.Number.Mul(*sel.Section.PricePerUnit))
		}
	}

	total := unit.Mul(decimal.NewFromInt(int64(quantity)))
	return Breakdown{
		UnitPrice:  unit,
		TotalPrice: total,
		Negative:   unit.IsNegative(),
	}, nil
}

// ComputeServicePrice derives the price for a service variant. Services price
// the tier, not per-unit scaling of options: total is the variant base price
// plus the variant's per-unit rate times quantity. The reported unit price is
// the tier base.
func ComputeServicePrice(basePrice, pricePerUnit decimal.Decimal, quantity int) (Breakdown, error) {
	if quantity <= 0 {
		return Breakdown{}, apperr.Validation("quantity must be positive")
	}

	total := basePrice.Add(pricePerUnit.Mul(decimal.NewFromInt(int64(quantity))))
	return Breakdown{
		UnitPrice:  basePrice,
		TotalPrice: total,
		Negative:   total.IsNegative(),
	}, nil
}

func findOption(options []Option, value string) (Option, bool) {
	for _, opt := range options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// parseNumeric accepts the loose numeric shapes JSON submissions produce.
func parseNumeric(value any) (decimal.Decimal, bool) {
	switch typed := value.(type) {
	case float64:
		return decimal.NewFromFloat(typed), true
	case int:
		return decimal.NewFromInt(int64(typed)), true
	case int64:
		return decimal.NewFromInt(typed), true
	case json.Number:
		d, err := decimal.NewFromString(typed.String())
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}
