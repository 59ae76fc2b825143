// Package pricing contains the configurator schema model and the pure price
// calculation engine. It has no persistence or transport dependencies so the
// same arithmetic runs for estimates, inquiry validation, and tests.
package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"printstudio_backend/platform/apperr"
)

// SectionType identifies how a configurator section collects its answer.
type SectionType string

const (
	SectionDropdown    SectionType = "dropdown"
	SectionRadio       SectionType = "radio"
	SectionNumberInput SectionType = "number_input"
	SectionTextInput   SectionType = "text_input"
)

// Option is a selectable choice within a dropdown or radio section.
// PriceMod is added to the unit price when the option is selected.
type Option struct {
	Label    string          `json:"label"`
	Value    string          `json:"value"`
	PriceMod decimal.Decimal `json:"price_mod"`
}

// Section is one question in a product's configurator.
type Section struct {
	Key     string      `json:"key"`
	Label   string      `json:"label"`
	Type    SectionType `json:"type"`
	Options []Option    `json:"options,omitempty"`
	// MinVal/MaxVal bound number_input answers when present.
	MinVal *decimal.Decimal `json:"min_val,omitempty"`
	MaxVal *decimal.Decimal `json:"max_val,omitempty"`
	// PricePerUnit scales a number_input answer into the unit price.
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
}

// Schema is the full configurator definition stored on a product template.
type Schema struct {
	Sections []Section `json:"sections"`
}

// ParseSchema decodes a stored configurator schema. An empty document yields
// an empty schema, which is valid (fixed-price products).
func ParseSchema(raw json.RawMessage) (Schema, error) {
	if len(raw) == 0 {
		return Schema{}, nil
	}
	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return Schema{}, apperr.Wrap(apperr.KindValidation, "malformed configurator schema", err)
	}
	return schema, nil
}

// Validate checks schema integrity rules enforced at template write time:
// known section types, unique section keys, choice sections carry at least
// one option, and option values are unique within their section.
func (s Schema) Validate() error {
	seenKeys := make(map[string]struct{}, len(s.Sections))
	for i, section := range s.Sections {
		if section.Key == "" {
			return apperr.Validation(fmt.Sprintf("section %d: key is required", i))
		}
		if _, dup := seenKeys[section.Key]; dup {
			return apperr.Validation(fmt.Sprintf("duplicate section key %q", section.Key))
		}
		seenKeys[section.Key] = struct{}{}

		switch section.Type {
		case SectionDropdown, SectionRadio:
			if len(section.Options) == 0 {
				return apperr.Validation(fmt.Sprintf("section %q: %s requires at least one option", section.Key, section.Type))
			}
			seenValues := make(map[string]struct{}, len(section.Options))
			for _, opt := range section.Options {
				if opt.Value == "" {
					return apperr.Validation(fmt.Sprintf("section %q: option value is required", section.Key))
				}
				if _, dup := seenValues[opt.Value]; dup {
					return apperr.Validation(fmt.Sprintf("section %q: duplicate option value %q", section.Key, opt.Value))
				}
				seenValues[opt.Value] = struct{}{}
			}
		case SectionNumberInput:
			if section.MinVal != nil && section.MaxVal != nil && section.MaxVal.LessThan(*section.MinVal) {
				return apperr.Validation(fmt.Sprintf("section %q: max_val is below min_val", section.Key))
			}
		case SectionTextInput:
			// no structural constraints
		default:
			return apperr.Validation(fmt.Sprintf("section %q: unknown type %q", section.Key, section.Type))
		}
	}
	return nil
}

// SectionByKey returns the section with the given key, if any.
func (s Schema) SectionByKey(key string) (Section, bool) {
	for _, section := range s.Sections {
		if section.Key == key {
			return section, true
		}
	}
	return Section{}, false
}
