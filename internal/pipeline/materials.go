package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

// The classifier returns free-text category and material-type strings; these
// tables map them onto the closed enums. Rules are evaluated in order and the
// first substring match wins. Category rules run before type rules because
// packaging and labeling categories override whatever the item type says.

type materialRule struct {
	substr string
	result enums.MaterialType
}

var materialCategoryRules = []materialRule{
	{substr: "packag", result: enums.MaterialTypePackaging},
	{substr: "label", result: enums.MaterialTypeLabeling},
	{substr: "tag", result: enums.MaterialTypeLabeling},
}

var materialTypeRules = []materialRule{
	{substr: "packag", result: enums.MaterialTypePackaging},
	{substr: "label", result: enums.MaterialTypeLabeling},
	{substr: "fabric", result: enums.MaterialTypeFabric},
	{substr: "textile", result: enums.MaterialTypeFabric},
	{substr: "hardware", result: enums.MaterialTypeHardware},
	{substr: "metal", result: enums.MaterialTypeHardware},
	{substr: "zip", result: enums.MaterialTypeHardware},
	{substr: "rivet", result: enums.MaterialTypeHardware},
	{substr: "buckle", result: enums.MaterialTypeHardware},
	{substr: "trim", result: enums.MaterialTypeTrim},
	{substr: "elastic", result: enums.MaterialTypeTrim},
	{substr: "ribbon", result: enums.MaterialTypeTrim},
	{substr: "notion", result: enums.MaterialTypeNotion},
	{substr: "thread", result: enums.MaterialTypeNotion},
	{substr: "button", result: enums.MaterialTypeNotion},
}

// MapMaterialType resolves the classifier's free-text (category, type) pair
// to a MaterialType. Unmatched input defaults to fabric.
func MapMaterialType(category, rawType string) enums.MaterialType {
	loweredCategory := strings.ToLower(category)
	for _, rule := range materialCategoryRules {
		if strings.Contains(loweredCategory, rule.substr) {
			return rule.result
		}
	}
	loweredType := strings.ToLower(rawType)
	for _, rule := range materialTypeRules {
		if strings.Contains(loweredType, rule.substr) {
			return rule.result
		}
	}
	return enums.MaterialTypeFabric
}

type certificationRule struct {
	substr string
	result enums.CertificationType
}

var certificationRules = []certificationRule{
	{substr: "oeko", result: enums.CertificationOekoTex},
	{substr: "gots", result: enums.CertificationGOTS},
	{substr: "9001", result: enums.CertificationISO9001},
	{substr: "14001", result: enums.CertificationISO14001},
	{substr: "fair", result: enums.CertificationFairTrade},
	{substr: "bsci", result: enums.CertificationBSCI},
	{substr: "reach", result: enums.CertificationREACH},
}

// MapCertification resolves a free-text certification string to the closed
// enum, defaulting to other.
func MapCertification(raw string) enums.CertificationType {
	lowered := strings.ToLower(raw)
	for _, rule := range certificationRules {
		if strings.Contains(lowered, rule.substr) {
			return rule.result
		}
	}
	return enums.CertificationOther
}

var quantityPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseQuantity extracts a quantity from the classifier's raw JSON, which is
// either a number or a free-text string like "2.5 meters". For strings the
// first numeric substring is used.
func ParseQuantity(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Decimal{}, fmt.Errorf("quantity missing")
	}
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return decimal.NewFromFloat(asNumber), nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return decimal.Decimal{}, fmt.Errorf("quantity is neither number nor string: %s", string(raw))
	}
	match := quantityPattern.FindString(asString)
	if match == "" {
		return decimal.Decimal{}, fmt.Errorf("no numeric quantity in %q", asString)
	}
	qty, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing quantity %q: %w", match, err)
	}
	return qty, nil
}
