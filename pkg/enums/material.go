package enums

import "fmt"

// MaterialType maps to the material_type enum in Postgres. The classifier
// returns free-text types; internal/pipeline maps them onto this closed set.
type MaterialType string

const (
	MaterialTypeFabric    MaterialType = "fabric"
	MaterialTypeTrim      MaterialType = "trim"
	MaterialTypeHardware  MaterialType = "hardware"
	MaterialTypeNotion    MaterialType = "notion"
	MaterialTypePackaging MaterialType = "packaging"
	MaterialTypeLabeling  MaterialType = "labeling"
)

var validMaterialTypes = []MaterialType{
	MaterialTypeFabric,
	MaterialTypeTrim,
	MaterialTypeHardware,
	MaterialTypeNotion,
	MaterialTypePackaging,
	MaterialTypeLabeling,
}

// String implements fmt.Stringer.
func (m MaterialType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MaterialType.
func (m MaterialType) IsValid() bool {
	for _, candidate := range validMaterialTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMaterialType converts raw input into a MaterialType.
func ParseMaterialType(value string) (MaterialType, error) {
	for _, candidate := range validMaterialTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid material type %q", value)
}
