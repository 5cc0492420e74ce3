package enums

import "fmt"

// BOMStatus maps to the bom_status enum in Postgres.
type BOMStatus string

const (
	BOMStatusDraft               BOMStatus = "draft"
	BOMStatusPendingVerification BOMStatus = "pending_verification"
	BOMStatusVerified            BOMStatus = "verified"
	BOMStatusLocked              BOMStatus = "locked"
)

var validBOMStatuses = []BOMStatus{
	BOMStatusDraft,
	BOMStatusPendingVerification,
	BOMStatusVerified,
	BOMStatusLocked,
}

// String implements fmt.Stringer.
func (s BOMStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BOMStatus.
func (s BOMStatus) IsValid() bool {
	for _, candidate := range validBOMStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBOMStatus converts raw input into a BOMStatus.
func ParseBOMStatus(value string) (BOMStatus, error) {
	for _, candidate := range validBOMStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bom status %q", value)
}
