package enums

import "fmt"

// SupplierStatus maps to the supplier_status enum in Postgres.
type SupplierStatus string

const (
	SupplierStatusPendingVerification SupplierStatus = "pending_verification"
	SupplierStatusActive              SupplierStatus = "active"
	SupplierStatusInactive            SupplierStatus = "inactive"
)

var validSupplierStatuses = []SupplierStatus{
	SupplierStatusPendingVerification,
	SupplierStatusActive,
	SupplierStatusInactive,
}

// String implements fmt.Stringer.
func (s SupplierStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupplierStatus.
func (s SupplierStatus) IsValid() bool {
	for _, candidate := range validSupplierStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSupplierStatus converts raw input into a SupplierStatus.
func ParseSupplierStatus(value string) (SupplierStatus, error) {
	for _, candidate := range validSupplierStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supplier status %q", value)
}

// CertificationType maps to the certification_type enum in Postgres.
// Discovery maps free-text certification strings onto this closed set.
type CertificationType string

const (
	CertificationOekoTex   CertificationType = "oeko_tex"
	CertificationGOTS      CertificationType = "gots"
	CertificationISO9001   CertificationType = "iso_9001"
	CertificationISO14001  CertificationType = "iso_14001"
	CertificationFairTrade CertificationType = "fair_trade"
	CertificationBSCI      CertificationType = "bsci"
	CertificationREACH     CertificationType = "reach"
	CertificationOther     CertificationType = "other"
)

var validCertificationTypes = []CertificationType{
	CertificationOekoTex,
	CertificationGOTS,
	CertificationISO9001,
	CertificationISO14001,
	CertificationFairTrade,
	CertificationBSCI,
	CertificationREACH,
	CertificationOther,
}

// String implements fmt.Stringer.
func (c CertificationType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CertificationType.
func (c CertificationType) IsValid() bool {
	for _, candidate := range validCertificationTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCertificationType converts raw input into a CertificationType.
func ParseCertificationType(value string) (CertificationType, error) {
	for _, candidate := range validCertificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid certification type %q", value)
}
