package enums

import "testing"

func TestParseProductStatus(t *testing.T) {
	status, err := ParseProductStatus("processing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != ProductStatusProcessing {
		t.Fatalf("expected %s, got %s", ProductStatusProcessing, status)
	}

	if _, err := ParseProductStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestProductStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    ProductStatus
		to      ProductStatus
		allowed bool
	}{
		{"draft starts pipeline", ProductStatusDraft, ProductStatusProcessing, true},
		{"processing completes", ProductStatusProcessing, ProductStatusBOMGenerated, true},
		{"processing rolls back on failure", ProductStatusProcessing, ProductStatusDraft, true},
		{"bom generated moves to sourcing", ProductStatusBOMGenerated, ProductStatusSourcing, true},
		{"sourcing becomes ready", ProductStatusSourcing, ProductStatusReady, true},
		{"draft cannot skip to ready", ProductStatusDraft, ProductStatusReady, false},
		{"archived is terminal", ProductStatusArchived, ProductStatusDraft, false},
		{"processing cannot archive", ProductStatusProcessing, ProductStatusArchived, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
			}
		})
	}
}

func TestPipelineRunStatusTerminal(t *testing.T) {
	if PipelineRunRunning.IsTerminal() {
		t.Fatal("running should not be terminal")
	}
	if !PipelineRunFailed.IsTerminal() {
		t.Fatal("failed should be terminal")
	}
	if !PipelineRunSucceeded.IsTerminal() {
		t.Fatal("succeeded should be terminal")
	}
}

func TestParseMaterialType(t *testing.T) {
	for _, raw := range []string{"fabric", "trim", "hardware", "notion", "packaging", "labeling"} {
		if _, err := ParseMaterialType(raw); err != nil {
			t.Fatalf("expected %q to parse: %v", raw, err)
		}
	}
	if _, err := ParseMaterialType("plastic"); err == nil {
		t.Fatal("expected error for unknown material type")
	}
}

func TestCertificationTypeIsValid(t *testing.T) {
	if !CertificationGOTS.IsValid() {
		t.Fatal("gots should be valid")
	}
	if CertificationType("organic").IsValid() {
		t.Fatal("unknown certification should be invalid")
	}
}

func TestParseNotificationType(t *testing.T) {
	nt, err := ParseNotificationType("suppliers_found")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nt != NotificationTypeSuppliersFound {
		t.Fatalf("expected %s, got %s", NotificationTypeSuppliersFound, nt)
	}
}
