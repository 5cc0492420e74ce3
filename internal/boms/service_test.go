package bom

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
)

func TestValidateStatusEdit(t *testing.T) {
	if err := validateStatusEdit(enums.BOMStatusPendingVerification); err != nil {
		t.Fatalf("pending_verification should be settable: %v", err)
	}
	if err := validateStatusEdit(enums.BOMStatusVerified); err != nil {
		t.Fatalf("verified should be settable: %v", err)
	}
	for _, status := range []enums.BOMStatus{enums.BOMStatusDraft, enums.BOMStatusLocked} {
		err := validateStatusEdit(status)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %s, got %v", status, err)
		}
	}
}

func TestValidateItem(t *testing.T) {
	valid := ItemInput{
		Name:         "organic cotton",
		MaterialType: enums.MaterialTypeFabric,
		Quantity:     decimal.NewFromFloat(1.5),
	}
	if err := validateItem(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missingName := valid
	missingName.Name = ""
	if err := validateItem(missingName); err == nil {
		t.Fatal("expected error for missing name")
	}

	badType := valid
	badType.MaterialType = enums.MaterialType("plastic")
	if err := validateItem(badType); err == nil {
		t.Fatal("expected error for unknown material type")
	}

	negative := valid
	negative.Quantity = decimal.NewFromInt(-1)
	if err := validateItem(negative); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestBuildItemsReconcilesTotals(t *testing.T) {
	bomID := uuid.New()
	unitCost := decimal.RequireFromString("4.25")
	items := buildItems(bomID, []ItemInput{
		{
			Category:     "fabric",
			Name:         "organic cotton",
			MaterialType: enums.MaterialTypeFabric,
			Quantity:     decimal.RequireFromString("1.333"),
			Unit:         "m",
			UnitCost:     &unitCost,
		},
		{
			Category:     "trim",
			Name:         "buttons",
			MaterialType: enums.MaterialTypeTrim,
			Quantity:     decimal.NewFromInt(8),
			Unit:         "pcs",
		},
	})

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].TotalCost == nil {
		t.Fatal("expected total cost when unit cost present")
	}

	want := unitCost.Mul(decimal.RequireFromString("1.333")).Round(2)
	diff := items[0].TotalCost.Sub(want).Abs()
	if diff.GreaterThan(decimal.RequireFromString("0.01")) {
		t.Fatalf("total cost off by %s", diff)
	}
	if items[1].TotalCost != nil {
		t.Fatal("expected nil total cost without unit cost")
	}
}

func TestSumItemCosts(t *testing.T) {
	if sumItemCosts(nil) != nil {
		t.Fatal("expected nil sum for no items")
	}

	a := decimal.RequireFromString("5.10")
	b := decimal.RequireFromString("2.45")
	items := []models.BOMItem{
		{TotalCost: &a},
		{TotalCost: nil},
		{TotalCost: &b},
	}
	total := sumItemCosts(items)
	if total == nil {
		t.Fatal("expected a sum")
	}
	if !total.Equal(decimal.RequireFromString("7.55")) {
		t.Fatalf("expected 7.55, got %s", total)
	}
}

func TestApplyLockRecordsVerifier(t *testing.T) {
	userID := uuid.New()
	bom := &models.BOM{
		ID:     uuid.New(),
		Status: enums.BOMStatusVerified,
	}
	now := time.Now().UTC()

	applyLock(bom, userID, now)

	if bom.Status != enums.BOMStatusLocked {
		t.Fatalf("expected locked status, got %s", bom.Status)
	}
	if bom.LockedAt == nil || !bom.LockedAt.Equal(now) {
		t.Fatalf("lock timestamp not recorded: %v", bom.LockedAt)
	}
	if bom.VerifiedBy == nil || *bom.VerifiedBy != userID {
		t.Fatalf("locking user not recorded as verifier: %v", bom.VerifiedBy)
	}
}
