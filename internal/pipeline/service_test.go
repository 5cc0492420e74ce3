package pipeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
)

func mustDecimal(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(value)
}

func decimalPtrFrom(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d := decimal.RequireFromString(value)
	return &d
}

func draftProduct() *models.Product {
	return &models.Product{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "Denim Jacket",
		Status: enums.ProductStatusDraft,
	}
}

func oneAsset() []models.ProductAsset {
	return []models.ProductAsset{{ID: uuid.New(), URL: "https://cdn.test/denim.jpg", ObjectKey: "products/denim.jpg"}}
}

func TestValidateStart(t *testing.T) {
	cases := []struct {
		name        string
		status      enums.ProductStatus
		assets      []models.ProductAsset
		yieldBuffer *float64
		wantBuffer  float64
		wantCode    pkgerrors.Code
	}{
		{name: "defaultsYieldBufferToTen", status: enums.ProductStatusDraft, assets: oneAsset(), wantBuffer: 10},
		{name: "acceptsExplicitBuffer", status: enums.ProductStatusDraft, assets: oneAsset(), yieldBuffer: floatPtr(25), wantBuffer: 25},
		{name: "acceptsZeroBuffer", status: enums.ProductStatusDraft, assets: oneAsset(), yieldBuffer: floatPtr(0), wantBuffer: 0},
		{name: "rejectsNegativeBuffer", status: enums.ProductStatusDraft, assets: oneAsset(), yieldBuffer: floatPtr(-1), wantCode: pkgerrors.CodeValidation},
		{name: "rejectsBufferAboveFifty", status: enums.ProductStatusDraft, assets: oneAsset(), yieldBuffer: floatPtr(51), wantCode: pkgerrors.CodeValidation},
		{name: "rejectsMissingAssets", status: enums.ProductStatusDraft, assets: nil, wantCode: pkgerrors.CodeValidation},
		{name: "rejectsProcessingProduct", status: enums.ProductStatusProcessing, assets: oneAsset(), wantCode: pkgerrors.CodeStateConflict},
		{name: "rejectsSourcingProduct", status: enums.ProductStatusSourcing, assets: oneAsset(), wantCode: pkgerrors.CodeStateConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prod := draftProduct()
			prod.Status = tc.status

			buffer, err := validateStart(prod, tc.assets, tc.yieldBuffer)
			if tc.wantCode != "" {
				typed := pkgerrors.As(err)
				if typed == nil {
					t.Fatalf("expected %s, got %v", tc.wantCode, err)
				}
				if typed.Code() != tc.wantCode {
					t.Fatalf("expected code %s, got %s", tc.wantCode, typed.Code())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if buffer != tc.wantBuffer {
				t.Fatalf("expected yield buffer %v, got %v", tc.wantBuffer, buffer)
			}
		})
	}
}

func TestExtractMaterials(t *testing.T) {
	items := []models.BOMItem{
		{Name: "14oz Denim", MaterialType: enums.MaterialTypeFabric, Quantity: mustDecimal(t, "2.5"), Unit: "meter", UnitCost: decimalPtrFrom(t, "8.5"), TotalCost: decimalPtrFrom(t, "21.25")},
		{Name: "YKK Zipper", MaterialType: enums.MaterialTypeHardware, Quantity: mustDecimal(t, "1"), Unit: "piece"},
	}

	lines := extractMaterials(items)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Name != "14oz Denim" || lines[0].TotalCost.String() != "21.25" {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].UnitCost != nil || lines[1].TotalCost != nil {
		t.Fatal("unpriced item must stay unpriced")
	}
}

func TestNewRunDTO(t *testing.T) {
	reason := "classifier timeout"
	bomID := uuid.New()
	run := &models.PipelineRun{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		BOMID:          &bomID,
		Status:         enums.PipelineRunFailed,
		YieldBuffer:    15,
		GenerationDone: true,
		SuppliersFound: 4,
		ErrorReason:    &reason,
	}

	dto := newRunDTO(run)
	if dto.ID != run.ID || dto.ProductID != run.ProductID {
		t.Fatal("identifiers not mapped")
	}
	if dto.Status != enums.PipelineRunFailed || dto.ErrorReason == nil || *dto.ErrorReason != reason {
		t.Fatalf("failure detail not mapped: %+v", dto)
	}
	if dto.BOMID == nil || *dto.BOMID != bomID {
		t.Fatal("bom id not mapped")
	}
}
