package supplier

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

func decimalPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func TestScoreSupplierWeights(t *testing.T) {
	supplier := &models.Supplier{
		Name:        "Aegean Textiles",
		Country:     "Turkey",
		Rating:      decimalPtr("5.00"),
		Reliability: decimalPtr("1.00"),
		Materials: []models.SupplierMaterial{
			{MaterialName: "organic cotton", UnitPrice: decimalPtr("5.00"), Unit: "m"},
		},
		Certs: []models.SupplierCertification{
			{Certification: enums.CertificationGOTS},
			{Certification: enums.CertificationOekoTex},
		},
	}

	ranking := scoreSupplier(supplier, decimal.NewFromInt(10))

	// 5*6 rating + 1*25 reliability + (25-5) price + 2*2 certs = 79
	if ranking.Score != 79 {
		t.Fatalf("expected score 79, got %v", ranking.Score)
	}
	if ranking.EstimatedTotalCost == nil || *ranking.EstimatedTotalCost != "50" {
		t.Fatalf("expected estimated cost 50, got %v", ranking.EstimatedTotalCost)
	}

	wantReasons := map[string]bool{
		"High rating":         false,
		"High reliability":    false,
		"Competitive pricing": false,
		"2 certifications":    false,
	}
	for _, reason := range ranking.Reasons {
		if _, ok := wantReasons[reason]; !ok {
			t.Fatalf("unexpected reason %q", reason)
		}
		wantReasons[reason] = true
	}
	for reason, seen := range wantReasons {
		if !seen {
			t.Fatalf("missing reason %q", reason)
		}
	}
}

func TestScoreSupplierCertCap(t *testing.T) {
	certs := make([]models.SupplierCertification, 0, 8)
	for _, cert := range []enums.CertificationType{
		enums.CertificationGOTS, enums.CertificationOekoTex, enums.CertificationISO9001,
		enums.CertificationISO14001, enums.CertificationFairTrade, enums.CertificationBSCI,
		enums.CertificationREACH, enums.CertificationOther,
	} {
		certs = append(certs, models.SupplierCertification{Certification: cert})
	}
	supplier := &models.Supplier{Name: "Certified Co", Country: "India", Certs: certs}

	ranking := scoreSupplier(supplier, decimal.Zero)
	if ranking.Score != 10 {
		t.Fatalf("expected cert score capped at 10, got %v", ranking.Score)
	}
}

func TestScoreSupplierHandlesMissingData(t *testing.T) {
	supplier := &models.Supplier{Name: "Sparse Mills", Country: "Vietnam"}

	ranking := scoreSupplier(supplier, decimal.NewFromInt(3))
	if ranking.Score != 0 {
		t.Fatalf("expected zero score, got %v", ranking.Score)
	}
	if ranking.EstimatedTotalCost != nil {
		t.Fatal("expected no estimate without a priced material")
	}
	if len(ranking.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", ranking.Reasons)
	}
}

func TestScoreSupplierExpensivePriceEarnsNoPricePoints(t *testing.T) {
	cheap := &models.Supplier{
		Name: "Cheap", Country: "CN",
		Materials: []models.SupplierMaterial{{MaterialName: "zip", UnitPrice: decimalPtr("1.00")}},
	}
	pricey := &models.Supplier{
		Name: "Pricey", Country: "CN",
		Materials: []models.SupplierMaterial{{MaterialName: "zip", UnitPrice: decimalPtr("40.00")}},
	}

	cheapScore := scoreSupplier(cheap, decimal.NewFromInt(1)).Score
	priceyScore := scoreSupplier(pricey, decimal.NewFromInt(1)).Score
	if cheapScore <= priceyScore {
		t.Fatalf("expected cheaper supplier to outrank, got %v vs %v", cheapScore, priceyScore)
	}
}
