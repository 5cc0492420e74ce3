package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	"github.com/threadline-ai/threadline-backend/pkg/inference"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

type fakeDirectory struct {
	held         map[string]int64
	suppliers    map[string]*models.Supplier
	associations []models.SupplierMaterial
	createCalls  int
	countErr     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		held:      map[string]int64{},
		suppliers: map[string]*models.Supplier{},
	}
}

func (f *fakeDirectory) CountSuppliersForMaterial(_ context.Context, materialName string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.held[materialName], nil
}

func (f *fakeDirectory) FindByNameCountry(_ context.Context, name, country string) (*models.Supplier, error) {
	if existing, ok := f.suppliers[name+"|"+country]; ok {
		return existing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDirectory) Create(_ context.Context, supplier *models.Supplier) (*models.Supplier, error) {
	f.createCalls++
	supplier.ID = uuid.New()
	f.suppliers[supplier.Name+"|"+supplier.Country] = supplier
	return supplier, nil
}

func (f *fakeDirectory) AddMaterial(_ context.Context, material *models.SupplierMaterial) error {
	f.associations = append(f.associations, *material)
	return nil
}

type fakeSearcher struct {
	calls     []string
	responses map[string]*inference.SupplierResult
	errFor    map[string]error
}

func (f *fakeSearcher) GenerateSuppliers(_ context.Context, req inference.SupplierRequest) (*inference.SupplierResult, error) {
	f.calls = append(f.calls, req.MaterialName)
	if err, ok := f.errFor[req.MaterialName]; ok {
		return nil, err
	}
	if result, ok := f.responses[req.MaterialName]; ok {
		return result, nil
	}
	return &inference.SupplierResult{}, nil
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(context.Context, string) error {
	p.waits++
	return p.err
}

func testWorker(directory *fakeDirectory, searcher *fakeSearcher, pace *countingPacer) *discoveryWorker {
	return &discoveryWorker{
		directory:   directory,
		searcher:    searcher,
		pacer:       pace,
		window:      6,
		perMaterial: 3,
		logg:        logger.New(logger.Options{ServiceName: "test"}),
	}
}

func costLine(name string, totalCost string, quantity string) materialLine {
	line := materialLine{
		Name:     name,
		Type:     enums.MaterialTypeFabric,
		Quantity: decimal.RequireFromString(quantity),
		Unit:     "meter",
	}
	if totalCost != "" {
		total := decimal.RequireFromString(totalCost)
		line.TotalCost = &total
	}
	return line
}

func candidates(n int) *inference.SupplierResult {
	result := &inference.SupplierResult{}
	for i := 0; i < n; i++ {
		result.Suppliers = append(result.Suppliers, inference.SupplierCandidate{
			Name:      fmt.Sprintf("Supplier %d", i),
			Country:   "Portugal",
			City:      "Porto",
			UnitPrice: 4.2,
			MOQ:       "500 units",
			LeadTime:  "15 days",
			Rating:    4.6,
		})
	}
	return result
}

func TestDedupeMaterialsFirstOccurrenceWins(t *testing.T) {
	lines := []materialLine{
		costLine("Denim", "100", "2"),
		costLine("denim ", "900", "9"),
		costLine("Thread", "5", "1"),
	}
	deduped := dedupeMaterials(lines)
	if len(deduped) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(deduped))
	}
	if deduped[0].TotalCost.String() != "100" {
		t.Fatalf("expected first occurrence kept, got cost %s", deduped[0].TotalCost)
	}
}

func TestRankMaterialsByEstimatedCostThenQuantity(t *testing.T) {
	cheap := costLine("Thread", "5", "1")
	expensive := costLine("Denim", "100", "2")
	unpricedBig := costLine("Lining", "", "50")
	unpricedSmall := costLine("Tape", "", "3")
	unitPriced := costLine("Zipper", "", "4")
	unitCost := decimal.RequireFromString("10")
	unitPriced.UnitCost = &unitCost // estimated 40

	ranked := rankMaterials([]materialLine{cheap, unpricedSmall, unitPriced, expensive, unpricedBig})

	wantOrder := []string{"Denim", "Zipper", "Thread", "Lining", "Tape"}
	for i, want := range wantOrder {
		if ranked[i].Name != want {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, ranked[i].Name, want, ranked)
		}
	}
}

func TestDiscoverWindowsTopSixMaterials(t *testing.T) {
	directory := newFakeDirectory()
	searcher := &fakeSearcher{responses: map[string]*inference.SupplierResult{}}
	pace := &countingPacer{}
	worker := testWorker(directory, searcher, pace)

	var lines []materialLine
	for i := 0; i < 8; i++ {
		lines = append(lines, costLine(fmt.Sprintf("Material %d", i), fmt.Sprintf("%d", 100-i), "1"))
	}

	if _, err := worker.discover(context.Background(), lines); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.calls) != 6 {
		t.Fatalf("expected exactly 6 search calls, got %d", len(searcher.calls))
	}
	if pace.waits != 6 {
		t.Fatalf("expected 6 paced waits, got %d", pace.waits)
	}
	// The two cheapest materials never trigger a search.
	for _, call := range searcher.calls {
		if call == "Material 6" || call == "Material 7" {
			t.Fatalf("material outside the window was searched: %s", call)
		}
	}
}

func TestDiscoverCapsAssociationsPerMaterial(t *testing.T) {
	directory := newFakeDirectory()
	searcher := &fakeSearcher{responses: map[string]*inference.SupplierResult{
		"Denim": candidates(5),
	}}
	worker := testWorker(directory, searcher, &countingPacer{})

	created, err := worker.discover(context.Background(), []materialLine{costLine("Denim", "100", "2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 associations, got %d", created)
	}
	if len(directory.associations) != 3 {
		t.Fatalf("expected 3 persisted rows, got %d", len(directory.associations))
	}
}

func TestDiscoverTopsUpPartiallySourcedMaterial(t *testing.T) {
	directory := newFakeDirectory()
	directory.held["Denim"] = 2
	searcher := &fakeSearcher{responses: map[string]*inference.SupplierResult{
		"Denim": candidates(5),
	}}
	worker := testWorker(directory, searcher, &countingPacer{})

	created, err := worker.discover(context.Background(), []materialLine{costLine("Denim", "100", "2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected exactly one top-up association, got %d", created)
	}
}

func TestDiscoverSkipsFullySourcedMaterialWithoutSearching(t *testing.T) {
	directory := newFakeDirectory()
	directory.held["Denim"] = 3
	searcher := &fakeSearcher{}
	pace := &countingPacer{}
	worker := testWorker(directory, searcher, pace)

	created, err := worker.discover(context.Background(), []materialLine{costLine("Denim", "100", "2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 0 {
		t.Fatalf("expected no associations, got %d", created)
	}
	if len(searcher.calls) != 0 || pace.waits != 0 {
		t.Fatalf("fully sourced material must not consume a search call")
	}
}

func TestDiscoverContinuesPastFailedMaterial(t *testing.T) {
	directory := newFakeDirectory()
	searcher := &fakeSearcher{
		responses: map[string]*inference.SupplierResult{"Thread": candidates(1)},
		errFor:    map[string]error{"Denim": errors.New("search unavailable")},
	}
	worker := testWorker(directory, searcher, &countingPacer{})

	created, err := worker.discover(context.Background(), []materialLine{
		costLine("Denim", "100", "2"),
		costLine("Thread", "5", "1"),
	})
	if err != nil {
		t.Fatalf("per-material failure must not abort the workflow: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected the surviving material to contribute 1 association, got %d", created)
	}
}

func TestDiscoverReusesExistingSupplier(t *testing.T) {
	directory := newFakeDirectory()
	existing := &models.Supplier{ID: uuid.New(), Name: "Supplier 0", Country: "Portugal"}
	directory.suppliers["Supplier 0|Portugal"] = existing
	searcher := &fakeSearcher{responses: map[string]*inference.SupplierResult{
		"Denim": candidates(1),
	}}
	worker := testWorker(directory, searcher, &countingPacer{})

	created, err := worker.discover(context.Background(), []materialLine{costLine("Denim", "100", "2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected one association, got %d", created)
	}
	if directory.createCalls != 0 {
		t.Fatalf("existing supplier must not be recreated, got %d creates", directory.createCalls)
	}
	if directory.associations[0].SupplierID != existing.ID {
		t.Fatal("association must link the existing supplier")
	}
}

func TestDiscoverSkipsMaterialWhenCountFails(t *testing.T) {
	directory := newFakeDirectory()
	directory.countErr = errors.New("db down")
	searcher := &fakeSearcher{}
	worker := testWorker(directory, searcher, &countingPacer{})

	created, err := worker.discover(context.Background(), []materialLine{costLine("Denim", "100", "2")})
	if err != nil {
		t.Fatalf("count failure is per-material, not fatal: %v", err)
	}
	if created != 0 || len(searcher.calls) != 0 {
		t.Fatal("material with unknown held count must be skipped")
	}
}

func TestDiscoverAbortsWhenPacerFails(t *testing.T) {
	directory := newFakeDirectory()
	worker := testWorker(directory, &fakeSearcher{}, &countingPacer{err: context.Canceled})

	if _, err := worker.discover(context.Background(), []materialLine{costLine("Denim", "100", "2")}); err == nil {
		t.Fatal("expected pacer error to propagate")
	}
}

func TestBuildSupplierMapsAndDeduplicatesCertifications(t *testing.T) {
	supplier := buildSupplier(inference.SupplierCandidate{
		Name:           " Aegean Textiles ",
		Country:        "Turkey",
		City:           "Izmir",
		Coordinates:    []float64{27.14, 38.42},
		Rating:         4.8,
		Reliability:    0.96,
		Certifications: []string{"GOTS", "gots organic", "ISO 9001", "Unknown Badge"},
	})

	if supplier.Name != "Aegean Textiles" {
		t.Fatalf("expected trimmed name, got %q", supplier.Name)
	}
	if supplier.Status != enums.SupplierStatusPendingVerification {
		t.Fatalf("new suppliers start pending verification, got %s", supplier.Status)
	}
	if supplier.Longitude == nil || *supplier.Longitude != 27.14 || supplier.Latitude == nil || *supplier.Latitude != 38.42 {
		t.Fatal("coordinates not mapped")
	}
	if len(supplier.Certs) != 3 {
		t.Fatalf("expected 3 deduplicated certifications, got %d", len(supplier.Certs))
	}
	seen := map[enums.CertificationType]bool{}
	for _, cert := range supplier.Certs {
		seen[cert.Certification] = true
	}
	if !seen[enums.CertificationGOTS] || !seen[enums.CertificationISO9001] || !seen[enums.CertificationOther] {
		t.Fatalf("unexpected certification set: %v", supplier.Certs)
	}
}

func TestFirstInt(t *testing.T) {
	if got := firstInt("500 units"); got == nil || *got != 500 {
		t.Fatalf("expected 500, got %v", got)
	}
	if got := firstInt("15 days"); got == nil || *got != 15 {
		t.Fatalf("expected 15, got %v", got)
	}
	if got := firstInt("negotiable"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
