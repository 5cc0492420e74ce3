package product

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

func TestRepositoryProductFlow(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	user := mustCreateTestUser(t, tx)
	product := mustCreateTestProduct(t, tx, user.ID)
	if product.ID == uuid.Nil {
		t.Fatal("expected product id to be generated")
	}

	mustCreateTestAsset(t, tx, product.ID)
	mustCreateTestAsset(t, tx, product.ID)

	detail, err := repo.GetDetail(ctx, product.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if len(detail.Assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(detail.Assets))
	}

	count, err := repo.CountAssets(ctx, product.ID)
	if err != nil {
		t.Fatalf("count assets: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected asset count 2, got %d", count)
	}

	detail.Name = "Updated Name"
	if _, err := repo.Update(ctx, detail); err != nil {
		t.Fatalf("update product: %v", err)
	}

	changed, err := repo.UpdateStatus(ctx, product.ID, enums.ProductStatusDraft, enums.ProductStatusProcessing)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected one row changed, got %d", changed)
	}

	changed, err = repo.UpdateStatus(ctx, product.ID, enums.ProductStatusDraft, enums.ProductStatusProcessing)
	if err != nil {
		t.Fatalf("update status second time: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected stale status guard to reject the update, got %d rows", changed)
	}

	rows, next, err := repo.List(ctx, listProductsParams{UserID: user.ID, Limit: 10})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one product, got %d", len(rows))
	}
	if next != nil {
		t.Fatalf("expected no next cursor for a single page")
	}
	if rows[0].Name != "Updated Name" {
		t.Fatalf("expected updated name, got %s", rows[0].Name)
	}
}

func TestRepositoryListPaginates(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	user := mustCreateTestUser(t, tx)
	for i := 0; i < 3; i++ {
		mustCreateTestProduct(t, tx, user.ID)
	}

	first, cursor, err := repo.List(ctx, listProductsParams{UserID: user.ID, Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 products on first page, got %d", len(first))
	}
	if cursor == nil {
		t.Fatal("expected next cursor")
	}

	second, cursor, err := repo.List(ctx, listProductsParams{UserID: user.ID, Limit: 2, Cursor: cursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 product on second page, got %d", len(second))
	}
	if cursor != nil {
		t.Fatalf("expected exhausted cursor")
	}
}
