package product

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
)

func mustCreateTestUser(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		Email:     fmt.Sprintf("tl_test_%s@example.com", uuid.NewString()),
		FirstName: "Repo",
		LastName:  "Tester",
		IsActive:  true,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, userID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		UserID: userID,
		Name:   fmt.Sprintf("Test Product %s", uuid.NewString()[:8]),
		Status: enums.ProductStatusDraft,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func mustCreateTestAsset(t *testing.T, tx *gorm.DB, productID uuid.UUID) *models.ProductAsset {
	t.Helper()
	asset := &models.ProductAsset{
		ProductID:   productID,
		Bucket:      "tl-test-uploads",
		ObjectKey:   fmt.Sprintf("products/%s/%s.jpg", productID, uuid.NewString()),
		URL:         fmt.Sprintf("https://storage.googleapis.com/tl-test-uploads/%s.jpg", uuid.NewString()),
		ContentType: "image/jpeg",
		SizeBytes:   2048,
	}
	if err := tx.Create(asset).Error; err != nil {
		t.Fatalf("create asset: %v", err)
	}
	return asset
}
