package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-ai/threadline-backend/pkg/errors"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
	"github.com/threadline-ai/threadline-backend/pkg/pagination"
)

type fakeRepo struct {
	created   []*models.Notification
	listRows  []models.Notification
	listNext  *pagination.Cursor
	markFound bool
	markedAll int64
}

func (f *fakeRepo) WithTx(_ *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(_ context.Context, notification *models.Notification) error {
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeRepo) List(_ context.Context, _ listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return f.listRows, f.listNext, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, _, _ uuid.UUID, _ time.Time) (notificationMarkResult, error) {
	return notificationMarkResult{Found: f.markFound, Updated: f.markFound}, nil
}

func (f *fakeRepo) MarkAllRead(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return f.markedAll, nil
}

func (f *fakeRepo) DeleteReadBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func TestListRequiresUser(t *testing.T) {
	svc, err := NewService(&fakeRepo{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.List(context.Background(), ListParams{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListEncodesCursor(t *testing.T) {
	next := &pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	svc, err := NewService(&fakeRepo{
		listRows: []models.Notification{{ID: uuid.New()}},
		listNext: next,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Cursor == "" {
		t.Fatal("expected encoded cursor")
	}
	parsed, err := pagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if parsed.ID != next.ID {
		t.Fatalf("cursor round trip mismatch: %s vs %s", parsed.ID, next.ID)
	}
}

func TestMarkReadNotFound(t *testing.T) {
	svc, err := NewService(&fakeRepo{markFound: false})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBuildNotificationBOMGenerated(t *testing.T) {
	ownerID := uuid.New()
	productID := uuid.New()
	payload, _ := json.Marshal(payloads.BOMGeneratedEvent{
		ProductID:   productID,
		ProductName: "Linen Shirt",
		OwnerID:     ownerID,
		BOMID:       uuid.New(),
		ItemCount:   7,
		Confidence:  0.91,
	})

	notification, err := buildNotification(enums.EventBOMGenerated, payload)
	if err != nil {
		t.Fatalf("build notification: %v", err)
	}
	if notification.UserID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, notification.UserID)
	}
	if notification.Type != enums.NotificationTypeBOMGenerated {
		t.Fatalf("unexpected type %s", notification.Type)
	}
	if notification.Message != "We generated a bill of materials for Linen Shirt with 7 items (91% confidence)." {
		t.Fatalf("unexpected copy: %s", notification.Message)
	}

	var metadata map[string]any
	if err := json.Unmarshal(notification.Metadata, &metadata); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if metadata["productId"] != productID.String() {
		t.Fatalf("expected product deep link, got %v", metadata["productId"])
	}
	if metadata["confidence"] != 0.91 {
		t.Fatalf("expected confidence in metadata, got %v", metadata["confidence"])
	}
}

func TestBuildNotificationSuppliersFound(t *testing.T) {
	ownerID := uuid.New()
	payload, _ := json.Marshal(payloads.SuppliersDiscoveredEvent{
		ProductID:    uuid.New(),
		ProductName:  "Canvas Tote",
		OwnerID:      ownerID,
		RunID:        uuid.New(),
		Associations: 5,
	})

	notification, err := buildNotification(enums.EventSuppliersDiscovered, payload)
	if err != nil {
		t.Fatalf("build notification: %v", err)
	}
	if notification.Type != enums.NotificationTypeSuppliersFound {
		t.Fatalf("unexpected type %s", notification.Type)
	}
	if notification.Message != "We found 5 supplier matches for Canvas Tote." {
		t.Fatalf("unexpected copy: %s", notification.Message)
	}
}

func TestBuildNotificationRejectsMissingOwner(t *testing.T) {
	payload, _ := json.Marshal(payloads.ForecastReadyEvent{
		ProductID:   uuid.New(),
		ProductName: "Hat",
		Markets:     3,
	})

	if _, err := buildNotification(enums.EventForecastReady, payload); err == nil {
		t.Fatal("expected error for missing owner id")
	}
}

func TestBuildNotificationUnknownEvent(t *testing.T) {
	if _, err := buildNotification(enums.EventProductStatusChanged, []byte(`{}`)); err == nil {
		t.Fatal("expected error for unhandled event type")
	}
}
