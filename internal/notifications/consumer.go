package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/threadline-ai/threadline-backend/pkg/db/models"
	"github.com/threadline-ai/threadline-backend/pkg/enums"
	"github.com/threadline-ai/threadline-backend/pkg/logger"
	"github.com/threadline-ai/threadline-backend/pkg/outbox"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/idempotency"
	"github.com/threadline-ai/threadline-backend/pkg/outbox/payloads"
)

const pipelineNotificationConsumer = "notifications-worker"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches pipeline domain events and turns them into in-app
// notifications for the product owner.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a pipeline notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	switch eventType {
	case enums.EventBOMGenerated, enums.EventSuppliersDiscovered, enums.EventForecastReady:
	default:
		c.logg.Info(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, pipelineNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.idempotency.Delete(ctx, pipelineNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "notification insert failed", err)
		_ = c.idempotency.Delete(ctx, pipelineNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithUserID(logCtx, notification.UserID.String()), "user notified")
	return processResult{ack: true}
}

// buildNotification maps a domain event payload to notification copy. The
// deep-link payload lands in Metadata.
func buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventBOMGenerated:
		var payload payloads.BOMGeneratedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OwnerID == uuid.Nil {
			return nil, fmt.Errorf("owner id missing")
		}
		metadata, err := json.Marshal(map[string]any{
			"productId":  payload.ProductID,
			"bomId":      payload.BOMID,
			"itemCount":  payload.ItemCount,
			"confidence": payload.Confidence,
		})
		if err != nil {
			return nil, err
		}
		return &models.Notification{
			UserID: payload.OwnerID,
			Type:   enums.NotificationTypeBOMGenerated,
			Title:  "BOM ready",
			Message: fmt.Sprintf("We generated a bill of materials for %s with %d items (%.0f%% confidence).",
				payload.ProductName, payload.ItemCount, payload.Confidence*100),
			Metadata: metadata,
		}, nil

	case enums.EventSuppliersDiscovered:
		var payload payloads.SuppliersDiscoveredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OwnerID == uuid.Nil {
			return nil, fmt.Errorf("owner id missing")
		}
		metadata, err := json.Marshal(map[string]any{
			"productId":    payload.ProductID,
			"runId":        payload.RunID,
			"associations": payload.Associations,
		})
		if err != nil {
			return nil, err
		}
		return &models.Notification{
			UserID: payload.OwnerID,
			Type:   enums.NotificationTypeSuppliersFound,
			Title:  "Suppliers found",
			Message: fmt.Sprintf("We found %d supplier matches for %s.",
				payload.Associations, payload.ProductName),
			Metadata: metadata,
		}, nil

	case enums.EventForecastReady:
		var payload payloads.ForecastReadyEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.OwnerID == uuid.Nil {
			return nil, fmt.Errorf("owner id missing")
		}
		metadata, err := json.Marshal(map[string]any{
			"productId": payload.ProductID,
			"markets":   payload.Markets,
		})
		if err != nil {
			return nil, err
		}
		return &models.Notification{
			UserID: payload.OwnerID,
			Type:   enums.NotificationTypeMarketForecastReady,
			Title:  "Market forecast ready",
			Message: fmt.Sprintf("Demand forecasts for %s cover %d markets.",
				payload.ProductName, payload.Markets),
			Metadata: metadata,
		}, nil
	}
	return nil, fmt.Errorf("unhandled event type %s", eventType)
}
