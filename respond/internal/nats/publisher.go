package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/threatlens/threatlens-stack/common/messaging"
	"github.com/threatlens/threatlens-stack/common/middleware"
)

// EventPublisher is the outbound event surface used by the alert services.
type EventPublisher interface {
	PublishAlertCreated(ctx context.Context, event *AlertCreatedEvent) error
	PublishAlertUpdated(ctx context.Context, event *AlertUpdatedEvent) error
	PublishAlertDeleted(ctx context.Context, event *AlertDeletedEvent) error
}

// Publisher publishes events to NATS subjects for the respond service.
type Publisher struct {
	client messaging.Publisher
}

var _ EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new NATS publisher.
func NewPublisher(client messaging.Publisher) *Publisher {
	return &Publisher{client: client}
}

// PublishAlertCreated publishes an alert created event.
func (p *Publisher) PublishAlertCreated(ctx context.Context, event *AlertCreatedEvent) error {
	return p.publish(ctx, messaging.SubjectAlertsCreated, event.UserID, event)
}

// PublishAlertUpdated publishes an alert updated event.
func (p *Publisher) PublishAlertUpdated(ctx context.Context, event *AlertUpdatedEvent) error {
	return p.publish(ctx, messaging.SubjectAlertsUpdated, event.UserID, event)
}

// PublishAlertDeleted publishes an alert deleted event.
func (p *Publisher) PublishAlertDeleted(ctx context.Context, event *AlertDeletedEvent) error {
	return p.publish(ctx, messaging.SubjectAlertsDeleted, event.UserID, event)
}

// publish marshals data to JSON and publishes it with the owner and request
// id as headers.
func (p *Publisher) publish(ctx context.Context, subject, userID string, data interface{}) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	meta := map[string]string{messaging.HeaderUserID: userID}
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		meta[messaging.HeaderRequestID] = reqID
	}

	return p.client.PublishMsg(ctx, &messaging.Message{
		Subject:   subject,
		Data:      bytes,
		Metadata:  meta,
		Timestamp: time.Now(),
	})
}

// NoOpPublisher discards every event. Used when NATS is disabled.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishAlertCreated(context.Context, *AlertCreatedEvent) error { return nil }
func (NoOpPublisher) PublishAlertUpdated(context.Context, *AlertUpdatedEvent) error { return nil }
func (NoOpPublisher) PublishAlertDeleted(context.Context, *AlertDeletedEvent) error { return nil }
