package interfaces

import (
	"context"

	"github.com/mailsift/mailsift/internal/enum"
)

type EventPublisher interface {
	PublishDirectEvent(ctx context.Context, entityId string, entityType enum.EntityType, eventType string, message interface{}) error
	Close() error
}
