package ports

import (
	"context"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishExportEvent(ctx context.Context, event *domain.ExportEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeExportEvents(ctx context.Context, handler func(ctx context.Context, event *domain.ExportEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// ObjectStorage archives rendered files.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// StravaOAuth runs the Strava authorization-code flow.
type StravaOAuth interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for tokens. UserID is left empty.
	Exchange(ctx context.Context, code string) (*domain.StravaConnection, error)
	// Refresh returns conn with renewed tokens.
	Refresh(ctx context.Context, conn *domain.StravaConnection) (*domain.StravaConnection, error)
}

// StravaUploadRequest is one GPX activity upload. The activity type comes
// from the GPX track itself.
type StravaUploadRequest struct {
	Name        string
	Description string
	ExternalID  string
	GPX         []byte
}

// StravaAPI talks to the Strava REST API on behalf of a user.
type StravaAPI interface {
	Upload(ctx context.Context, accessToken string, req StravaUploadRequest) (*domain.StravaUpload, error)
	GetUpload(ctx context.Context, accessToken string, uploadID int64) (*domain.StravaUpload, error)
}

// WorkflowStarter launches durable workflows.
type WorkflowStarter interface {
	StartExport(ctx context.Context, exportID string) error
}
