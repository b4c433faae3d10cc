package ports

import (
	"context"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// ShapeRepository persists user-defined shapes.
type ShapeRepository interface {
	Create(ctx context.Context, shape *domain.Shape) error
	GetBySlug(ctx context.Context, slug string) (*domain.Shape, error)
	List(ctx context.Context) ([]domain.Shape, error)
	Delete(ctx context.Context, slug string) error
}

// ExportRepository persists Strava exports.
type ExportRepository interface {
	Create(ctx context.Context, export *domain.Export) error
	GetByID(ctx context.Context, id string) (*domain.Export, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Export, error)
	// Update writes status, object key, Strava ids and error of export.
	Update(ctx context.Context, export *domain.Export) error
}

// StravaConnectionRepository persists one Strava connection per user.
type StravaConnectionRepository interface {
	Upsert(ctx context.Context, conn *domain.StravaConnection) error
	GetByUser(ctx context.Context, userID string) (*domain.StravaConnection, error)
	DeleteByUser(ctx context.Context, userID string) error
}
