package postgres

import (
	"context"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// ShapeRepo implements ports.ShapeRepository with pgx.
type ShapeRepo struct {
	db *DB
}

// NewShapeRepo creates a new ShapeRepo.
func NewShapeRepo(db *DB) *ShapeRepo {
	return &ShapeRepo{db: db}
}

// Create inserts a shape and fills in its ID and creation time.
func (r *ShapeRepo) Create(ctx context.Context, s *domain.Shape) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO shapes (slug, name, description, path, source)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.Slug, s.Name, s.Description, s.Path, string(s.Source)).Scan(&s.ID, &s.CreatedAt)
	return mapErr(err)
}

// GetBySlug returns a stored shape.
func (r *ShapeRepo) GetBySlug(ctx context.Context, slug string) (*domain.Shape, error) {
	var s domain.Shape
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, description, path, source, created_at
		FROM shapes WHERE slug = $1
	`, slug).Scan(&s.ID, &s.Slug, &s.Name, &s.Description, &s.Path, &s.Source, &s.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// List returns all stored shapes ordered by slug.
func (r *ShapeRepo) List(ctx context.Context) ([]domain.Shape, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, description, path, source, created_at
		FROM shapes ORDER BY slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shapes []domain.Shape
	for rows.Next() {
		var s domain.Shape
		if err := rows.Scan(&s.ID, &s.Slug, &s.Name, &s.Description, &s.Path, &s.Source, &s.CreatedAt); err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}
	return shapes, rows.Err()
}

// Delete removes a stored shape.
func (r *ShapeRepo) Delete(ctx context.Context, slug string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM shapes WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
