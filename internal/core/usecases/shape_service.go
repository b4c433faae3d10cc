package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack/catalog"
)

// shapeCheckPoints is the sample count used to prove a new path can be drawn.
const shapeCheckPoints = 64

// NewShape is the input for creating a stored shape.
type NewShape struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// ShapeService manages the built-in catalog and user-defined shapes.
type ShapeService struct {
	shapes  ports.ShapeRepository
	builtin *catalog.Catalog
}

// NewShapeService creates a new ShapeService. shapes may be nil, in which case
// only the built-in catalog is served.
func NewShapeService(shapes ports.ShapeRepository, builtin *catalog.Catalog) *ShapeService {
	if builtin == nil {
		builtin = catalog.Default()
	}
	return &ShapeService{shapes: shapes, builtin: builtin}
}

// List returns built-in and stored shapes sorted by slug. A stored shape
// shadows a built-in one with the same slug.
func (s *ShapeService) List(ctx context.Context) ([]domain.Shape, error) {
	bySlug := make(map[string]domain.Shape, s.builtin.Len())
	for _, e := range s.builtin.All() {
		bySlug[e.Slug] = fromEntry(e)
	}

	if s.shapes != nil {
		stored, err := s.shapes.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list shapes: %w", err)
		}
		for _, sh := range stored {
			bySlug[sh.Slug] = sh
		}
	}

	out := make([]domain.Shape, 0, len(bySlug))
	for _, sh := range bySlug {
		out = append(out, sh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// Get returns a stored shape, falling back to the built-in catalog.
func (s *ShapeService) Get(ctx context.Context, slug string) (*domain.Shape, error) {
	if s.shapes != nil {
		sh, err := s.shapes.GetBySlug(ctx, slug)
		if err == nil {
			return sh, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get shape %s: %w", slug, err)
		}
	}

	if e, ok := s.builtin.Get(slug); ok {
		sh := fromEntry(e)
		return &sh, nil
	}
	return nil, fmt.Errorf("shape %s: %w", slug, domain.ErrNotFound)
}

// Create validates and stores a new shape.
func (s *ShapeService) Create(ctx context.Context, in NewShape) (*domain.Shape, error) {
	if s.shapes == nil {
		return nil, fmt.Errorf("shape storage: %w", domain.ErrUnavailable)
	}

	in.Slug = strings.TrimSpace(in.Slug)
	in.Path = strings.TrimSpace(in.Path)
	if !catalog.SlugPattern.MatchString(in.Slug) {
		return nil, fmt.Errorf("%w: slug must match %s", domain.ErrInvalidInput, catalog.SlugPattern)
	}
	if _, ok := s.builtin.Get(in.Slug); ok {
		return nil, fmt.Errorf("shape %s is built in: %w", in.Slug, domain.ErrConflict)
	}
	if err := CheckPath(in.Path); err != nil {
		return nil, err
	}
	if in.Name == "" {
		in.Name = in.Slug
	}

	sh := &domain.Shape{
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Path:        in.Path,
		Source:      domain.ShapeUpload,
	}
	if err := s.shapes.Create(ctx, sh); err != nil {
		return nil, fmt.Errorf("create shape %s: %w", in.Slug, err)
	}
	return sh, nil
}

// CreateFromSVG extracts every outline of an SVG document and stores them as
// one shape.
func (s *ShapeService) CreateFromSVG(ctx context.Context, slug, name string, r io.Reader) (*domain.Shape, error) {
	paths, err := shapetrack.ExtractPaths(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: svg contains no drawable outlines", domain.ErrInvalidInput)
	}
	return s.Create(ctx, NewShape{
		Slug:        slug,
		Name:        name,
		Description: fmt.Sprintf("Imported from SVG (%d outlines)", len(paths)),
		Path:        shapetrack.JoinPaths(paths),
	})
}

// Delete removes a stored shape. Built-in shapes cannot be deleted.
func (s *ShapeService) Delete(ctx context.Context, slug string) error {
	if s.shapes == nil {
		return fmt.Errorf("shape storage: %w", domain.ErrUnavailable)
	}
	err := s.shapes.Delete(ctx, slug)
	if errors.Is(err, domain.ErrNotFound) {
		if _, ok := s.builtin.Get(slug); ok {
			return fmt.Errorf("shape %s is built in: %w", slug, domain.ErrConflict)
		}
	}
	if err != nil {
		return fmt.Errorf("delete shape %s: %w", slug, err)
	}
	return nil
}

// CheckPath reports whether desc parses and spans a drawable area.
func CheckPath(desc string) error {
	cmds, err := shapetrack.Parse(desc)
	if err != nil {
		return err
	}
	pts, err := shapetrack.Sample(cmds, shapeCheckPoints)
	if err != nil {
		return err
	}
	_, err = shapetrack.Normalize(pts)
	return err
}

func fromEntry(e catalog.Entry) domain.Shape {
	return domain.Shape{
		Slug:        e.Slug,
		Name:        e.Name,
		Description: e.Description,
		Path:        e.Path,
		Source:      domain.ShapeBuiltin,
	}
}
