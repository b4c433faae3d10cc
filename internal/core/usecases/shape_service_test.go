package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/usecases"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack/catalog"
)

func TestShapeService_ListMergesBuiltinAndStored(t *testing.T) {
	repo := newMockShapeRepo(
		domain.Shape{Slug: "boulder", Name: "Boulder", Path: "M 0 0 L 1 1", Source: domain.ShapeUpload},
		domain.Shape{Slug: "circle", Name: "My Circle", Path: "M 0 0 L 2 2", Source: domain.ShapeUpload},
	)
	svc := usecases.NewShapeService(repo, catalog.Default())

	shapes, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var slugs []string
	for _, s := range shapes {
		slugs = append(slugs, s.Slug)
	}
	if got := strings.Join(slugs, ","); got != "boulder,chalkin,circle,triangle" {
		t.Fatalf("unexpected order %s", got)
	}
	if shapes[2].Name != "My Circle" {
		t.Errorf("stored shape should shadow built-in, got %s", shapes[2].Name)
	}
}

func TestShapeService_ListWithoutStorage(t *testing.T) {
	svc := usecases.NewShapeService(nil, nil)
	shapes, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shapes) != 3 {
		t.Errorf("expected 3 built-in shapes, got %d", len(shapes))
	}
}

func TestShapeService_ListPropagatesErrors(t *testing.T) {
	repo := newMockShapeRepo()
	repo.listFn = func(ctx context.Context) ([]domain.Shape, error) { return nil, errors.New("db down") }
	svc := usecases.NewShapeService(repo, nil)

	if _, err := svc.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestShapeService_Get(t *testing.T) {
	svc := usecases.NewShapeService(newMockShapeRepo(), nil)

	sh, err := svc.Get(context.Background(), "chalkin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sh.Source != domain.ShapeBuiltin || sh.Name != "Chalkin Logo" {
		t.Errorf("unexpected shape %+v", sh)
	}

	_, err = svc.Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestShapeService_Create(t *testing.T) {
	repo := newMockShapeRepo()
	svc := usecases.NewShapeService(repo, nil)

	sh, err := svc.Create(context.Background(), usecases.NewShape{Slug: "crimp", Path: "M 0 0 L 10 0 L 5 8 Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sh.Name != "crimp" || sh.Source != domain.ShapeUpload || sh.ID == "" {
		t.Errorf("unexpected shape %+v", sh)
	}

	_, err = svc.Create(context.Background(), usecases.NewShape{Slug: "crimp", Path: "M 0 0 L 1 1"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate, got %v", err)
	}
}

func TestShapeService_CreateRejects(t *testing.T) {
	svc := usecases.NewShapeService(newMockShapeRepo(), nil)

	tests := []struct {
		name  string
		in    usecases.NewShape
		check func(error) bool
	}{
		{"bad slug", usecases.NewShape{Slug: "No Spaces", Path: "M 0 0 L 1 1"},
			func(err error) bool { return errors.Is(err, domain.ErrInvalidInput) }},
		{"builtin slug", usecases.NewShape{Slug: "chalkin", Path: "M 0 0 L 1 1"},
			func(err error) bool { return errors.Is(err, domain.ErrConflict) }},
		{"bad path", usecases.NewShape{Slug: "jug", Path: "M 0 0 Y 1"},
			func(err error) bool { return shapetrack.ErrorKind(err) == shapetrack.KindParse }},
		{"single point", usecases.NewShape{Slug: "dot", Path: "M 3 3 L 3 3"},
			func(err error) bool { return shapetrack.ErrorKind(err) == shapetrack.KindDegenerateShape }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestShapeService_CreateWithoutStorage(t *testing.T) {
	svc := usecases.NewShapeService(nil, nil)
	_, err := svc.Create(context.Background(), usecases.NewShape{Slug: "crimp", Path: "M 0 0 L 1 1"})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestShapeService_CreateFromSVG(t *testing.T) {
	repo := newMockShapeRepo()
	svc := usecases.NewShapeService(repo, nil)

	doc := `<svg xmlns="http://www.w3.org/2000/svg"><rect x="0" y="0" width="10" height="5"/><circle cx="5" cy="2" r="1"/></svg>`
	sh, err := svc.CreateFromSVG(context.Background(), "hold", "Hold", strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(sh.Path, "M 0 0 L 10 0") || strings.Count(sh.Path, "M ") != 2 {
		t.Errorf("unexpected path %q", sh.Path)
	}

	_, err = svc.CreateFromSVG(context.Background(), "empty", "Empty", strings.NewReader(`<svg></svg>`))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestShapeService_Delete(t *testing.T) {
	repo := newMockShapeRepo(domain.Shape{Slug: "crimp", Path: "M 0 0 L 1 1"})
	svc := usecases.NewShapeService(repo, nil)

	if err := svc.Delete(context.Background(), "crimp"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(context.Background(), "crimp"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(context.Background(), "triangle"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict for built-in, got %v", err)
	}
}
