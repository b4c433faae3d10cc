// Command shapeimport stores SVG files as user shapes.
//
//	shapeimport [-workers 4] [-replace] <dir|file.svg>...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chalkin/chalkin/internal/adapters/postgres"
	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/usecases"
	"github.com/chalkin/chalkin/internal/pkg/config"
	"github.com/chalkin/chalkin/internal/pkg/logging"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack/catalog"
)

func main() {
	workers := flag.Int("workers", 4, "concurrent imports")
	replace := flag.Bool("replace", false, "replace stored shapes with the same slug")
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: shapeimport [-workers n] [-replace] <dir|file.svg>...")
	}

	cfg, err := config.Load("chalkin-shapeimport")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, "text")

	files, err := collectSVGs(flag.Args())
	if err != nil {
		log.Fatalf("collect files: %v", err)
	}
	if len(files) == 0 {
		log.Fatal("no .svg files found")
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	shapes := usecases.NewShapeService(postgres.NewShapeRepo(db), catalog.Default())

	slog.Info("importing shapes", "files", len(files), "workers", *workers)

	var (
		wg       sync.WaitGroup
		imported atomic.Int32
		failed   atomic.Int32
	)
	sem := make(chan struct{}, max(*workers, 1))

	for _, f := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			shape, err := importFile(ctx, shapes, path, *replace)
			if err != nil {
				failed.Add(1)
				slog.Error("import failed", "file", path, "error", err)
				return
			}
			imported.Add(1)
			slog.Info("imported", "file", path, "slug", shape.Slug)
		}(f)
	}

	wg.Wait()
	slog.Info("import complete", "imported", imported.Load(), "failed", failed.Load())
	if failed.Load() > 0 {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, shapes *usecases.ShapeService, path string, replace bool) (*domain.Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	slug := SlugFromFile(path)
	if replace {
		if err := shapes.Delete(ctx, slug); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("replace %s: %w", slug, err)
		}
	}
	return shapes.CreateFromSVG(ctx, slug, "", f)
}

// collectSVGs expands directories into the .svg files they contain.
func collectSVGs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".svg") {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SlugFromFile derives a shape slug from a file name: "Crimp Hold.svg" -> "crimp-hold".
func SlugFromFile(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
