// Package catalog holds named path descriptions that can be converted without
// sending the path itself.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

//go:embed shapes.yaml
var builtin []byte

// SlugPattern constrains shape identifiers.
var SlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// Entry is a named path description.
type Entry struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Path        string `yaml:"path"`
}

type file struct {
	Shapes []Entry `yaml:"shapes"`
}

// Catalog is an immutable set of entries keyed by slug.
type Catalog struct {
	bySlug map[string]Entry
	slugs  []string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded shapes.yaml: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML catalog. Every path must parse.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{bySlug: make(map[string]Entry, len(f.Shapes))}
	for i, e := range f.Shapes {
		e.Path = strings.TrimSpace(e.Path)
		if !SlugPattern.MatchString(e.Slug) {
			return nil, fmt.Errorf("catalog entry %d: invalid slug %q", i, e.Slug)
		}
		if _, dup := c.bySlug[e.Slug]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate slug %q", i, e.Slug)
		}
		if _, err := shapetrack.Parse(e.Path); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Slug, err)
		}
		if e.Name == "" {
			e.Name = e.Slug
		}
		c.bySlug[e.Slug] = e
		c.slugs = append(c.slugs, e.Slug)
	}
	sort.Strings(c.slugs)
	return c, nil
}

// Get looks up an entry by slug.
func (c *Catalog) Get(slug string) (Entry, bool) {
	e, ok := c.bySlug[slug]
	return e, ok
}

// All returns the entries sorted by slug.
func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.slugs))
	for _, s := range c.slugs {
		out = append(out, c.bySlug[s])
	}
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.slugs) }
