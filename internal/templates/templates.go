package templates

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"papertimes/internal/core"
)

// Template describes a newspaper layout the generator writes for.
// Visual layout lives with the frontend; only the data-relevant parts are kept here.
type Template struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Premium     bool   `yaml:"premium" json:"premium"`
	Style       string `yaml:"style" json:"style"` // writing direction passed to the generation prompt
}

// Catalog is an immutable set of templates keyed by ID.
type Catalog struct {
	byID  map[string]Template
	order []string
}

// DefaultTemplates returns the built-in newspaper templates.
func DefaultTemplates() []Template {
	return []Template{
		{
			ID:          "classic",
			Name:        "Classic Daily",
			Description: "A front page with one lead story and a short sidebar",
			Style:       "Write like a serious daily newspaper: neutral tone, inverted pyramid, short paragraphs.",
		},
		{
			ID:          "tabloid",
			Name:        "Tabloid",
			Description: "Punchy headlines and a conversational lead",
			Style:       "Write like a popular tabloid: punchy headline, energetic tone, but never misstate findings.",
		},
		{
			ID:          "science-digest",
			Name:        "Science Digest",
			Description: "Explains methods and results for curious non-specialists",
			Style:       "Write like a science magazine digest: explain methods and results for curious non-specialists.",
		},
		{
			ID:          "broadsheet",
			Name:        "Broadsheet",
			Description: "Long-form analysis with context from supporting papers",
			Premium:     true,
			Style:       "Write like a broadsheet feature: long-form analysis that weaves the supporting papers into context.",
		},
		{
			ID:          "magazine",
			Name:        "Magazine Feature",
			Description: "Narrative feature with a strong conclusion",
			Premium:     true,
			Style:       "Write like a magazine feature: narrative opening, vivid explanation, forward-looking conclusion.",
		},
	}
}

// NewCatalog builds a catalog, rejecting empty or duplicate IDs.
func NewCatalog(templates []Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, fmt.Errorf("template catalog is empty")
	}

	c := &Catalog{byID: make(map[string]Template, len(templates))}
	for _, t := range templates {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("template without id")
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(DefaultTemplates())
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadFile reads a YAML catalog of the form `templates: [{id, name, premium, style}, ...]`.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template catalog %s: %w", path, err)
	}
	return NewCatalog(file.Templates)
}

// Get returns the template with the given ID or core.ErrNotFound.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, fmt.Errorf("template %q: %w", id, core.ErrNotFound)
	}
	return t, nil
}

// List returns templates in declaration order.
func (c *Catalog) List() []Template {
	out := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted template IDs.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}
