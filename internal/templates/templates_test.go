package templates

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"papertimes/internal/core"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	classic, err := c.Get("classic")
	if err != nil {
		t.Fatalf("Get(classic) failed: %v", err)
	}
	if classic.Premium {
		t.Error("classic should be a free template")
	}

	broadsheet, err := c.Get("broadsheet")
	if err != nil {
		t.Fatalf("Get(broadsheet) failed: %v", err)
	}
	if !broadsheet.Premium {
		t.Error("broadsheet should be premium")
	}

	for _, tmpl := range c.List() {
		if tmpl.Style == "" {
			t.Errorf("template %s has no style", tmpl.ID)
		}
	}
}

func TestCatalogGet_Unknown(t *testing.T) {
	_, err := Default().Get("nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Template{{ID: "a"}, {ID: "a"}})
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	body := `templates:
  - id: campus
    name: Campus News
    style: Write for undergraduates.
  - id: gold
    premium: true
    style: Write for executives.
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	ids := c.IDs()
	if len(ids) != 2 || ids[0] != "campus" || ids[1] != "gold" {
		t.Fatalf("unexpected ids %v", ids)
	}
	gold, _ := c.Get("gold")
	if !gold.Premium || gold.Name != "gold" {
		t.Errorf("unexpected gold template %+v", gold)
	}
}
