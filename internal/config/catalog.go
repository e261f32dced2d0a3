package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDataset is the catalog name bound to JOBS_DATA_PATH.
const DefaultDataset = "default"

// CatalogEntry names one dataset file.
type CatalogEntry struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path" json:"path"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Catalog maps dataset names to files. The HTTP API only ever addresses
// datasets by catalog name, so clients cannot make the server read
// arbitrary paths.
type Catalog struct {
	Datasets []CatalogEntry `yaml:"datasets"`
}

// LoadCatalog reads a YAML catalog file. Relative dataset paths are resolved
// against the catalog file's directory.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range c.Datasets {
		p := c.Datasets[i].Path
		if p != "" && !filepath.IsAbs(p) {
			c.Datasets[i].Path = filepath.Join(base, p)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

// BuildCatalog combines the default dataset with the optional catalog file.
// A catalog entry named "default" replaces JOBS_DATA_PATH.
func BuildCatalog(cfg DataConfig) (*Catalog, error) {
	c := &Catalog{}
	if p := strings.TrimSpace(cfg.Path); p != "" {
		c.Datasets = append(c.Datasets, CatalogEntry{Name: DefaultDataset, Path: p})
	}
	if cfg.CatalogFile == "" {
		return c, nil
	}

	file, err := LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	for _, e := range file.Datasets {
		c.put(e)
	}
	return c, nil
}

// Validate rejects entries without a name or path and duplicate names.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Datasets))
	for i, e := range c.Datasets {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("dataset #%d has no name", i+1)
		}
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("dataset %q has no path", e.Name)
		}
		if seen[e.Name] {
			return fmt.Errorf("dataset %q is defined twice", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// Lookup returns the entry called name.
func (c *Catalog) Lookup(name string) (CatalogEntry, bool) {
	for _, e := range c.Datasets {
		if e.Name == name {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Paths returns every dataset path in catalog order.
func (c *Catalog) Paths() []string {
	paths := make([]string, 0, len(c.Datasets))
	for _, e := range c.Datasets {
		paths = append(paths, e.Path)
	}
	return paths
}

func (c *Catalog) put(e CatalogEntry) {
	for i := range c.Datasets {
		if c.Datasets[i].Name == e.Name {
			c.Datasets[i] = e
			return
		}
	}
	c.Datasets = append(c.Datasets, e)
}
