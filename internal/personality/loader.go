package personality

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// LoadFiles reads YAML descriptors matching the glob patterns and registers
// them. A descriptor whose id matches an existing one replaces it. Returns the
// number of descriptors loaded.
func (r *Registry) LoadFiles(patterns []string) (int, error) {
	loaded := 0
	for _, pattern := range patterns {
		base, rel := doublestar.SplitPattern(filepath.ToSlash(pattern))
		matches, err := doublestar.Glob(os.DirFS(base), rel)
		if err != nil {
			return loaded, fmt.Errorf("personality pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			path := filepath.Join(base, filepath.FromSlash(m))
			d, err := loadFile(path)
			if err != nil {
				return loaded, err
			}
			if err := r.Register(d); err != nil {
				return loaded, fmt.Errorf("%s: %w", path, err)
			}
			loaded++
		}
	}
	return loaded, nil
}

func loadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if d.ID == "" {
		base := filepath.Base(path)
		d.ID = base[:len(base)-len(filepath.Ext(base))]
	}
	return &d, nil
}
