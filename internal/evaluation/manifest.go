package evaluation

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Item is one labelled screenshot.
type Item struct {
	ID            string `yaml:"id"`
	Image         string `yaml:"image"`
	ExpectedLink  string `yaml:"expected_link"`
	ExpectedTitle string `yaml:"expected_title"`
}

// Manifest lists the screenshots of an evaluation run
type Manifest struct {
	Items []Item `yaml:"items"`
}

// LoadManifest reads a manifest file. Relative image paths are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	base := filepath.Dir(path)
	for i, item := range manifest.Items {
		if item.Image == "" {
			return nil, fmt.Errorf("manifest item %d has no image", i)
		}
		if item.ID == "" {
			manifest.Items[i].ID = filepath.Base(item.Image)
		}
		if !filepath.IsAbs(item.Image) {
			manifest.Items[i].Image = filepath.Join(base, item.Image)
		}
	}

	return &manifest, nil
}
