package config

import (
	"fmt"
	"os"
	"path/filepath"

	"critical-duration/internal/model"

	"gopkg.in/yaml.v3"
)

// BatchConfig lists the sites of a multi-site run.
type BatchConfig struct {
	Concurrency int       `yaml:"concurrency"`
	OutputDir   string    `yaml:"output_dir"`
	Sites       []SiteRef `yaml:"sites"`
}

// SiteRef points at a site file. If both File and Override are provided, Override wins
// field by field.
type SiteRef struct {
	File     string     `yaml:"file"`
	Override SiteConfig `yaml:"override"`
}

// LoadBatch reads a batch file and loads every referenced site. Sites inherit the batch
// output directory, nested by site name, unless they set their own.
func LoadBatch(path string) (*BatchConfig, []SiteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var b BatchConfig
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if b.Concurrency <= 0 {
		b.Concurrency = 1
	}
	if len(b.Sites) == 0 {
		return nil, nil, &model.ConfigurationError{Op: "batch config", Reason: "no sites listed"}
	}

	dir := filepath.Dir(path)
	sites := make([]SiteConfig, 0, len(b.Sites))
	for i, ref := range b.Sites {
		var base SiteConfig
		if ref.File != "" {
			loaded, err := LoadUnchecked(resolve(dir, ref.File))
			if err != nil {
				return nil, nil, fmt.Errorf("batch site %d: %w", i, err)
			}
			base = *loaded
		}
		ref.Override.resolvePaths(dir)
		sc := MergeSite(base, ref.Override)
		if sc.OutputDir == "" && b.OutputDir != "" {
			sc.OutputDir = filepath.Join(b.OutputDir, sc.Site)
		}
		sc.ApplyDefaults()
		if err := sc.Validate(); err != nil {
			return nil, nil, fmt.Errorf("batch site %d: %w", i, err)
		}
		sites = append(sites, sc)
	}
	return &b, sites, nil
}
