package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"critical-duration/internal/analysis"
	"critical-duration/internal/model"

	"gopkg.in/yaml.v3"
)

// SiteConfig is the on-disk configuration for one gauge (YAML).
type SiteConfig struct {
	Site     string `yaml:"site"`
	Variable string `yaml:"variable"`
	// DataFile is a daily series CSV (date,value). Without one the series is fetched
	// from NWIS for USGSSite.
	DataFile  string `yaml:"data_file"`
	USGSSite  string `yaml:"usgs_site"`
	OutputDir string `yaml:"output_dir"`
	// Method picks the statistic reported as the critical duration.
	Method string `yaml:"method"`

	Events    EventsConfig    `yaml:"events"`
	Reservoir ReservoirConfig `yaml:"reservoir"`
	CVHS      CVHSConfig      `yaml:"cvhs"`
}

type EventsConfig struct {
	Threshold   float64 `yaml:"threshold"`
	MinDuration int     `yaml:"min_duration"`
	MinPeak     float64 `yaml:"min_peak"`
}

// ReservoirConfig enables routing and the volume-window method when RatingFile is set.
// ObservedFile (date,AF,QD) replaces the routed record for the volume window.
type ReservoirConfig struct {
	RatingFile     string  `yaml:"rating_file"`
	StartElevation float64 `yaml:"start_elevation"`
	ObservedFile   string  `yaml:"observed_file"`
	MaxWidth       int     `yaml:"max_width"`
}

type CVHSConfig struct {
	Enabled       bool    `yaml:"enabled"`
	HydroDuration int     `yaml:"hydro_duration"`
	Step          int     `yaml:"step"`
	MinPeak       float64 `yaml:"min_peak"`
}

// Screening returns the event screening bounds.
func (e EventsConfig) Screening() model.Screening {
	return model.Screening{MinDuration: e.MinDuration, MinPeak: e.MinPeak}
}

func Load(path string) (*SiteConfig, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads a site config and resolves its file references, but does not
// validate it.
func LoadUnchecked(path string) (*SiteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c SiteConfig
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.resolvePaths(filepath.Dir(path))
	return &c, nil
}

func (c *SiteConfig) resolvePaths(dir string) {
	c.DataFile = resolve(dir, c.DataFile)
	c.Reservoir.RatingFile = resolve(dir, c.Reservoir.RatingFile)
	c.Reservoir.ObservedFile = resolve(dir, c.Reservoir.ObservedFile)
}

// resolve prefers interpreting relative paths as relative to the config file directory,
// but falls back to the provided path (relative to cwd) if that doesn't exist.
func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

func (c *SiteConfig) ApplyDefaults() {
	if c.Variable == "" {
		c.Variable = string(model.KindFlow)
	}
	if c.Method == "" {
		c.Method = string(analysis.MethodPeakWeighted)
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.CVHS.Step == 0 {
		c.CVHS.Step = 1
	}
}

func (c *SiteConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	bad := func(reason string) error {
		return &model.ConfigurationError{Op: "site config " + c.Site, Reason: reason}
	}
	if c.Site == "" {
		return &model.ConfigurationError{Op: "site config", Reason: "site is required"}
	}
	if c.DataFile == "" && c.USGSSite == "" {
		return bad("data_file or usgs_site is required")
	}
	if _, err := model.ParseVariableKind(c.Variable); err != nil {
		return err
	}
	if _, err := analysis.ParseMethod(c.Method); err != nil {
		return err
	}
	if c.Events.MinDuration < 0 || c.Events.MinPeak < 0 {
		return bad("events.min_duration and events.min_peak must be >= 0")
	}
	if c.Reservoir.MaxWidth < 0 {
		return bad("reservoir.max_width must be >= 0")
	}
	if c.Reservoir.ObservedFile != "" && c.Reservoir.RatingFile == "" {
		return bad("reservoir.observed_file needs reservoir.rating_file")
	}
	if c.CVHS.Enabled {
		if c.Reservoir.RatingFile == "" {
			return bad("cvhs needs reservoir.rating_file")
		}
		if c.CVHS.HydroDuration < 1 {
			return bad("cvhs.hydro_duration must be >= 1")
		}
		if c.CVHS.Step < 1 {
			return bad("cvhs.step must be >= 1")
		}
	}
	return nil
}

// MergeSite overlays non-zero fields from override onto base.
// This is used when a batch entry adjusts a shared site file.
func MergeSite(base, override SiteConfig) SiteConfig {
	out := base
	if override.Site != "" {
		out.Site = override.Site
	}
	if override.Variable != "" {
		out.Variable = override.Variable
	}
	if override.DataFile != "" {
		out.DataFile = override.DataFile
	}
	if override.USGSSite != "" {
		out.USGSSite = override.USGSSite
	}
	if override.OutputDir != "" {
		out.OutputDir = override.OutputDir
	}
	if override.Method != "" {
		out.Method = override.Method
	}

	if override.Events.Threshold != 0 {
		out.Events.Threshold = override.Events.Threshold
	}
	if override.Events.MinDuration != 0 {
		out.Events.MinDuration = override.Events.MinDuration
	}
	if override.Events.MinPeak != 0 {
		out.Events.MinPeak = override.Events.MinPeak
	}

	if override.Reservoir.RatingFile != "" {
		out.Reservoir.RatingFile = override.Reservoir.RatingFile
	}
	if override.Reservoir.StartElevation != 0 {
		out.Reservoir.StartElevation = override.Reservoir.StartElevation
	}
	if override.Reservoir.ObservedFile != "" {
		out.Reservoir.ObservedFile = override.Reservoir.ObservedFile
	}
	if override.Reservoir.MaxWidth != 0 {
		out.Reservoir.MaxWidth = override.Reservoir.MaxWidth
	}

	// Note: an override can switch CVHS on but not off.
	if override.CVHS.Enabled {
		out.CVHS.Enabled = true
	}
	if override.CVHS.HydroDuration != 0 {
		out.CVHS.HydroDuration = override.CVHS.HydroDuration
	}
	if override.CVHS.Step != 0 {
		out.CVHS.Step = override.CVHS.Step
	}
	if override.CVHS.MinPeak != 0 {
		out.CVHS.MinPeak = override.CVHS.MinPeak
	}
	return out
}
