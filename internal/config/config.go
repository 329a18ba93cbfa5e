// Package config manages labelkit configuration and the .labelkit
// directory structure: loading, saving, and initializing a project.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/kilupskalvis/labelkit/internal/models"
)

const (
	// Dir is the project directory created next to the data.
	Dir            = ".labelkit"
	ConfigFile     = "config"
	StateFile      = "state.db"
	ResultsFile    = "results.db"
	BlobsDir       = "blobs"
	LabelingConfig = "labeling.yaml"
)

// Config is the project configuration.
type Config struct {
	ProjectName string `toml:"project_name"`
	CreatedBy   string `toml:"created_by,omitempty"`
	// LabelingConfigPath points at the YAML labeling config, relative to
	// the project root when not absolute.
	LabelingConfigPath string `toml:"labeling_config"`
	AllowDrawOutside   bool   `toml:"allow_draw_outside,omitempty"`

	path string // path to the .labelkit directory
}

// FindRoot locates the .labelkit directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, Dir)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a labelkit project (or any parent up to root)")
		}
		dir = parent
	}
}

// Load reads the configuration from the nearest .labelkit directory.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom reads the configuration from a specific .labelkit directory.
func LoadFrom(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = root
	return &cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Path returns the .labelkit directory.
func (c *Config) Path() string {
	return c.path
}

// StatePath returns the bbolt state database path.
func (c *Config) StatePath() string {
	return filepath.Join(c.path, StateFile)
}

// ResultsPath returns the sqlite results database path.
func (c *Config) ResultsPath() string {
	return filepath.Join(c.path, ResultsFile)
}

// BlobsPath returns the mask blob directory.
func (c *Config) BlobsPath() string {
	return filepath.Join(c.path, BlobsDir)
}

// LabelingPath resolves the labeling config location.
func (c *Config) LabelingPath() string {
	if filepath.IsAbs(c.LabelingConfigPath) {
		return c.LabelingConfigPath
	}
	return filepath.Join(c.path, c.LabelingConfigPath)
}

// Initialize creates a new .labelkit directory under dir with an initial
// configuration.
func Initialize(dir, projectName string) (*Config, error) {
	root := filepath.Join(dir, Dir)
	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("labelkit project already exists")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", Dir, err)
	}
	if err := os.MkdirAll(filepath.Join(root, BlobsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create blobs directory: %w", err)
	}
	cfg := &Config{
		ProjectName:        projectName,
		LabelingConfigPath: LabelingConfig,
		path:               root,
	}
	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SettingsStore is the narrow persistence port editor settings go through.
// The bbolt store implements it; tests inject fakes.
type SettingsStore interface {
	LoadSettings() (models.EditorSettings, error)
	SaveSettings(models.EditorSettings) error
}
