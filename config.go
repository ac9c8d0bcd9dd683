package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".column-export"

//go:embed config/settings.yaml
var defaultSettings string

// ImageSettings controls the download and embedding pipeline
type ImageSettings struct {
	Dir            string        `yaml:"dir"`
	Workers        int           `yaml:"workers"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBackoff   time.Duration `yaml:"retry_backoff"`
	UserAgent      string        `yaml:"user_agent"`
	MaxDisplaySize int           `yaml:"max_display_size"`
	RowHeight      float64       `yaml:"row_height"`
	ColumnWidth    float64       `yaml:"column_width"`
	ThumbnailMaxPx int           `yaml:"thumbnail_max_px"`
	JPEGQuality    int           `yaml:"jpeg_quality"`
	Normalize      bool          `yaml:"normalize"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	OutputDirectory string        `yaml:"output_directory"`
	SheetName       string        `yaml:"sheet_name"`
	ImageColumn     string        `yaml:"image_column"`
	IDColumns       []string      `yaml:"id_columns"`
	Images          ImageSettings `yaml:"images"`
}

// GetConfigPath returns the full path to a config file
func GetConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// DefaultSettings parses the embedded settings file
func DefaultSettings() (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}
	return &settings, nil
}

// loadSettings loads settings from YAML file with fallback to defaults
func loadSettings(settingsPath string) (*Settings, error) {
	settings, err := DefaultSettings()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", settingsPath, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", settingsPath, err)
	}
	settings.applyMinimums()
	return settings, nil
}

// loadSettingsRequired loads settings from YAML file, failing if file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	if _, err := os.Stat(settingsPath); err != nil {
		return nil, fmt.Errorf("settings file %s: %w", settingsPath, err)
	}
	return loadSettings(settingsPath)
}

// applyMinimums replaces unusable values that a partial settings file may leave behind
func (s *Settings) applyMinimums() {
	if s.SheetName == "" {
		s.SheetName = "Sheet1"
	}
	if s.Images.Dir == "" {
		s.Images.Dir = "images"
	}
	if s.Images.Workers <= 0 {
		s.Images.Workers = 8
	}
	if s.Images.MaxRetries <= 0 {
		s.Images.MaxRetries = 1
	}
	if s.Images.Timeout <= 0 {
		s.Images.Timeout = 30 * time.Second
	}
	if s.Images.MaxDisplaySize <= 0 {
		s.Images.MaxDisplaySize = 100
	}
	if s.Images.JPEGQuality <= 0 || s.Images.JPEGQuality > 100 {
		s.Images.JPEGQuality = 90
	}
}

// ensureConfigExists creates config directory and writes settings.yaml if needed
func ensureConfigExists() (string, error) {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := GetConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return "", fmt.Errorf("writing settings.yaml: %w", err)
		}
	}
	return settingsFile, nil
}
