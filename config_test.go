package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	s, err := DefaultSettings()
	if err != nil {
		t.Fatalf("DefaultSettings() error = %v", err)
	}
	if s.ImageColumn != "商品图片" || s.SheetName != "Sheet1" {
		t.Errorf("settings = %+v", s)
	}
	if s.Images.Workers != 8 || s.Images.MaxRetries != 3 || s.Images.Timeout != 30*time.Second {
		t.Errorf("images = %+v", s.Images)
	}
	if s.Images.MaxDisplaySize != 100 || s.Images.RowHeight != 80 || s.Images.ColumnWidth != 15 {
		t.Errorf("layout = %+v", s.Images)
	}
	if len(s.IDColumns) == 0 {
		t.Error("no identifier columns in defaults")
	}
}

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	s, err := loadSettings(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.Images.Workers != 8 {
		t.Errorf("Workers = %d, want 8", s.Images.Workers)
	}
}

func TestLoadSettingsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	yaml := `image_column: 图片
images:
  workers: 2
  retry_backoff: 250ms
  max_retries: 0
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := loadSettings(path)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if s.ImageColumn != "图片" || s.Images.Workers != 2 || s.Images.RetryBackoff != 250*time.Millisecond {
		t.Errorf("settings = %+v", s)
	}
	if s.Images.MaxRetries != 1 {
		t.Errorf("MaxRetries = %d, want minimum 1", s.Images.MaxRetries)
	}
	if s.Images.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default kept", s.Images.Timeout)
	}
}

func TestLoadSettingsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	os.WriteFile(path, []byte("images: [oops"), 0644)
	if _, err := loadSettings(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadSettingsRequired(t *testing.T) {
	if _, err := loadSettingsRequired(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing required settings")
	}
}
