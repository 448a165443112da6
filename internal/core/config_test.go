package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_DefaultsWhenFileMissing(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if config.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", config.Port)
	}
	if config.Database.Type != "sqlite" || config.Database.ConnectionString != "images.db" {
		t.Errorf("unexpected default database config: %+v", config.Database)
	}
	if config.ImagesDir != "images" {
		t.Errorf("expected default images dir, got %q", config.ImagesDir)
	}
	if config.ThumbnailMaxWidth != 100 || config.ThumbnailMaxHeight != 100 {
		t.Errorf("expected default 100x100 bounding box, got %dx%d",
			config.ThumbnailMaxWidth, config.ThumbnailMaxHeight)
	}
	if !config.CaseSensitiveSearch {
		t.Errorf("expected case-sensitive search by default")
	}
	if config.Redis.Addr != "" {
		t.Errorf("expected cache disabled by default, got addr %q", config.Redis.Addr)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 8080
database:
  type: sqlite
  connectionString: /data/images.db
imagesDir: /data/images
thumbnailMaxWidth: 64
thumbnailMaxHeight: 64
caseSensitiveSearch: false
redis:
  addr: localhost:6379
  db: 2
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if config.Port != 8080 {
		t.Errorf("expected port 8080, got %d", config.Port)
	}
	if config.Database.ConnectionString != "/data/images.db" {
		t.Errorf("unexpected connection string %q", config.Database.ConnectionString)
	}
	if config.ImagesDir != "/data/images" {
		t.Errorf("unexpected images dir %q", config.ImagesDir)
	}
	if config.ThumbnailMaxWidth != 64 || config.ThumbnailMaxHeight != 64 {
		t.Errorf("unexpected bounding box %dx%d", config.ThumbnailMaxWidth, config.ThumbnailMaxHeight)
	}
	if config.CaseSensitiveSearch {
		t.Errorf("expected case-insensitive search from file")
	}
	if config.Redis.Addr != "localhost:6379" || config.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", config.Redis)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "/override/images.db")
	t.Setenv("PORT", "9999")

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if config.Database.ConnectionString != "/override/images.db" {
		t.Errorf("expected DATABASE_URL override, got %q", config.Database.ConnectionString)
	}
	if config.Port != 9999 {
		t.Errorf("expected PORT override, got %d", config.Port)
	}
}

func TestLoadConfig_InvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for invalid PORT value, got nil")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: -1
thumbnailMaxWidth: 0
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Fatalf("expected validation error, got nil")
	}
}
