package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.Session.Backend != "file" {
		t.Errorf("expected file backend, got %s", cfg.Session.Backend)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("expected 24h TTL, got %s", cfg.Session.TTL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("expected 10 MiB ceiling, got %d", cfg.MaxUploadBytes)
	}
	if cfg.Admin.Username != "admin" || cfg.Admin.Email != "admin@esparfumerie.com" {
		t.Errorf("unexpected admin defaults: %+v", cfg.Admin)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_BACKEND", "memory")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://shop.example, https://admin.example")

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:8081" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
	if cfg.IsDevelopment() {
		t.Error("expected production")
	}
	if cfg.Session.Backend != "memory" || cfg.Session.TTL != 30*time.Minute {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[1] != "https://admin.example" {
		t.Errorf("unexpected origins %v", origins)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("UPLOADS_DIR=/srv/uploads\nPORT=9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The environment wins over the file.
	t.Setenv("PORT", "9100")
	t.Cleanup(func() { os.Unsetenv("UPLOADS_DIR") })

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UploadsDir != "/srv/uploads" {
		t.Errorf("expected uploads dir from file, got %s", cfg.UploadsDir)
	}
	if cfg.Port != 9100 {
		t.Errorf("expected environment port 9100, got %d", cfg.Port)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("expected missing env file to be ignored, got %v", err)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"SESSION_BACKEND", "redis", "Backend must be one of"},
		{"SESSION_TTL", "0s", "TTL"},
		{"MAX_UPLOAD_BYTES", "0", "MaxUploadBytes"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(context.Background(), "")
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestSetAddr(t *testing.T) {
	cfg := &Config{Host: "0.0.0.0", Port: 3000}
	if err := cfg.SetAddr(":8080"); err != nil {
		t.Fatalf("SetAddr: %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Addr())
	}
	if err := cfg.SetAddr("localhost"); err == nil {
		t.Error("expected error for address without port")
	}
}
