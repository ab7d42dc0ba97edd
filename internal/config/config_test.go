package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SCENE_SOURCE", "")
	t.Setenv("MATERIALIZE_TIMEOUT", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected defaults to load, got %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected default address, got %s", cfg.ServerAddress())
	}
	if cfg.SceneSource != "local" {
		t.Errorf("Expected local scene source, got %s", cfg.SceneSource)
	}
	if cfg.MaterializeTimeout != 60*time.Second {
		t.Errorf("Expected 60s materialize timeout, got %s", cfg.MaterializeTimeout)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "99999"}},
		{"unknown source", map[string]string{"SCENE_SOURCE": "ftp"}},
		{"http without url", map[string]string{"SCENE_SOURCE": "http", "SCENE_API_URL": ""}},
		{"azure without key", map[string]string{"SCENE_SOURCE": "azure", "AZURE_STORAGE_ACCOUNT": "acct", "AZURE_STORAGE_KEY": ""}},
		{"bad overpass url", map[string]string{"SCENE_SOURCE": "memory", "OVERPASS_URL": "ftp://overpass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadFromEnv(); err == nil {
				t.Error("Expected configuration error")
			}
		})
	}
}

func TestCredential_FileAndInline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{CredentialFile: path}
	data, err := cfg.Credential()
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Errorf("Expected file credential, got %q (%v)", data, err)
	}

	cfg.CredentialJSON = `{"inline":true}`
	data, _ = cfg.Credential()
	if string(data) != `{"inline":true}` {
		t.Errorf("Expected inline credential to win, got %q", data)
	}

	empty := &Config{}
	if data, err := empty.Credential(); data != nil || err != nil {
		t.Errorf("Expected no credential, got %q (%v)", data, err)
	}
}
