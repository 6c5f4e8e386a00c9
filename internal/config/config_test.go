// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, YAML parsing, env overrides, and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Backend != "cosyvoice" {
		t.Errorf("expected cosyvoice default backend, got %q", cfg.Backend)
	}
	if cfg.Audio.DeviceSampleRate != 48000 {
		t.Errorf("expected 48000 device rate, got %d", cfg.Audio.DeviceSampleRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != "cosyvoice" {
		t.Errorf("expected defaults, got backend %q", cfg.Backend)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
backend: cartesia
audio:
  device_sample_rate: 44100
  volume: 80
cartesia:
  voice: test-voice
  sample_rate: 44100
llm:
  model: test-model
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != "cartesia" {
		t.Errorf("expected cartesia, got %q", cfg.Backend)
	}
	if cfg.Audio.Volume != 80 {
		t.Errorf("expected volume 80, got %d", cfg.Audio.Volume)
	}
	if cfg.Cartesia.Voice != "test-voice" {
		t.Errorf("expected test-voice, got %q", cfg.Cartesia.Voice)
	}
	if cfg.LLM.Model != "test-model" {
		t.Errorf("expected test-model, got %q", cfg.LLM.Model)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOXCHAT_BACKEND", "cartesia")
	t.Setenv("CARTESIA_API_KEY", "env-key")
	t.Setenv("VOXCHAT_VOLUME", "55")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != "cartesia" {
		t.Errorf("expected env backend override, got %q", cfg.Backend)
	}
	if cfg.Cartesia.APIKey != "env-key" {
		t.Errorf("expected env api key, got %q", cfg.Cartesia.APIKey)
	}
	if cfg.Audio.Volume != 55 {
		t.Errorf("expected volume 55, got %d", cfg.Audio.Volume)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Backend = "espeak"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = Default()
	cfg.Audio.Volume = 200
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range volume")
	}

	cfg = Default()
	cfg.Audio.DeviceSampleRate = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero device rate")
	}
}
