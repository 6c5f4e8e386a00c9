// ABOUTME: Configuration loading and validation
// ABOUTME: YAML file with environment variable overrides
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AudioConfig controls the output device
type AudioConfig struct {
	DeviceSampleRate int `yaml:"device_sample_rate"`
	Volume           int `yaml:"volume"`
}

// BackendConfig parameterizes one TTS vendor
type BackendConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Voice      string `yaml:"voice"`
	SampleRate int    `yaml:"sample_rate"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint
type LLMConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Config is the full application configuration
type Config struct {
	Backend   string        `yaml:"backend"`
	Audio     AudioConfig   `yaml:"audio"`
	CosyVoice BackendConfig `yaml:"cosyvoice"`
	Cartesia  BackendConfig `yaml:"cartesia"`
	LLM       LLMConfig     `yaml:"llm"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Backend: "cosyvoice",
		Audio: AudioConfig{
			DeviceSampleRate: 48000,
			Volume:           100,
		},
		CosyVoice: BackendConfig{
			Model:      "cosyvoice-v2",
			Voice:      "longxiaochun_v2",
			SampleRate: 24000,
		},
		Cartesia: BackendConfig{
			Model:      "sonic-english",
			SampleRate: 44100,
		},
		LLM: LLMConfig{
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a helpful voice assistant. Keep answers short and conversational.",
		},
	}
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
// Vendor-native key variables are honored so existing credentials work.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Backend, "VOXCHAT_BACKEND")

	setString(&cfg.CosyVoice.APIKey, "VOXCHAT_COSYVOICE_API_KEY", "DASHSCOPE_API_KEY")
	setString(&cfg.CosyVoice.Voice, "VOXCHAT_COSYVOICE_VOICE")

	setString(&cfg.Cartesia.APIKey, "VOXCHAT_CARTESIA_API_KEY", "CARTESIA_API_KEY")
	setString(&cfg.Cartesia.Voice, "VOXCHAT_CARTESIA_VOICE")

	setString(&cfg.LLM.BaseURL, "VOXCHAT_LLM_BASE_URL")
	setString(&cfg.LLM.APIKey, "VOXCHAT_LLM_API_KEY", "OPENAI_API_KEY")
	setString(&cfg.LLM.Model, "VOXCHAT_LLM_MODEL")

	setInt(&cfg.Audio.Volume, "VOXCHAT_VOLUME")
}

func setString(target *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*target = v
			return
		}
	}
}

func setInt(target *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

// Validate checks the configuration for obvious mistakes
func (c Config) Validate() error {
	if c.Backend != "cosyvoice" && c.Backend != "cartesia" {
		return fmt.Errorf("unsupported tts backend: %q", c.Backend)
	}
	if c.Audio.DeviceSampleRate <= 0 {
		return fmt.Errorf("invalid device sample rate: %d", c.Audio.DeviceSampleRate)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be 0-100, got %d", c.Audio.Volume)
	}
	if c.CosyVoice.SampleRate <= 0 || c.Cartesia.SampleRate <= 0 {
		return fmt.Errorf("backend sample rates must be positive")
	}
	return nil
}
