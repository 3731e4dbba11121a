package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client and server settings
type Config struct {
	Endpoint  string        `yaml:"endpoint"`
	DataDir   string        `yaml:"data_dir"`
	Backend   string        `yaml:"backend"`
	TypeDelay time.Duration `yaml:"type_delay"`
	Voice     VoiceConfig   `yaml:"voice"`
	Speech    SpeechConfig  `yaml:"speech"`
	Server    ServerConfig  `yaml:"server"`
}

// VoiceConfig controls reply playback
type VoiceConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Command       string `yaml:"command,omitempty"`
	SpeechOptions `yaml:",inline"`
}

// SpeechConfig controls spoken input
type SpeechConfig struct {
	Command string `yaml:"command,omitempty"`
}

// ServerConfig controls `astral serve`
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MemoryLimit    int      `yaml:"memory_limit"`
	AssetsOrigin   string   `yaml:"assets_origin,omitempty"`

	// Secrets only come from the environment.
	APIKey     string `yaml:"-"`
	BingAPIKey string `yaml:"-"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		Endpoint:  DefaultEndpoint,
		DataDir:   DefaultDataDir(),
		Backend:   BackendFile,
		TypeDelay: DefaultTypeDelay,
		Voice: VoiceConfig{
			SpeechOptions: DefaultSpeechOptions(),
		},
		Server: ServerConfig{
			Addr:           ":8000",
			Model:          "llama-3.3-70b-versatile",
			BaseURL:        "https://api.groq.com/openai/v1",
			AllowedOrigins: []string{"https://ropdawg.github.io"},
			MemoryLimit:    1000,
		},
	}
}

// DefaultDataDir returns ~/.astral, or a relative .astral if home is unknown
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".astral"
	}
	return filepath.Join(home, ".astral")
}

// DefaultConfigPath returns the user config file location
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(DefaultDataDir(), "config.yaml")
	}
	return filepath.Join(dir, "astral", "config.yaml")
}

// LoadConfig reads path over the defaults and applies environment
// overrides. An empty path means the default location, which may be absent.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ParseError{Source: "config", Key: path, Err: err}
		}
		LogDebug("Loaded config from %s", path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		LogDebug("No config file at %s, using defaults", path)
	default:
		return nil, &StorageError{Path: path, Op: "read", Err: err}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("ASTRAL_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := getenv("ASTRAL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("ASTRAL_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	c.Server.APIKey = getenv("GROQ_API_KEY")
	c.Server.BingAPIKey = getenv("BING_API_KEY")
}

// Validate checks settings that would otherwise fail later and obscurely
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("invalid backend %q (supported: file, sqlite)", c.Backend)
	}
	if c.TypeDelay < 0 {
		return fmt.Errorf("type_delay must not be negative")
	}
	if c.Server.MemoryLimit <= 0 {
		c.Server.MemoryLimit = 1000
	}
	return nil
}

// Save writes the config as YAML to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
