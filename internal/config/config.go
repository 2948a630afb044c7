package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration for the Maestro assistant backend.
// It is loaded from ~/.maestro/config.yaml and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Skills   SkillsConfig   `mapstructure:"skills" yaml:"skills"`
	Chat     ChatConfig     `mapstructure:"chat" yaml:"chat"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	// Host is the interface to bind (default 0.0.0.0)
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the TCP port to listen on
	Port int `mapstructure:"port" yaml:"port"`
	// AllowedOrigin is the value sent in CORS headers ("*" by default)
	AllowedOrigin string `mapstructure:"allowed_origin" yaml:"allowed_origin"`
}

// DatabaseConfig contains settings for the SQLite store.
type DatabaseConfig struct {
	// Path is the location of the SQLite database file
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// Format is the output format ("console" or "json")
	Format string `mapstructure:"format" yaml:"format"`
}

// SessionConfig contains settings for session tokens.
type SessionConfig struct {
	// Secret signs session tokens. Required for serving; also read from
	// MAESTRO_SESSION_SECRET or SESSION_SECRET.
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`
	// TTL is how long a session stays valid without activity
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// LLMConfig contains configuration for the language-model provider.
type LLMConfig struct {
	// Provider selects the client implementation ("gemini", "openai", "ollama")
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Model is the model identifier sent to the provider
	Model string `mapstructure:"model" yaml:"model"`
	// APIKey authenticates against the provider; also read from GEMINI_API_KEY
	// (or OPENAI_API_KEY when provider is "openai")
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Endpoint overrides the provider's default API base URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// Timeout bounds a single completion call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SkillsConfig contains per-connector credentials. A connector with no
// credentials stays registered but reports upstream unavailable when invoked.
type SkillsConfig struct {
	YouTube YouTubeConfig `mapstructure:"youtube" yaml:"youtube"`
	Spotify SpotifyConfig `mapstructure:"spotify" yaml:"spotify"`
	Weather WeatherConfig `mapstructure:"weather" yaml:"weather"`
	// Timeout bounds a single connector call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// YouTubeConfig holds YouTube Data API credentials.
type YouTubeConfig struct {
	// APIKey is the YouTube Data API v3 key; also read from YOUTUBE_API_KEY
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// SpotifyConfig holds Spotify client-credentials settings.
type SpotifyConfig struct {
	// ClientID is the Spotify app client id; also read from SPOTIFY_CLIENT_ID
	ClientID string `mapstructure:"client_id" yaml:"client_id,omitempty"`
	// ClientSecret is the Spotify app secret; also read from SPOTIFY_CLIENT_SECRET
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret,omitempty"`
}

// WeatherConfig holds OpenWeather credentials.
type WeatherConfig struct {
	// APIKey is the OpenWeather API key; also read from OPENWEATHER_API_KEY
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// ChatConfig tunes conversation handling.
type ChatConfig struct {
	// ContextWindow is how many stored messages are replayed into the prompt
	ContextWindow int `mapstructure:"context_window" yaml:"context_window"`
	// HistoryLimit caps stored messages per user; older rows are pruned
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	maestroDir := filepath.Join(homeDir, ".maestro")

	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8420,
			AllowedOrigin: "*",
		},
		Database: DatabaseConfig{
			Path: filepath.Join(maestroDir, "maestro.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Session: SessionConfig{
			Secret: "",
			TTL:    24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			APIKey:   "",
			Endpoint: "",
			Timeout:  60 * time.Second,
		},
		Skills: SkillsConfig{
			YouTube: YouTubeConfig{APIKey: ""},
			Spotify: SpotifyConfig{ClientID: "", ClientSecret: ""},
			Weather: WeatherConfig{APIKey: ""},
			Timeout: 10 * time.Second,
		},
		Chat: ChatConfig{
			ContextWindow: 20,
			HistoryLimit:  500,
		},
	}
}

// Load reads configuration from the default location (~/.maestro/config.yaml)
// and merges with environment variables. If no config file exists, it creates
// one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".maestro", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges with
// environment variables. If the file doesn't exist, it creates one with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment overrides, e.g. MAESTRO_SERVER_PORT or MAESTRO_LLM_API_KEY.
	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials are also accepted under their conventional upstream names.
	bindings := map[string][]string{
		"session.secret":               {"MAESTRO_SESSION_SECRET", "SESSION_SECRET"},
		"llm.api_key":                  {"MAESTRO_LLM_API_KEY", "GEMINI_API_KEY"},
		"skills.youtube.api_key":       {"MAESTRO_SKILLS_YOUTUBE_API_KEY", "YOUTUBE_API_KEY"},
		"skills.spotify.client_id":     {"MAESTRO_SKILLS_SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_ID"},
		"skills.spotify.client_secret": {"MAESTRO_SKILLS_SPOTIFY_CLIENT_SECRET", "SPOTIFY_CLIENT_SECRET"},
		"skills.weather.api_key":       {"MAESTRO_SKILLS_WEATHER_API_KEY", "OPENWEATHER_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing values so a hand-edited config file with
// omitted keys still yields a usable configuration.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.AllowedOrigin == "" {
		c.Server.AllowedOrigin = defaults.Server.AllowedOrigin
	}
	if c.Database.Path == "" {
		c.Database.Path = defaults.Database.Path
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = defaults.Session.TTL
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = defaults.LLM.Timeout
	}
	if c.Skills.Timeout <= 0 {
		c.Skills.Timeout = defaults.Skills.Timeout
	}
	if c.Chat.ContextWindow <= 0 {
		c.Chat.ContextWindow = defaults.Chat.ContextWindow
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = defaults.Chat.HistoryLimit
	}
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".maestro", "config.yaml")
	return c.SaveToPath(configPath)
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the Maestro data directory path (~/.maestro).
func (c *Config) GetDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".maestro")
}

// EnsureDirectories creates all directories the application writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.GetDataDir(),
		filepath.Dir(c.Database.Path),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format '%s', must be 'console' or 'json'", c.Logging.Format)
	}

	validProviders := map[string]bool{"gemini": true, "openai": true, "ollama": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider '%s', must be one of: gemini, openai, ollama", c.LLM.Provider)
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}

	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session.ttl must be at least one minute, got %s", c.Session.TTL)
	}

	if c.Chat.ContextWindow < 1 {
		return fmt.Errorf("chat.context_window must be positive, got %d", c.Chat.ContextWindow)
	}

	if c.Chat.HistoryLimit < c.Chat.ContextWindow {
		return fmt.Errorf("chat.history_limit (%d) cannot be smaller than chat.context_window (%d)",
			c.Chat.HistoryLimit, c.Chat.ContextWindow)
	}

	return nil
}

// Redacted returns a copy of the configuration with secrets masked,
// suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	out.Session.Secret = mask(c.Session.Secret)
	out.LLM.APIKey = mask(c.LLM.APIKey)
	out.Skills.YouTube.APIKey = mask(c.Skills.YouTube.APIKey)
	out.Skills.Spotify.ClientID = mask(c.Skills.Spotify.ClientID)
	out.Skills.Spotify.ClientSecret = mask(c.Skills.Spotify.ClientSecret)
	out.Skills.Weather.APIKey = mask(c.Skills.Weather.APIKey)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
