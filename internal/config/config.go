package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// EnvPrefix is the prefix for environment overrides, e.g. GOVPULSE_SERVER_PORT.
const EnvPrefix = "GOVPULSE"

type Config struct {
	Server        Server        `yaml:"server"`
	Output        Output        `yaml:"output"`
	Summarization Summarization `yaml:"summarization"`
	Logging       Logging       `yaml:"logging"`
	LexiconPath   string        `yaml:"lexicon_path"`
	Schedule      Schedule      `yaml:"schedule"`
	Cache         Cache         `yaml:"cache"`
	Events        Events        `yaml:"events"`
}

type Server struct {
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client
	RateBurst int     `yaml:"rate_burst"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Summarization struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	OllamaURL      string        `yaml:"ollama_url"`
	OpenAIModel    string        `yaml:"openai_model"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	AnthropicModel string        `yaml:"anthropic_model"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	MaxTokens      int           `yaml:"max_tokens"`
	Timeout        time.Duration `yaml:"timeout"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Schedule struct {
	// Check is the cron spec for how often due report schedules are evaluated.
	Check string `yaml:"check"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl"`
}

type Events struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

// ConfigDir returns the XDG config directory for govpulse.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "govpulse")
}

// DataDir returns the XDG data directory for govpulse.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "govpulse")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/govpulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'govpulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{Port: 8000, RateLimit: 5, RateBurst: 10},
		Summarization: Summarization{
			Provider:       "none",
			Model:          "qwen2.5:7b",
			OllamaURL:      "http://localhost:11434",
			OpenAIModel:    "gpt-4o-mini",
			AnthropicModel: "claude-3-5-haiku-latest",
			MaxTokens:      1024,
			Timeout:        60 * time.Second,
		},
		Logging:  Logging{Level: "info", Format: "text"},
		Schedule: Schedule{Check: "@every 1m"},
		Cache:    Cache{TTL: 5 * time.Minute},
		Events:   Events{Exchange: "govpulse.feedback"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// NewViper returns a viper instance reading GOVPULSE_* environment variables,
// with dots in keys mapped to underscores.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies any values set in v (flags or environment) over the
// file configuration.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v == nil {
		return
	}
	if v.IsSet("server.port") {
		c.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.rate_limit") {
		c.Server.RateLimit = v.GetFloat64("server.rate_limit")
	}
	if v.IsSet("output.data_dir") {
		c.Output.DataDir = v.GetString("output.data_dir")
	}
	if v.IsSet("summarization.provider") {
		c.Summarization.Provider = v.GetString("summarization.provider")
	}
	if v.IsSet("summarization.model") {
		c.Summarization.Model = v.GetString("summarization.model")
	}
	if v.IsSet("summarization.ollama_url") {
		c.Summarization.OllamaURL = v.GetString("summarization.ollama_url")
	}
	if v.IsSet("logging.level") {
		c.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.format") {
		c.Logging.Format = v.GetString("logging.format")
	}
	if v.IsSet("lexicon_path") {
		c.LexiconPath = v.GetString("lexicon_path")
	}
	if v.IsSet("events.amqp_url") {
		c.Events.AMQPURL = v.GetString("events.amqp_url")
	}
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
