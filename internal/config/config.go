// Package config defines Sentinel's configuration: defaults, the YAML
// file under the user's home directory, and environment overrides for
// the Ollama endpoint.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Ollama OllamaConfig `yaml:"ollama"`
	Agent  AgentConfig  `yaml:"agent"`
	Server ServerConfig `yaml:"server"`
	Ledger LedgerConfig `yaml:"ledger"`
	Log    LogConfig    `yaml:"log"`
}

type OllamaConfig struct {
	Host           string `yaml:"host"`           // default "http://127.0.0.1:11434"
	Model          string `yaml:"model"`          // default "llama3.2:latest"
	NumCtx         int    `yaml:"numCtx"`         // default 16384
	TimeoutSeconds int    `yaml:"timeoutSeconds"` // default 300
}

type AgentConfig struct {
	ProjectRoot         string `yaml:"projectRoot"`         // default "." (resolved at startup)
	MaxRounds           int    `yaml:"maxRounds"`           // default 10
	MaxToolCalls        int    `yaml:"maxToolCalls"`        // default 25
	ShellTimeoutSeconds int    `yaml:"shellTimeoutSeconds"` // default 60
	MaxOutputBytes      int    `yaml:"maxOutputBytes"`      // default 30000
	MaxResults          int    `yaml:"maxResults"`          // default 500
}

type ServerConfig struct {
	Host string `yaml:"host"` // default "127.0.0.1"
	Port int    `yaml:"port"` // default 7171
}

type LedgerConfig struct {
	DataDir string `yaml:"dataDir"` // default "~/.sentinel/data"
}

type LogConfig struct {
	Level  string `yaml:"level"`  // default "info"
	Format string `yaml:"format"` // default "console"
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{
			Host:           "http://127.0.0.1:11434",
			Model:          "llama3.2:latest",
			NumCtx:         16384,
			TimeoutSeconds: 300,
		},
		Agent: AgentConfig{
			ProjectRoot:         ".",
			MaxRounds:           10,
			MaxToolCalls:        25,
			ShellTimeoutSeconds: 60,
			MaxOutputBytes:      30000,
			MaxResults:          500,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7171,
		},
		Ledger: LedgerConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "sentinel", "config.yaml")
	}
	return filepath.Join(home, ".sentinel", "config.yaml")
}

// Load reads the config file at path when it exists, overlays it on
// the defaults, and then applies environment overrides. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// applyEnv applies the standard Ollama environment overrides.
func (c *Config) applyEnv() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.Ollama.Host = host
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.Ollama.Model = model
	}
}

// OllamaTimeout returns the request timeout as a duration.
func (c *Config) OllamaTimeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSeconds) * time.Second
}

// ShellTimeout returns the default shell tool timeout as a duration.
func (c *Config) ShellTimeout() time.Duration {
	return time.Duration(c.Agent.ShellTimeoutSeconds) * time.Second
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the full path to the run-ledger database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.Ledger.DataDir, "sentinel.db")
}

// defaultDataDir resolves the default data directory, falling back to
// /tmp when the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "sentinel", "data")
	}
	return filepath.Join(home, ".sentinel", "data")
}
