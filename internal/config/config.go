package config

import (
	"os"
	"path/filepath"

	"github.com/aide-tools/aide/internal/profile"
)

type Config struct {
	Server ServerConfig
	Paths  PathsConfig
	AI     AIConfig
	OpenAI OpenAIConfig
	Azure  AzureConfig
	Review ReviewConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port int
}

// PathsConfig holds the application directories. Config, functions,
// templates, and output default to paths relative to the working directory
// so a project checkout works without any setup; DataDir follows XDG.
type PathsConfig struct {
	ConfigDir    string
	FunctionsDir string
	TemplatesDir string
	OutputDir    string
	DataDir      string
}

type AIConfig struct {
	ActiveClient string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
}

type AzureConfig struct {
	Endpoint string
	APIKey   string
}

type ReviewConfig struct {
	Model string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Paths: PathsConfig{
			ConfigDir:    "config",
			FunctionsDir: "functions",
			TemplatesDir: "templates",
			OutputDir:    "output",
			DataDir:      defaultDataDir(),
		},
		AI: AIConfig{
			ActiveClient: string(profile.ClientOpenAI),
		},
		Review: ReviewConfig{
			Model: "gpt-4o",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "aide-data"
		}
	}
	return filepath.Join(dir, "aide")
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/aide/config.json, then applies AIDE_* environment
// variable overrides. API keys are secrets: they come from the environment
// or from the secrets store, never from the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), secretsStore{})
}

// secrets abstracts the secret store for testing.
type secrets interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, sec secrets) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Fall back to the secrets store for keys still empty. A missing key is
	// not fatal: only operations that contact the backend need one.
	if cfg.OpenAI.APIKey == "" {
		if key, err := sec.Get(secretsService, "openai_api_key"); err == nil && key != "" {
			cfg.OpenAI.APIKey = key
		}
	}
	if cfg.Azure.APIKey == "" {
		if key, err := sec.Get(secretsService, "azure_api_key"); err == nil && key != "" {
			cfg.Azure.APIKey = key
		}
	}

	return cfg, nil
}

// ActiveClientType parses the configured active AI client.
func (c Config) ActiveClientType() (profile.ClientType, error) {
	return profile.ParseClientType(c.AI.ActiveClient)
}
