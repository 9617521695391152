package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "AIDE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "paths.config_dir", typ: kString, env: "AIDE_PATHS_CONFIG_DIR",
		apply:   func(cfg *Config, v any) { cfg.Paths.ConfigDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Paths.ConfigDir },
	},
	{
		key: "paths.functions_dir", typ: kString, env: "AIDE_PATHS_FUNCTIONS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Paths.FunctionsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Paths.FunctionsDir },
	},
	{
		key: "paths.templates_dir", typ: kString, env: "AIDE_PATHS_TEMPLATES_DIR",
		apply:   func(cfg *Config, v any) { cfg.Paths.TemplatesDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Paths.TemplatesDir },
	},
	{
		key: "paths.output_dir", typ: kString, env: "AIDE_PATHS_OUTPUT_DIR",
		apply:   func(cfg *Config, v any) { cfg.Paths.OutputDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Paths.OutputDir },
	},
	{
		key: "paths.data_dir", typ: kString, env: "AIDE_PATHS_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Paths.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Paths.DataDir },
	},
	{
		key: "ai.active_client", typ: kString, env: "AIDE_AI_ACTIVE_CLIENT",
		apply:   func(cfg *Config, v any) { cfg.AI.ActiveClient = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.ActiveClient },
	},
	{
		key: "openai.base_url", typ: kString, env: "AIDE_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.api_key", typ: kString, env: "AIDE_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "azure.endpoint", typ: kString, env: "AIDE_AZURE_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Azure.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.Endpoint },
	},
	{
		key: "azure.api_key", typ: kString, env: "AIDE_AZURE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Azure.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Azure.APIKey },
	},
	{
		key: "review.model", typ: kString, env: "AIDE_REVIEW_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Review.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Review.Model },
	},
	{
		key: "log.level", typ: kString, env: "AIDE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
