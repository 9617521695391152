// Package aiclient lists model identifiers from the configured AI backends.
package aiclient

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aide-tools/aide/internal/profile"
)

// Settings holds per-backend connection settings.
type Settings struct {
	OpenAIBaseURL string
	OpenAIAPIKey  string
	AzureEndpoint string
	AzureAPIKey   string
}

// Provider builds a client per AI client type on demand and lists the
// model identifiers it offers.
type Provider struct {
	settings Settings
}

// NewProvider creates a Provider with the given backend settings.
func NewProvider(settings Settings) *Provider {
	return &Provider{settings: settings}
}

// ListModels returns the model identifiers available for the client type.
// Failures are returned to the caller, which treats them as non-fatal: the
// model choice simply keeps its prior contents.
func (p *Provider) ListModels(ctx context.Context, ct profile.ClientType) ([]string, error) {
	client, err := p.client(ct)
	if err != nil {
		return nil, err
	}

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s models: %w", ct, err)
	}

	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func (p *Provider) client(ct profile.ClientType) (*openai.Client, error) {
	opts := []option.RequestOption{
		option.WithRequestTimeout(15 * time.Second),
	}

	switch ct {
	case profile.ClientOpenAI:
		opts = append(opts, option.WithAPIKey(p.settings.OpenAIAPIKey))
		if p.settings.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(p.settings.OpenAIBaseURL))
		}
	case profile.ClientAzureOpenAI:
		if p.settings.AzureEndpoint == "" {
			return nil, fmt.Errorf("azure endpoint is not configured")
		}
		opts = append(opts,
			option.WithBaseURL(p.settings.AzureEndpoint),
			option.WithAPIKey(p.settings.AzureAPIKey),
		)
	default:
		return nil, fmt.Errorf("unknown AI client type %q", ct)
	}

	client := openai.NewClient(opts...)
	return &client, nil
}
