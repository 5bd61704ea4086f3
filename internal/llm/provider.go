// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Preset holds a provider's defaults.
type Preset struct {
	BaseURL      string
	SelectModel  string
	SummaryModel string

	// SystemPrompt is the persona sent ahead of every request.
	SystemPrompt string

	// HasFileStore reports whether the provider extracts document text.
	HasFileStore bool
}

var presets = map[string]Preset{
	types.ProviderMoonshot: {
		BaseURL:      "https://api.moonshot.cn/v1",
		SelectModel:  "moonshot-v1-8k",
		SummaryModel: "moonshot-v1-32k",
		SystemPrompt: "You are Kimi, an AI assistant provided by Moonshot AI. You are proficient in Chinese and English conversations. " +
			"You provide users with safe, helpful, and accurate answers. Moonshot AI is a proper noun and must not be translated.",
		HasFileStore: true,
	},
	types.ProviderOpenAI: {
		BaseURL:      "https://api.openai.com/v1",
		SelectModel:  "gpt-3.5-turbo",
		SummaryModel: "gpt-4o-mini",
	},
	types.ProviderAnthropic: {
		BaseURL:      "https://api.anthropic.com/v1",
		SelectModel:  "claude-sonnet-4-5-20250929",
		SummaryModel: "claude-sonnet-4-5-20250929",
	},
}

// Lookup returns the defaults for a provider name.
func Lookup(provider string) (Preset, bool) {
	s, ok := presets[provider]
	return s, ok
}

// Provider is a configured LLM provider.
type Provider struct {
	Name         string
	Chat         Chatter
	SelectModel  string
	SummaryModel string
	SystemPrompt string

	// Files is nil when the provider has no document extraction API; the
	// caller supplies a local FileStore instead.
	Files FileStore
}

// New builds the provider named in cfg. Requests are rate limited when
// cfg.RequestsPerMinute is positive; the limiter is shared between chat and
// file calls because providers count both against the same quota.
func New(cfg types.LLMConfig, apiKey string, timeout time.Duration, log zerolog.Logger) (*Provider, error) {
	preset, ok := Lookup(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported LLM provider %q", types.ErrConfig, cfg.Provider)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key for provider %s", types.ErrConfig, cfg.Provider)
	}

	baseURL := preset.BaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	p := &Provider{
		Name:         cfg.Provider,
		SelectModel:  firstNonEmpty(cfg.Model, preset.SelectModel),
		SummaryModel: firstNonEmpty(cfg.SummaryModel, preset.SummaryModel),
		SystemPrompt: preset.SystemPrompt,
	}

	client := &http.Client{Timeout: timeout}
	log = log.With().Str("provider", cfg.Provider).Logger()

	switch cfg.Provider {
	case types.ProviderAnthropic:
		p.Chat = &AnthropicClient{BaseURL: baseURL, APIKey: apiKey, Model: p.SelectModel, Client: client, Log: log}
	default:
		oc := &OpenAIClient{BaseURL: baseURL, APIKey: apiKey, Model: p.SelectModel, Client: client, Log: log}
		p.Chat = oc
		if preset.HasFileStore {
			p.Files = oc
		}
	}

	if cfg.RequestsPerMinute > 0 {
		limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
		p.Chat = LimitChat(p.Chat, limiter)
		if p.Files != nil {
			p.Files = LimitFiles(p.Files, limiter)
		}
	}
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
