// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// DownloadDelay is the delay between consecutive document downloads (default 3s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay" mapstructure:"download_delay"`

	// SearchInterval is the minimum spacing between search API calls (default 3s).
	SearchInterval time.Duration `json:"search_interval" yaml:"search_interval" mapstructure:"search_interval"`
}

// LLM provider names accepted by LLMConfig.Provider.
const (
	ProviderMoonshot  = "moonshot"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// LLMConfig selects and tunes the LLM provider.
type LLMConfig struct {
	// Provider is one of "moonshot" (default), "openai", or "anthropic".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider" validate:"oneof=moonshot openai anthropic"`

	// BaseURL overrides the provider's API base URL.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Model is the model used for selection. Empty uses the provider default.
	Model string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`

	// SummaryModel is the model used for summarization. Summaries read whole
	// documents, so providers default to a long-context model.
	SummaryModel string `json:"summary_model,omitempty" yaml:"summary_model,omitempty" mapstructure:"summary_model"`

	// RequestsPerMinute caps LLM requests. Zero means 3 for free accounts and
	// unlimited otherwise.
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty" mapstructure:"requests_per_minute" validate:"min=0"`

	// MarkdownDir holds locally extracted document text for providers without
	// a file-extraction API. Empty means root_dir/paper/markdown.
	MarkdownDir string `json:"markdown_dir,omitempty" yaml:"markdown_dir,omitempty" mapstructure:"markdown_dir"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" (default) or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// DigestConfig is the configuration record consumed by the pipeline and the
// scheduler. The top-level keys match the original config.json shape.
type DigestConfig struct {
	// APIKey authenticates against the LLM provider.
	APIKey string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`

	// IsFreeAccount enables the free-tier request cap.
	IsFreeAccount bool `json:"is_free_account" yaml:"is_free_account" mapstructure:"is_free_account"`

	// SelectedDays lists the weekdays the scheduler runs on ("mon", "Monday", "周一").
	SelectedDays []string `json:"selected_days" yaml:"selected_days" mapstructure:"selected_days"`

	// DailyTime is [hour, minute] in local time.
	DailyTime []int `json:"daily_time" yaml:"daily_time" mapstructure:"daily_time"`

	// Topic names the snapshot.
	Topic string `json:"topic" yaml:"topic" mapstructure:"topic" validate:"required"`

	// Keyword is the flat k-<group>-<field> mapping compiled into queries.
	Keyword map[string]string `json:"keyword" yaml:"keyword" mapstructure:"keyword" validate:"required,min=1"`

	// MaxResultsPerQuery bounds search results per query.
	MaxResultsPerQuery int `json:"max_results_per_query" yaml:"max_results_per_query" mapstructure:"max_results_per_query" validate:"min=1"`

	// JudgeNumber is the number of papers the selection stage keeps.
	JudgeNumber int `json:"judge_number" yaml:"judge_number" mapstructure:"judge_number" validate:"min=1"`

	// RootDir holds the paper/ tree.
	RootDir string `json:"root_dir" yaml:"root_dir" mapstructure:"root_dir"`

	// Language is the language summaries are written in (default "English").
	Language string `json:"language,omitempty" yaml:"language,omitempty" mapstructure:"language"`

	LLM  LLMConfig  `json:"llm" yaml:"llm" mapstructure:"llm"`
	HTTP HTTPConfig `json:"http" yaml:"http" mapstructure:"http"`
	Log  LogConfig  `json:"log" yaml:"log" mapstructure:"log"`
}

// ApplyDefaults fills unset fields.
func (c *DigestConfig) ApplyDefaults() {
	if c.MaxResultsPerQuery == 0 {
		c.MaxResultsPerQuery = 1
	}
	if c.JudgeNumber == 0 {
		c.JudgeNumber = 1
	}
	if c.RootDir == "" {
		c.RootDir = "."
	}
	if c.Language == "" {
		c.Language = "English"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderMoonshot
	}
	if c.LLM.RequestsPerMinute == 0 && c.IsFreeAccount {
		c.LLM.RequestsPerMinute = 3
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 60 * time.Second
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = "paper-digest/0.1"
	}
	if c.HTTP.DownloadDelay == 0 {
		c.HTTP.DownloadDelay = 3 * time.Second
	}
	if c.HTTP.SearchInterval == 0 {
		c.HTTP.SearchInterval = 3 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the fields the pipeline depends on. Schedule fields are
// validated by the scheduler. Every violation is reported, wrapped in
// ErrConfig.
func (c DigestConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
