// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() DigestConfig {
	c := DigestConfig{
		Topic:   "Green",
		Keyword: map[string]string{"k-1-all": "low carbon"},
	}
	c.ApplyDefaults()
	return c
}

func TestApplyDefaults(t *testing.T) {
	c := DigestConfig{IsFreeAccount: true}
	c.ApplyDefaults()

	assert.Equal(t, 1, c.MaxResultsPerQuery)
	assert.Equal(t, 1, c.JudgeNumber)
	assert.Equal(t, ".", c.RootDir)
	assert.Equal(t, "English", c.Language)
	assert.Equal(t, ProviderMoonshot, c.LLM.Provider)
	assert.Equal(t, 3, c.LLM.RequestsPerMinute)
	assert.Equal(t, "console", c.Log.Format)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*DigestConfig)
		want   string
	}{
		{"missing topic", func(c *DigestConfig) { c.Topic = "" }, "topic is required"},
		{"no keywords", func(c *DigestConfig) { c.Keyword = map[string]string{} }, "keyword must be at least 1"},
		{"zero results", func(c *DigestConfig) { c.MaxResultsPerQuery = 0 }, "max_results_per_query must be at least 1"},
		{"zero judge", func(c *DigestConfig) { c.JudgeNumber = 0 }, "judge_number must be at least 1"},
		{"unknown provider", func(c *DigestConfig) { c.LLM.Provider = "gemini" }, `llm.provider must be one of [moonshot openai anthropic], got "gemini"`},
		{"bad log format", func(c *DigestConfig) { c.Log.Format = "xml" }, "log.format must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.ErrorIs(t, err, ErrConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	c := validConfig()
	c.Topic = ""
	c.JudgeNumber = 0
	err := c.Validate()
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "topic is required")
	assert.Contains(t, err.Error(), "judge_number must be at least 1")
}
