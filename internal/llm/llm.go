// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to LLM providers. Each provider implements Chatter
// ("submit prompt, get text"); providers with a document-extraction API also
// implement FileStore. Provider selection is a factory over the configured
// provider name.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// ChatRequest is one chat completion call.
type ChatRequest struct {
	// Model overrides the client's default model when set.
	Model string

	// System holds system messages in order. Document text for
	// summarization is passed as an additional system message.
	System []string

	// User is the single user message.
	User string

	Temperature float64
}

// Chatter submits a prompt and returns the model's text reply.
type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// RemoteFile is a document registered with a file store.
type RemoteFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// FileStore registers documents and returns their extracted text.
type FileStore interface {
	ListFiles(ctx context.Context) ([]RemoteFile, error)
	UploadFile(ctx context.Context, path string) (RemoteFile, error)
	FileContent(ctx context.Context, fileID string) (string, error)
}

// StripFences removes a Markdown code fence wrapping a reply, with or
// without a language tag (```json ... ```). Unfenced text is returned
// trimmed.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "[{") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSON strips code fences from reply and unmarshals it into v.
// Failures wrap types.ErrParse.
func DecodeJSON(reply string, v any) error {
	body := StripFences(reply)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v (reply: %s)", types.ErrParse, err, abbreviate(body, 200))
	}
	return nil
}

func abbreviate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
