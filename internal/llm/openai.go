// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// OpenAIClient speaks the OpenAI-compatible REST API used by OpenAI and
// Moonshot. The file endpoints follow Moonshot's file-extract contract:
// uploaded documents are parsed server-side and /files/{id}/content returns
// their text.
type OpenAIClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
	Log     zerolog.Logger
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIFileList struct {
	Data []RemoteFile `json:"data"`
}

// Chat sends a chat completion request and returns the first choice.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.Model
	}

	body := openAIChatRequest{Model: model, Temperature: req.Temperature}
	for _, s := range req.System {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: s})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.User})

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var resp openAIChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", "application/json", payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", types.ErrTransport)
	}
	return resp.Choices[0].Message.Content, nil
}

// ListFiles returns the documents already registered with the provider.
func (c *OpenAIClient) ListFiles(ctx context.Context) ([]RemoteFile, error) {
	var list openAIFileList
	if err := c.doJSON(ctx, http.MethodGet, "/files", "", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// UploadFile registers the document at path for text extraction.
func (c *OpenAIClient) UploadFile(ctx context.Context, path string) (RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return RemoteFile{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "file-extract"); err != nil {
		return RemoteFile{}, fmt.Errorf("writing multipart field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return RemoteFile{}, fmt.Errorf("creating multipart file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return RemoteFile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return RemoteFile{}, fmt.Errorf("closing multipart body: %w", err)
	}

	var file RemoteFile
	if err := c.doJSON(ctx, http.MethodPost, "/files", mw.FormDataContentType(), buf.Bytes(), &file); err != nil {
		return RemoteFile{}, err
	}
	c.Log.Debug().Str("file_id", file.ID).Str("filename", file.Filename).Msg("document uploaded")
	return file, nil
}

// FileContent returns the provider's extracted text for a file, as sent.
func (c *OpenAIClient) FileContent(ctx context.Context, fileID string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/files/"+fileID+"/content", "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading file content: %v", types.ErrTransport, err)
	}
	return string(data), nil
}

func (c *OpenAIClient) doJSON(ctx context.Context, method, path, contentType string, payload []byte, out any) error {
	resp, err := c.do(ctx, method, path, contentType, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", types.ErrTransport, path, err)
	}
	return nil
}

// do sends one request. Non-2xx statuses, including authentication
// failures, are transport errors.
func (c *OpenAIClient) do(ctx context.Context, method, path, contentType string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 0, c.Log)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", types.ErrTransport, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %s %s returned %d: %s", types.ErrTransport, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}
