// Package ollama provides a client for a local Ollama server, covering both
// chat completion and text embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Upstream failure modes surfaced to callers. None are retried here.
var (
	// ErrTimeout indicates the request exceeded the client timeout.
	ErrTimeout = errors.New("ollama request timed out")
	// ErrConnection indicates the server could not be reached.
	ErrConnection = errors.New("failed to connect to ollama")
	// ErrEmptyReply indicates a 2xx response carrying no usable content.
	ErrEmptyReply = errors.New("ollama returned empty response")
	// ErrEmptyInput indicates empty or whitespace-only text was submitted
	// for embedding.
	ErrEmptyInput = errors.New("cannot embed empty text")
)

// StatusError is a non-2xx response from the Ollama API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama API error [%d]: %s", e.StatusCode, e.Body)
}

// Client is the Ollama API client.
type Client struct {
	baseURL    string
	model      string
	embedModel string
	embedDim   int
	httpClient *http.Client

	warnDimOnce sync.Once
}

// NewClient creates a new Ollama client. model serves chat completion,
// embedModel serves embeddings, embedDim is the embedding dimension the
// embed model is expected to produce.
func NewClient(baseURL, model, embedModel string, embedDim int, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		embedModel: embedModel,
		embedDim:   embedDim,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatMessage is one turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Chat sends a non-streaming chat completion request and returns the
// assistant's reply text.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/api/chat", body)
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	content := result.Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyReply
	}
	return content, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(embedRequest{
		Model:  c.embedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/api/embeddings", body)
	if err != nil {
		return nil, err
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, ErrEmptyReply
	}
	if c.embedDim > 0 && len(result.Embedding) != c.embedDim {
		c.warnDimOnce.Do(func() {
			slog.Warn("embedding dimension mismatch",
				"model", c.embedModel,
				"expected", c.embedDim,
				"got", len(result.Embedding))
		})
	}
	return result.Embedding, nil
}

// Dimension reports the configured embedding output size.
func (c *Client) Dimension() int {
	return c.embedDim
}

// ModelInfo reports the client configuration for health reporting.
func (c *Client) ModelInfo() map[string]string {
	return map[string]string{
		"ollama_url":  c.baseURL,
		"model":       c.model,
		"embed_model": c.embedModel,
	}
}

// post issues the request and maps transport and status failures onto the
// client's error taxonomy.
func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}
	return respBody, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
