// Package llm is the client for the external completion service. OpenRouter
// keys (sk-or- prefix) are preferred; plain OpenAI keys work against the
// OpenAI API directly. The dialogue engine treats the service as a black-box
// text completer and degrades to canned replies when it fails.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openAIBaseURL     = "https://api.openai.com/v1"

	openRouterModel = "openai/gpt-3.5-turbo"
	openAIModel     = "gpt-3.5-turbo"

	defaultTimeout     = 30 * time.Second
	defaultMaxTokens   = 500
	defaultTemperature = 0.7
)

// ErrRateLimited marks quota/rate-limit failures. The troubleshooting flow
// escalates immediately on this instead of retrying against a failing
// dependency.
var ErrRateLimited = errors.New("completion service rate limited")

// Message is a single turn of conversational context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	referer    string
	title      string
}

// New creates a client for the given API key. Keys with the sk-or- prefix
// route to OpenRouter, everything else to OpenAI.
func New(apiKey string) *Client {
	c := &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	if strings.HasPrefix(apiKey, "sk-or-") {
		c.baseURL = openRouterBaseURL
		c.model = openRouterModel
		c.referer = "https://github.com/mkale/grievd"
		c.title = "grievd"
	} else {
		c.baseURL = openAIBaseURL
		c.model = openAIModel
	}
	return c
}

// NewWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewWithBaseURL(apiKey, baseURL string) *Client {
	c := New(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// WithModel overrides the default model for the key's provider.
func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the system prompt plus conversation tail and returns the
// assistant's text. There is no internal retry: a 429 (or quota-flavored
// error body) surfaces as ErrRateLimited so the caller can decide.
func (c *Client) Complete(ctx context.Context, systemPrompt string, tail []Message) (string, error) {
	msgs := make([]Message, 0, len(tail)+1)
	msgs = append(msgs, Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, tail...)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("HTTP 429: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Error != nil {
		if looksRateLimited(parsed.Error.Message) || looksRateLimited(parsed.Error.Type) {
			return "", fmt.Errorf("%s: %w", parsed.Error.Message, ErrRateLimited)
		}
		return "", fmt.Errorf("upstream error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}

	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
		req.Header.Set("X-Title", c.title)
	}
}

// IsRateLimited reports whether err represents a quota or rate-limit
// failure, either the typed sentinel or an upstream message that reads like
// one.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	return looksRateLimited(err.Error())
}

func looksRateLimited(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "429")
}
