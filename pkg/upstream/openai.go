// Package upstream adapts the gateway to a chat-completions text API.
// The API is treated as an opaque text-in/text-out service that may be
// slow or fail.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avast/retry-go"

	"github.com/chatgate/chatgate/pkg/config"
)

// Error describes a failed upstream call. Status is the HTTP status
// returned by the API, or 0 for transport-level failures and timeouts.
type Error struct {
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Generator produces an answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client is a synchronous chat-completions client. Each Generate call
// sends the configured system prompt plus the user prompt and returns the
// first choice's text.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	system     string
	attempts   uint
	httpClient *http.Client
}

// NewClient creates a Client from the upstream configuration. Retries
// default to zero, meaning exactly one attempt per Generate call.
func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		system:   cfg.SystemPrompt,
		attempts: cfg.Retries + 1,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt upstream and returns the generated text.
// Failed attempts against retryable conditions (transport errors, 429,
// 5xx) are retried up to the configured attempt count with backoff;
// everything else fails immediately. The returned error is always an
// *Error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	err := retry.Do(
		func() error {
			a, err := c.generate(ctx, prompt)
			if err != nil {
				if !isRetryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			answer = a
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var ue *Error
		if !errors.As(err, &ue) {
			err = &Error{Err: err}
		}
		return "", err
	}
	return answer, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.system},
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &Error{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &Error{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(respBody))),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &Error{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &Error{Err: errors.New("response has no choices")}
	}

	answer := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if answer == "" {
		return "", &Error{Err: errors.New("response content is empty")}
	}
	return answer, nil
}

// isRetryable reports whether another attempt might succeed: transport
// failures, rate limiting, and server errors qualify.
func isRetryable(err error) bool {
	var ue *Error
	if !errors.As(err, &ue) {
		return false
	}
	if ue.Status == 0 {
		return !errors.Is(ue.Err, context.Canceled)
	}
	return ue.Status == http.StatusTooManyRequests || ue.Status >= 500
}
