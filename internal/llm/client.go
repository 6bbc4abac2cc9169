// internal/llm/client.go - Ollama API client
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ampel/internal/retry"
)

// Generator is the remote-model surface the classifier depends on.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error)
}

// Client talks to an Ollama server. Generation calls are retried on
// transient failures (connection errors, timeouts, 5xx); HTTP 4xx responses
// fail immediately.
type Client struct {
	host       string
	timeout    time.Duration
	httpClient *http.Client
	retryOpts  retry.Options
}

func NewClient(host string, timeout time.Duration) *Client {
	return &Client{
		host:       strings.TrimRight(host, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
		retryOpts:  retry.DefaultOptions(),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate requests a completion for prompt from model. A zero timeout uses
// the client default.
func (c *Client) Generate(ctx context.Context, model, prompt string, timeout time.Duration) (string, error) {
	if timeout == 0 {
		timeout = c.timeout
	}

	return retry.DoValue(func() (string, error) {
		return c.generateOnce(ctx, model, prompt, timeout)
	}, c.retryOpts)
}

func (c *Client) generateOnce(ctx context.Context, model, prompt string, timeout time.Duration) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection failures and timeouts are transport-level, not HTTP
		// statuses, and are worth another attempt.
		if cctx.Err() == context.DeadlineExceeded {
			return "", retry.Retryable(fmt.Errorf("LLM request timed out after %s", timeout))
		}
		return "", retry.Retryable(fmt.Errorf("LLM connection error: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", retry.Retryable(fmt.Errorf("LLM request failed: %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("LLM request failed: %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"model":    model,
		"duration": time.Since(start),
	}).Debug("LLM generation completed")

	return strings.TrimSpace(out.Response), nil
}

// IsAvailable probes the server's liveness endpoint.
func (c *Client) IsAvailable(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of the models the server has loaded.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list models: %d", resp.StatusCode)
	}

	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	names := make([]string, 0, len(out.Models))
	for _, model := range out.Models {
		names = append(names, model.Name)
	}
	return names, nil
}
