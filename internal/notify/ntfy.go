// internal/notify/ntfy.go - ntfy push notification client
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ampel/internal/checks"
	"ampel/internal/retry"
	"ampel/internal/store"
)

// Client publishes to an ntfy server: the message is the raw request body,
// everything else travels in headers.
type Client struct {
	url        string
	topic      string
	token      string
	httpClient *http.Client
	retryOpts  retry.Options
}

func NewClient(url, topic, token string) *Client {
	return &Client{
		url:   strings.TrimRight(url, "/"),
		topic: topic,
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryOpts: retry.DefaultOptions(),
	}
}

// Send publishes one notification. 4xx responses are configuration defects
// and fail immediately; connection errors and 5xx responses are retried.
func (c *Client) Send(ctx context.Context, message, title string, priority checks.Priority, tags []string) error {
	return retry.Do(func() error {
		return c.sendOnce(ctx, message, title, priority, tags)
	}, c.retryOpts)
}

func (c *Client) sendOnce(ctx context.Context, message, title string, priority checks.Priority, tags []string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/"+c.topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if title != "" {
		req.Header.Set("Title", title)
	}
	if priority != "" && priority != checks.PriorityDefault {
		req.Header.Set("Priority", string(priority))
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("ntfy connection error: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("ntfy request failed: %d", resp.StatusCode)
	}
	return retry.Retryable(fmt.Errorf("ntfy request failed: %d", resp.StatusCode))
}

// IsAvailable probes the server root.
func (c *Client) IsAvailable(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

// SendAlert delivers the alert for a run, best effort: delivery failure is
// reported through the return value only and never affects classification.
func SendAlert(ctx context.Context, client *Client, run *store.CheckRun, tags []string, priority checks.Priority) bool {
	title := "Ampel: " + run.CheckName

	message := run.AlertMessage
	if message == "" {
		message = run.LLMResponse
	}
	if message == "" {
		message = "Alert triggered"
	}

	// Severity tag first, then whatever the check configured.
	allTags := make([]string, 0, len(tags)+1)
	switch run.Status {
	case store.StatusAlert:
		allTags = append(allTags, "warning")
	case store.StatusError:
		allTags = append(allTags, "x")
	}
	allTags = append(allTags, tags...)

	if err := client.Send(ctx, message, title, priority, allTags); err != nil {
		logrus.WithField("check", run.CheckName).WithError(err).Error("Failed to send alert")
		return false
	}

	logrus.WithFields(logrus.Fields{
		"check":    run.CheckName,
		"priority": priority,
	}).Info("Alert sent")
	return true
}
