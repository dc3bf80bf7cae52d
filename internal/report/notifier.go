package report

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultAlertTimeout = 10 * time.Second

// Notifier delivers a failure alert. Delivery problems are the caller's
// to log; they never change a run's outcome.
type Notifier interface {
	Alert(ctx context.Context, subject, message string) error
}

type slackMessage struct {
	Text string `json:"text"`
}

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	client     *resty.Client
	webhookURL string
}

func NewSlackNotifier(webhookURL string) (*SlackNotifier, error) {
	client := resty.New()
	client.SetTimeout(defaultAlertTimeout)
	client.SetRetryCount(0)

	return NewSlackNotifierWithClient(webhookURL, client)
}

func NewSlackNotifierWithClient(webhookURL string, client *resty.Client) (*SlackNotifier, error) {
	trimmedURL := strings.TrimSpace(webhookURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	return &SlackNotifier{
		client:     client,
		webhookURL: trimmedURL,
	}, nil
}

func (n *SlackNotifier) Alert(ctx context.Context, subject, message string) error {
	text := strings.TrimSpace(subject)
	if body := strings.TrimSpace(message); body != "" {
		text = text + "\n" + body
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(slackMessage{Text: text}).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("alert delivery failed: %w", err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("alert endpoint returned status %d", resp.StatusCode())
	}

	return nil
}
