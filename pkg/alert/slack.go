package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Slack sends notifications via Slack incoming webhook.
type Slack struct {
	client     *http.Client
	webhookURL string
}

// NewSlack creates a new Slack notifier.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n *Notification) error {
	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("🐎 %s", n.Title),
			},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": n.Body,
			},
		},
	}

	limit := min(len(n.Products), 10)
	for _, e := range n.Products[:limit] {
		text := "*" + entryLabel(e) + "*"
		if e.Website != "" {
			text = fmt.Sprintf("<%s|%s>", e.Website, entryLabel(e))
		}
		if e.WhyMatters != "" {
			text += "\n" + e.WhyMatters
		}
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": text},
		})
	}

	body, err := marshalPayload("slack", map[string]any{"blocks": blocks})
	if err != nil {
		return err
	}
	return postJSON(ctx, s.client, s.webhookURL, "slack webhook", body, nil)
}
