package alert

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	var lines []string
	limit := min(len(n.Products), 10)
	for _, e := range n.Products[:limit] {
		if e.Website != "" {
			lines = append(lines, fmt.Sprintf("• [%s](%s)", entryLabel(e), e.Website))
		} else {
			lines = append(lines, "• "+entryLabel(e))
		}
	}

	embed := map[string]any{
		"title":       fmt.Sprintf("🐎 %s", n.Title),
		"description": fmt.Sprintf("%s\n\n%s", n.Body, strings.Join(lines, "\n")),
		"color":       0x7B61FF,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	body, err := marshalPayload("discord", map[string]any{
		"embeds": []map[string]any{embed},
	})
	if err != nil {
		return err
	}
	return postJSON(ctx, d.client, d.webhookURL, "discord webhook", body, nil)
}
