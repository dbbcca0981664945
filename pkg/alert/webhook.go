package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// Webhook posts the notification as JSON to a generic HTTP endpoint.
type Webhook struct {
	client *http.Client
	url    string
	secret string
	now    func() time.Time
}

// NewWebhook creates a new generic webhook notifier. With a secret, every
// request carries X-Aiscout-Timestamp and an X-Signature-256 HMAC over
// "<timestamp>.<body>".
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		secret: secret,
		now:    time.Now,
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, n *Notification) error {
	body, err := marshalPayload("webhook", n)
	if err != nil {
		return err
	}
	return postJSON(ctx, w.client, w.url, "webhook", body, func(req *http.Request) {
		req.Header.Set("User-Agent", "aiscout/1.0")
		req.Header.Set("X-Aiscout-Event", "dark_horses")
		if w.secret != "" {
			ts := strconv.FormatInt(w.now().Unix(), 10)
			req.Header.Set("X-Aiscout-Timestamp", ts)
			req.Header.Set("X-Signature-256", "sha256="+Sign(w.secret, ts, body))
		}
	})
}

// Sign returns the hex HMAC-SHA256 of "<ts>.<body>" under secret.
func Sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
