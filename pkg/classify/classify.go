// Package classify assigns product categories with an LLM. Anything the
// model cannot place goes to the pending-review queue instead of failing
// the batch.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/product"
)

const script = "classify"

const categoryPrompt = `You label AI products with categories from a fixed list.

Allowed categories: %s

For each product below, pick one to three categories from the allowed list. Use "other" only when nothing else fits.

Products:
%s

Respond with a JSON array. Each element must have: "id" (the product ID shown above) and "categories" (array of strings).
Example: [{"id":"0","categories":["coding"]}]

Return ONLY the JSON array, no other text.`

// UsageRecorder accumulates API usage counters.
type UsageRecorder interface {
	Add(provider, script string, counters map[string]int64) error
}

// ReviewQueue receives records that could not be classified.
type ReviewQueue interface {
	Add(entries ...store.PendingReview) error
	Names() (map[string]bool, error)
}

// Report counts the outcome of a Classify call.
type Report struct {
	Candidates int `json:"candidates"`
	Classified int `json:"classified"`
	Queued     int `json:"queued"`
	// AwaitingReview counts records skipped because a reviewer already
	// has them.
	AwaitingReview int `json:"awaiting_review"`
}

// Classifier batches uncategorized products into chat requests.
type Classifier struct {
	client   *http.Client
	provider string // "openai" or "anthropic"
	model    string
	apiKey   string
	baseURL  string
	batch    int

	usage  UsageRecorder
	review ReviewQueue
	logger *log.Logger
	now    func() time.Time
}

// New creates a classifier. usage and review may be nil.
func New(provider, model, apiKey, baseURL string, batch int, usage UsageRecorder, review ReviewQueue, logger *log.Logger) *Classifier {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	if batch <= 0 {
		batch = 20
	}
	return &Classifier{
		client:   &http.Client{Timeout: 60 * time.Second},
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
		batch:    batch,
		usage:    usage,
		review:   review,
		logger:   logger,
		now:      time.Now,
	}
}

// NeedsCategories reports whether p is a product without a useful category.
func NeedsCategories(p *product.Product) bool {
	if p.ContentType == "news" || p.ContentType == "blog" {
		return false
	}
	for _, c := range p.Categories {
		if c != product.CategoryOther {
			return false
		}
	}
	return true
}

// Classify labels every record that needs categories, in place. Records
// already queued for review are left to the reviewer. A failed request or
// an unusable answer queues the affected records for review; only a
// failing review queue is returned as an error.
func (c *Classifier) Classify(ctx context.Context, records []product.Product) (Report, error) {
	var pending map[string]bool
	if c.review != nil {
		names, err := c.review.Names()
		if err != nil {
			return Report{}, fmt.Errorf("read review queue: %w", err)
		}
		pending = names
	}

	var rep Report
	var idx []int
	for i := range records {
		if !NeedsCategories(&records[i]) {
			continue
		}
		if pending[records[i].Name] {
			rep.AwaitingReview++
			continue
		}
		idx = append(idx, i)
	}
	rep.Candidates = len(idx)

	for start := 0; start < len(idx); start += c.batch {
		end := min(start+c.batch, len(idx))
		batch := idx[start:end]

		labels, err := c.classifyBatch(ctx, records, batch)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("classify batch failed", "size", len(batch), "err", err)
			}
			if qerr := c.queue(records, batch, err.Error(), nil); qerr != nil {
				return rep, qerr
			}
			rep.Queued += len(batch)
			continue
		}

		for n, i := range batch {
			raw := labels[strconv.Itoa(n)]
			cats := parseLabels(raw)
			if len(cats) == 0 {
				if qerr := c.queue(records, []int{i}, "no recognized category", raw); qerr != nil {
					return rep, qerr
				}
				rep.Queued++
				continue
			}
			records[i].Categories = cats
			rep.Classified++
		}
	}
	return rep, nil
}

func (c *Classifier) classifyBatch(ctx context.Context, records []product.Product, batch []int) (map[string][]string, error) {
	var lines []string
	for n, i := range batch {
		p := &records[i]
		line := fmt.Sprintf("- ID: %d | Name: %s", n, p.Name)
		if desc := firstPresent(p.Description, p.DescriptionEn, p.WhyMatters); desc != "" {
			if len(desc) > 200 {
				desc = desc[:200] + "..."
			}
			line += " | Desc: " + desc
		}
		if product.Present(p.Website) {
			line += " | URL: " + p.Website
		}
		lines = append(lines, line)
	}

	var allowed []string
	for _, cat := range product.AllCategories() {
		allowed = append(allowed, string(cat))
	}
	prompt := fmt.Sprintf(categoryPrompt, strings.Join(allowed, ", "), strings.Join(lines, "\n"))

	raw, usage, err := c.chat(ctx, prompt)
	c.recordUsage(usage)
	if err != nil {
		return nil, err
	}

	var results []struct {
		ID         json.RawMessage `json:"id"`
		Categories []string        `json:"categories"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &results); err != nil {
		return nil, fmt.Errorf("parse llm response: %w", err)
	}

	labels := make(map[string][]string, len(results))
	for _, r := range results {
		labels[strings.Trim(string(r.ID), `"`)] = r.Categories
	}
	return labels, nil
}

func (c *Classifier) recordUsage(u Usage) {
	if c.usage == nil {
		return
	}
	err := c.usage.Add(c.provider, script, map[string]int64{
		store.CounterChatRequests: 1,
		store.CounterInputTokens:  u.InputTokens,
		store.CounterOutputTokens: u.OutputTokens,
	})
	if err != nil && c.logger != nil {
		c.logger.Warn("record api usage", "err", err)
	}
}

func (c *Classifier) queue(records []product.Product, batch []int, reason string, suggested []string) error {
	if c.review == nil {
		return nil
	}
	at := c.now().UTC().Format(time.RFC3339)
	entries := make([]store.PendingReview, 0, len(batch))
	for _, i := range batch {
		entries = append(entries, store.PendingReview{
			ID:        records[i].ID,
			Name:      records[i].Name,
			Website:   records[i].Website,
			Reason:    reason,
			Suggested: suggested,
			QueuedAt:  at,
		})
	}
	if err := c.review.Add(entries...); err != nil {
		return fmt.Errorf("queue for review: %w", err)
	}
	return nil
}

// parseLabels keeps the labels that map onto the vocabulary.
func parseLabels(raw []string) []product.Category {
	var cats []product.Category
	for _, l := range raw {
		if cat, ok := product.ParseCategory(l); ok {
			cats = append(cats, cat)
		}
	}
	return product.NormalizeCategories(cats)
}

func firstPresent(vals ...string) string {
	for _, v := range vals {
		if product.Present(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
