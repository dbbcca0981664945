// Package alert sends newly surfaced dark horses to chat and webhook
// destinations.
package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
)

// Entry is one product in a notification.
type Entry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Website    string `json:"website,omitempty"`
	Index      int    `json:"dark_horse_index"`
	Region     string `json:"region,omitempty"`
	Funding    string `json:"funding_total,omitempty"`
	WhyMatters string `json:"why_matters,omitempty"`
}

// Notification is the data sent to alert destinations.
type Notification struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Week     string  `json:"week"`
	Products []Entry `json:"products"`
}

// NewDarkHorseNotification summarizes products surfaced in week.
func NewDarkHorseNotification(week string, products []product.Product) *Notification {
	n := &Notification{
		Title: fmt.Sprintf("%d new dark horse(s) for week %s", len(products), week),
		Week:  week,
	}
	top := 0
	for i := range products {
		p := &products[i]
		if p.DarkHorseIndex > top {
			top = p.DarkHorseIndex
		}
		e := Entry{
			ID:      p.ID,
			Name:    p.Name,
			Index:   p.DarkHorseIndex,
			Region:  p.Region,
			Funding: p.FundingTotal,
		}
		if product.Present(p.Website) {
			e.Website = p.Website
		}
		if product.Present(p.WhyMatters) {
			e.WhyMatters = p.WhyMatters
		}
		n.Products = append(n.Products, e)
	}
	n.Body = fmt.Sprintf("Highest index %d/5 across %d product(s).", top, len(products))
	return n
}

// Unalerted returns the products that were never broadcast before.
func Unalerted(products []product.Product) []product.Product {
	var out []product.Product
	for i := range products {
		if products[i].AlertedAt == "" {
			out = append(out, products[i])
		}
	}
	return out
}

// MarkAlerted stamps alerted_at on every record whose id is in ids and
// returns how many were stamped.
func MarkAlerted(records []product.Product, ids []string, at time.Time) int {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	stamp := at.UTC().Format(time.RFC3339)
	n := 0
	for i := range records {
		if want[records[i].ID] && records[i].AlertedAt == "" {
			records[i].AlertedAt = stamp
			n++
		}
	}
	return n
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func entryLabel(e Entry) string {
	label := fmt.Sprintf("%s (%d/5)", e.Name, e.Index)
	if e.Region != "" {
		label = e.Region + " " + label
	}
	if e.Funding != "" && product.Present(e.Funding) {
		label += " · " + e.Funding
	}
	return label
}
