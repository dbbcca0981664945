package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/elonfeng/aiscout/pkg/product"
)

const pendingReviewFile = "categories_pending_review.json"

// PendingReview is a record whose categories could not be assigned
// automatically. Fields added by reviewers or other tools are kept.
type PendingReview struct {
	ID        string   `json:"id,omitempty"`
	Name      string   `json:"name"`
	Website   string   `json:"website,omitempty"`
	Reason    string   `json:"reason"`
	Suggested []string `json:"suggested,omitempty"`
	QueuedAt  string   `json:"queued_at"`

	others product.Passthrough
}

type pendingReviewAlias PendingReview

func (r *PendingReview) UnmarshalJSON(data []byte) error {
	var a pendingReviewAlias
	others, err := product.DecodeKeeping(data, &a)
	if err != nil {
		return fmt.Errorf("decode pending review: %w", err)
	}
	*r = PendingReview(a)
	r.others = others
	return nil
}

func (r PendingReview) MarshalJSON() ([]byte, error) {
	return product.EncodeKeeping(pendingReviewAlias(r), r.others)
}

// ReviewQueue appends to the categories-pending-review file.
type ReviewQueue struct {
	path string
	mu   sync.Mutex
}

// NewReviewQueue uses the pending-review file in dir.
func NewReviewQueue(dir string) *ReviewQueue {
	return &ReviewQueue{path: filepath.Join(dir, pendingReviewFile)}
}

// Add appends entries. An entry whose name is already queued replaces the
// older one in place and inherits the fields this package does not model.
func (q *ReviewQueue) Add(entries ...PendingReview) error {
	if len(entries) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	queued, err := q.read()
	if err != nil {
		return err
	}
	pos := make(map[string]int, len(queued))
	for i, e := range queued {
		pos[e.Name] = i
	}
	for _, e := range entries {
		if i, ok := pos[e.Name]; ok {
			e.others = queued[i].others
			queued[i] = e
			continue
		}
		pos[e.Name] = len(queued)
		queued = append(queued, e)
	}
	return writeJSONAtomic(q.path, queued)
}

// Names returns the set of queued names.
func (q *ReviewQueue) Names() (map[string]bool, error) {
	queued, err := q.List()
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(queued))
	for _, e := range queued {
		names[e.Name] = true
	}
	return names, nil
}

// List returns the queued entries.
func (q *ReviewQueue) List() ([]PendingReview, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.read()
}

func (q *ReviewQueue) read() ([]PendingReview, error) {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", q.path, err)
	}
	var queued []PendingReview
	if err := json.Unmarshal(data, &queued); err != nil {
		return nil, fmt.Errorf("parse %s: %w", q.path, err)
	}
	return queued, nil
}
