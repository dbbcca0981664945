// Package store persists the canonical product collection and its weekly
// snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/elonfeng/aiscout/pkg/product"
)

// ErrNotFound is returned when a product id is not in the collection.
var ErrNotFound = errors.New("product not found")

// ListOpts filters a listing. Zero values apply no filter.
type ListOpts struct {
	Source       string
	ContentTypes []string
	MinIndex     int
	Limit        int
}

// Store is the persistence interface. Save replaces the whole collection at
// once; readers never observe a partial write.
type Store interface {
	Load(ctx context.Context) ([]product.Product, error)
	Save(ctx context.Context, records []product.Product) error
	Get(ctx context.Context, id string) (*product.Product, error)
	List(ctx context.Context, opts ListOpts) ([]product.Product, error)

	SaveWeek(ctx context.Context, week string, records []product.Product) error
	LoadWeeks(ctx context.Context) ([]product.Product, error)
	Weeks(ctx context.Context) ([]string, error)

	Close() error
}

// Open returns the store selected by backend ("json" or "sqlite").
func Open(backend, dataDir, sqlitePath string) (Store, error) {
	switch backend {
	case "", "json":
		return NewFileStore(dataDir)
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("open store: unknown backend %q", backend)
	}
}

// matches applies ListOpts to a single record.
func (o ListOpts) matches(p *product.Product) bool {
	if o.Source != "" && p.Source != o.Source {
		return false
	}
	if len(o.ContentTypes) > 0 {
		found := false
		for _, ct := range o.ContentTypes {
			if p.ContentType == ct {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return p.DarkHorseIndex >= o.MinIndex
}

func filterList(records []product.Product, opts ListOpts) []product.Product {
	var out []product.Product
	for i := range records {
		if !opts.matches(&records[i]) {
			continue
		}
		out = append(out, records[i])
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out
}

// newestFirst sorts week keys so the most recent snapshot comes first.
func newestFirst(weeks []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
}
