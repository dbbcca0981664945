package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/elonfeng/aiscout/pkg/product"
)

const productsFile = "products.json"

var weekFileExpr = regexp.MustCompile(`^products_(\d{4}_\d{2})\.json$`)

// FileStore keeps the collection as a JSON array on disk, next to one
// products_YYYY_WW.json file per weekly snapshot.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Load(ctx context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readProducts(filepath.Join(s.dir, productsFile))
}

func (s *FileStore) Save(ctx context.Context, records []product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(filepath.Join(s.dir, productsFile), records)
}

func (s *FileStore) Get(ctx context.Context, id string) (*product.Product, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("get product %s: %w", id, ErrNotFound)
}

func (s *FileStore) List(ctx context.Context, opts ListOpts) ([]product.Product, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return filterList(records, opts), nil
}

func (s *FileStore) SaveWeek(ctx context.Context, week string, records []product.Product) error {
	if week == "" {
		return errors.New("save week: empty week key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(filepath.Join(s.dir, "products_"+week+".json"), records)
}

// Weeks lists snapshot keys, newest first.
func (s *FileStore) Weeks(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", s.dir, err)
	}
	var weeks []string
	for _, e := range entries {
		if m := weekFileExpr.FindStringSubmatch(e.Name()); m != nil {
			weeks = append(weeks, m[1])
		}
	}
	newestFirst(weeks)
	return weeks, nil
}

// LoadWeeks returns every snapshot record, newest week first.
func (s *FileStore) LoadWeeks(ctx context.Context) ([]product.Product, error) {
	weeks, err := s.Weeks(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []product.Product
	for _, w := range weeks {
		records, err := readProducts(filepath.Join(s.dir, "products_"+w+".json"))
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func readProducts(path string) ([]product.Product, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []product.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []product.Product
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if records == nil {
		records = []product.Product{}
	}
	return records, nil
}

// writeJSONAtomic writes v to a temp file in the same directory and renames
// it over path.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
