package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/aiscout/pkg/product"
)

// Seeds loads hand-curated product lists from YAML or JSON files. Entries
// without a source are attributed to the curated source, so an index set
// in a seed file is treated as curator input.
type Seeds struct {
	paths []string
}

// NewSeeds creates a seed loader over paths. Missing files are skipped.
func NewSeeds(paths []string) *Seeds {
	return &Seeds{paths: paths}
}

func (s *Seeds) Name() string { return product.SourceCurated }

func (s *Seeds) Collect(ctx context.Context) ([]product.Product, error) {
	var all []product.Product
	for _, path := range s.paths {
		records, err := LoadSeeds(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// LoadSeeds reads one seed file. The format follows the extension; anything
// other than .json is read as YAML.
func LoadSeeds(path string) ([]product.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds %s: %w", path, err)
	}

	var entries []map[string]any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &entries)
	} else {
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("parse seeds %s: %w", path, err)
	}

	records := make([]product.Product, 0, len(entries))
	for i, entry := range entries {
		if _, ok := entry["source"]; !ok {
			entry["source"] = product.SourceCurated
		}
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("seeds %s entry %d: %w", path, i, err)
		}
		var p product.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("seeds %s entry %d: %w", path, i, err)
		}
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		records = append(records, p)
	}
	return records, nil
}
