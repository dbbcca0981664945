package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elonfeng/aiscout/pkg/product"
)

const usageFile = "api_usage_metrics.json"

// Usage counter names.
const (
	CounterSearchRequests = "search_requests"
	CounterChatRequests   = "chat_requests"
	CounterInputTokens    = "input_tokens"
	CounterOutputTokens   = "output_tokens"
)

// UsageReport is keyed by UTC date, then provider, then script. Only
// integer counters appear; other values in the file are left out.
type UsageReport map[string]map[string]map[string]map[string]int64

// UsageMetrics accumulates external API usage in the daily metrics file.
// Keys and values it does not own are written back untouched and in place.
type UsageMetrics struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewUsageMetrics uses the metrics file in dir.
func NewUsageMetrics(dir string) *UsageMetrics {
	return &UsageMetrics{
		path: filepath.Join(dir, usageFile),
		now:  time.Now,
	}
}

// Add increments counters for provider/script on the current UTC day.
func (m *UsageMetrics) Add(provider, script string, counters map[string]int64) error {
	if len(counters) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	root, err := m.read()
	if err != nil {
		return err
	}
	day := m.now().UTC().Format("2006-01-02")
	path := []string{day, provider, script}

	// Walk down, then write each level back into its parent.
	levels := []product.Object{root}
	for _, key := range path {
		child, err := childObject(levels[len(levels)-1], key)
		if err != nil {
			return fmt.Errorf("usage %s: %w", strings.Join(path, "/"), err)
		}
		levels = append(levels, child)
	}

	bucket := &levels[len(levels)-1]
	names := make([]string, 0, len(counters))
	for k := range counters {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		var current int64
		if raw, ok := bucket.Get(k); ok {
			current = counterValue(raw)
		}
		bucket.Set(k, json.RawMessage(strconv.FormatInt(current+counters[k], 10)))
	}

	for i := len(path) - 1; i >= 0; i-- {
		raw, err := json.Marshal(levels[i+1])
		if err != nil {
			return fmt.Errorf("encode usage: %w", err)
		}
		levels[i].Set(path[i], raw)
	}
	return writeJSONAtomic(m.path, levels[0])
}

// Report returns every integer counter recorded so far.
func (m *UsageMetrics) Report() (UsageReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	root, err := m.read()
	if err != nil {
		return nil, err
	}
	report := make(UsageReport)
	for _, day := range root.Keys() {
		days, ok := objectAt(root, day)
		if !ok {
			continue
		}
		for _, provider := range days.Keys() {
			providers, ok := objectAt(days, provider)
			if !ok {
				continue
			}
			for _, script := range providers.Keys() {
				scripts, ok := objectAt(providers, script)
				if !ok {
					continue
				}
				for _, name := range scripts.Keys() {
					raw, _ := scripts.Get(name)
					var n int64
					if json.Unmarshal(raw, &n) != nil {
						continue
					}
					if report[day] == nil {
						report[day] = make(map[string]map[string]map[string]int64)
					}
					if report[day][provider] == nil {
						report[day][provider] = make(map[string]map[string]int64)
					}
					if report[day][provider][script] == nil {
						report[day][provider][script] = make(map[string]int64)
					}
					report[day][provider][script][name] = n
				}
			}
		}
	}
	return report, nil
}

func (m *UsageMetrics) read() (product.Object, error) {
	var root product.Object
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return root, nil
	}
	if err != nil {
		return root, fmt.Errorf("read %s: %w", m.path, err)
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return root, fmt.Errorf("parse %s: %w", m.path, err)
	}
	return root, nil
}

// childObject returns parent[key] as an object; a missing key is empty.
func childObject(parent product.Object, key string) (product.Object, error) {
	var child product.Object
	raw, ok := parent.Get(key)
	if !ok {
		return child, nil
	}
	if err := json.Unmarshal(raw, &child); err != nil {
		return child, fmt.Errorf("%q is not an object: %w", key, err)
	}
	return child, nil
}

func objectAt(parent product.Object, key string) (product.Object, bool) {
	child, err := childObject(parent, key)
	return child, err == nil
}

// counterValue reads an owned counter; a value that is not a whole number
// restarts it from its integer part, or zero.
func counterValue(raw json.RawMessage) int64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return int64(f)
}
