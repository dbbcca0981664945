package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// fieldSet maps JSON keys to struct field indexes for one struct type.
type fieldSet struct {
	names []string
	index map[string]int
}

var fieldSets sync.Map // reflect.Type -> *fieldSet

func fieldsOf(t reflect.Type) *fieldSet {
	if fs, ok := fieldSets.Load(t); ok {
		return fs.(*fieldSet)
	}
	fs := &fieldSet{index: make(map[string]int)}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fs.names = append(fs.names, name)
		fs.index[name] = i
	}
	fieldSets.Store(t, fs)
	return fs
}

// decodeLenient fills the struct behind dst from a JSON object. A field whose
// value does not fit its Go type is left zero and its raw value is kept with
// the unknown keys, so one bad field never rejects a whole record.
func decodeLenient(data []byte, dst reflect.Value) (map[string]json.RawMessage, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("read object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	fs := fieldsOf(dst.Type())
	var rest map[string]json.RawMessage
	var keys []string
	seen := make(map[string]bool)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("read key: %w", err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("read value of %q: %w", key, err)
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}

		if i, ok := fs.index[key]; ok {
			field := dst.Field(i)
			if err := json.Unmarshal(raw, field.Addr().Interface()); err == nil {
				if rest != nil {
					delete(rest, key)
				}
				continue
			}
			field.Set(reflect.Zero(field.Type()))
		}
		if rest == nil {
			rest = make(map[string]json.RawMessage)
		}
		rest[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("close object: %w", err)
	}
	return rest, keys, nil
}

// encodeOrdered writes known fields (marshaled from alias) merged with the
// preserved unknown ones. Keys seen on decode keep their original order,
// new known keys follow in struct order, then remaining unknown keys sorted.
func encodeOrdered(alias any, t reflect.Type, rest map[string]json.RawMessage, keys []string) ([]byte, error) {
	data, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 && len(keys) == 0 {
		return data, nil
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(known)+len(rest))
	for k, v := range rest {
		merged[k] = v
	}
	for k, v := range known {
		merged[k] = v
	}

	var order []string
	written := make(map[string]bool, len(merged))
	push := func(k string) {
		if _, ok := merged[k]; ok && !written[k] {
			written[k] = true
			order = append(order, k)
		}
	}
	for _, k := range keys {
		push(k)
	}
	for _, k := range fieldsOf(t).names {
		push(k)
	}
	var leftover []string
	for k := range merged {
		if !written[k] {
			leftover = append(leftover, k)
		}
	}
	sort.Strings(leftover)
	order = append(order, leftover...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(merged[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

type productAlias Product

// UnmarshalJSON decodes leniently and migrates legacy curated records: a
// record from the curated source that carries a dark_horse_index but no
// score_provenance is treated as curator-scored.
func (p *Product) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var a productAlias
	rest, keys, err := decodeLenient(data, reflect.ValueOf(&a).Elem())
	if err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	*p = Product(a)
	p.rest, p.keys = rest, keys

	if p.ScoreProvenance == "" && strings.EqualFold(strings.TrimSpace(p.Source), SourceCurated) {
		for _, k := range keys {
			if k == "dark_horse_index" && (rest == nil || rest[k] == nil) {
				p.ScoreProvenance = ProvenanceCurated
				break
			}
		}
	}
	return nil
}

// MarshalJSON encodes known fields and writes preserved unknown fields back.
func (p Product) MarshalJSON() ([]byte, error) {
	return encodeOrdered(productAlias(p), reflect.TypeOf(productAlias{}), p.rest, p.keys)
}

// Unknown returns the raw value of a field this package does not model.
func (p *Product) Unknown(key string) (json.RawMessage, bool) {
	v, ok := p.rest[key]
	return v, ok
}
