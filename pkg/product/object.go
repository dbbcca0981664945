package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Passthrough holds the members of a JSON object that a struct does not
// model, with the object's original key order.
type Passthrough struct {
	rest map[string]json.RawMessage
	keys []string
}

// DecodeKeeping decodes the JSON object data into the struct dst points to
// with the same lenient rules as Product, and returns everything else.
// dst's type must not implement json.Unmarshaler itself.
func DecodeKeeping(data []byte, dst any) (Passthrough, error) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return Passthrough{}, fmt.Errorf("decode target must be a struct pointer, got %T", dst)
	}
	rest, keys, err := decodeLenient(data, v.Elem())
	if err != nil {
		return Passthrough{}, err
	}
	return Passthrough{rest: rest, keys: keys}, nil
}

// EncodeKeeping encodes the struct src and merges pt back in its original
// position. src's type must not implement json.Marshaler itself.
func EncodeKeeping(src any, pt Passthrough) ([]byte, error) {
	t := reflect.TypeOf(src)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("encode source must be a struct, got %T", src)
	}
	return encodeOrdered(src, t, pt.rest, pt.keys)
}

// Object is a JSON object kept as raw members in key order. Members are
// only re-encoded when Set replaces them.
type Object struct {
	keys []string
	vals map[string]json.RawMessage
}

func (o *Object) UnmarshalJSON(data []byte) error {
	*o = Object{}
	if isNull(data) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read value of %q: %w", key, err)
		}
		o.Set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("close object: %w", err)
	}
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(quoteJSON(k))
		buf.WriteByte(':')
		buf.Write(o.vals[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Keys returns the member names in order.
func (o *Object) Keys() []string {
	return o.keys
}

// Get returns the raw value of key.
func (o *Object) Get(key string) (json.RawMessage, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Set replaces key in place, or appends it when new.
func (o *Object) Set(key string, raw json.RawMessage) {
	if o.vals == nil {
		o.vals = make(map[string]json.RawMessage)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = raw
}
