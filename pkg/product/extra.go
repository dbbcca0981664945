package product

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Number is a float that also accepts numeric strings ("12.5").
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*n = Number(f)
	return nil
}

// Extra holds the auxiliary fields the pipeline reads, plus everything else
// upstream producers attached, kept verbatim.
type Extra struct {
	// Metrics holds the latest raw growth counters reported by a source.
	Metrics map[string]float64 `json:"metrics,omitempty"`
	// MetricsDelta maps a metric name (stars, votes, ...) to its change since
	// the previous collection.
	MetricsDelta map[string]float64 `json:"metrics_delta,omitempty"`
	// FundingAmount is in millions of US dollars.
	FundingAmount *Number `json:"funding_amount,omitempty"`
	IsFundingNews *bool   `json:"is_funding_news,omitempty"`
	NewsMarket    string  `json:"news_market,omitempty"`
	SearchKeyword string  `json:"search_keyword,omitempty"`

	rest map[string]json.RawMessage
	keys []string
}

type extraAlias Extra

func (e *Extra) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var a extraAlias
	rest, keys, err := decodeLenient(data, reflect.ValueOf(&a).Elem())
	if err != nil {
		return fmt.Errorf("decode extra: %w", err)
	}
	*e = Extra(a)
	e.rest, e.keys = rest, keys
	return nil
}

func (e Extra) MarshalJSON() ([]byte, error) {
	return encodeOrdered(extraAlias(e), reflect.TypeOf(extraAlias{}), e.rest, e.keys)
}

// IsZero lets the product encoder omit an empty extra object.
func (e Extra) IsZero() bool {
	return len(e.Metrics) == 0 && len(e.MetricsDelta) == 0 && e.FundingAmount == nil && e.IsFundingNews == nil &&
		e.NewsMarket == "" && e.SearchKeyword == "" && len(e.rest) == 0
}

// Get returns the raw value of a pass-through key.
func (e *Extra) Get(key string) (json.RawMessage, bool) {
	v, ok := e.rest[key]
	return v, ok
}

// Set stores a pass-through key, replacing any previous value.
func (e *Extra) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal extra %s: %w", key, err)
	}
	e.setRaw(key, raw)
	return nil
}

// SetString stores a string pass-through key. Unlike Set it cannot fail.
func (e *Extra) SetString(key, value string) {
	e.setRaw(key, quoteJSON(value))
}

// quoteJSON encodes s as a JSON string literal; invalid UTF-8 becomes
// U+FFFD as with encoding/json.
func quoteJSON(s string) json.RawMessage {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range strings.ToValidUTF8(s, "\uFFFD") {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20:
			fmt.Fprintf(&b, "\\u%04x", r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return json.RawMessage(b.String())
}

func (e *Extra) setRaw(key string, raw json.RawMessage) {
	if e.rest == nil {
		e.rest = make(map[string]json.RawMessage)
	} else {
		e.rest = cloneRaw(e.rest)
	}
	e.rest[key] = raw
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
