package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Parameter is one field of a ParameterSet
type Parameter struct {
	Key   string
	Value string
}

// ParameterSet is an ordered string map. Keys are unique and keep the position
// of their first insertion; the deep link is encoded in this order.
// A ParameterSet belongs to one request and is not safe for concurrent use.
type ParameterSet struct {
	params []Parameter
}

// NewParameterSet creates a ParameterSet from the given key/value pairs
func NewParameterSet(pairs ...Parameter) *ParameterSet {
	p := &ParameterSet{}
	for _, kv := range pairs {
		p.Set(kv.Key, kv.Value)
	}
	return p
}

func (p *ParameterSet) index(key string) int {
	for i, kv := range p.params {
		if kv.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value for key, or "" if it is absent
func (p *ParameterSet) Get(key string) string {
	if i := p.index(key); i >= 0 {
		return p.params[i].Value
	}
	return ""
}

// Has reports whether key is present
func (p *ParameterSet) Has(key string) bool {
	return p.index(key) >= 0
}

// Set replaces the value of an existing key in place, or appends a new key
func (p *ParameterSet) Set(key, value string) {
	if i := p.index(key); i >= 0 {
		p.params[i].Value = value
		return
	}
	p.params = append(p.params, Parameter{Key: key, Value: value})
}

// InsertAfter places key directly after anchor and reports whether it did.
// A key that is already present keeps its value and position; a missing
// anchor appends.
func (p *ParameterSet) InsertAfter(anchor, key, value string) bool {
	if p.index(key) >= 0 {
		return false
	}

	i := p.index(anchor)
	if i < 0 {
		p.params = append(p.params, Parameter{Key: key, Value: value})
		return true
	}

	p.params = append(p.params, Parameter{})
	copy(p.params[i+2:], p.params[i+1:])
	p.params[i+1] = Parameter{Key: key, Value: value}
	return true
}

// Keys returns the keys in order
func (p *ParameterSet) Keys() []string {
	keys := make([]string, len(p.params))
	for i, kv := range p.params {
		keys[i] = kv.Key
	}
	return keys
}

// Len returns the number of parameters
func (p *ParameterSet) Len() int {
	return len(p.params)
}

// Encode returns the parameters form-encoded in insertion order
// ("a=1&b=x+y"). Unlike url.Values.Encode it does not sort keys.
func (p *ParameterSet) Encode() string {
	var b strings.Builder
	for i, kv := range p.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// ParseQuery parses a URL query or form body, keeping field order.
// A repeated key keeps its first position and its last value. A key or value
// that is not valid percent-encoding is kept as sent, and ';' is an ordinary
// character rather than a separator.
func ParseQuery(query string) *ParameterSet {
	p := &ParameterSet{}
	for query != "" {
		var field string
		field, query, _ = strings.Cut(query, "&")
		if field == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(field, "=")
		p.Set(unescapeField(rawKey), unescapeField(rawValue))
	}
	return p
}

func unescapeField(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// ParseJSONObject parses a flat JSON object, keeping field order.
// String values are used as-is; any other value is kept as its compact JSON
// text, and null values are dropped.
func ParseJSONObject(r io.Reader) (*ParameterSet, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParameterSet{}, nil
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("JSON body must be an object")
	}

	p := &ParameterSet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid JSON object key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON value for %q: %w", key, err)
		}

		value, ok, err := jsonFieldValue(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JSON value for %q: %w", key, err)
		}
		if ok {
			p.Set(key, value)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	return p, nil
}

func jsonFieldValue(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(raw, []byte("null")):
		return "", false, nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", false, err
		}
		return buf.String(), true, nil
	}
}
