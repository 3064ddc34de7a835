package server

import (
	"reflect"
	"strings"
	"testing"
)

func TestParameterSet_SetAndGet(t *testing.T) {
	p := NewParameterSet(Parameter{Key: "code", Value: "abc"}, Parameter{Key: "state", Value: "s1"})

	p.Set("user", "u")
	p.Set("code", "xyz")

	if got := p.Keys(); !reflect.DeepEqual(got, []string{"code", "state", "user"}) {
		t.Errorf("Keys() = %v", got)
	}
	if p.Get("code") != "xyz" {
		t.Errorf("Get(code) = %q, want xyz", p.Get("code"))
	}
	if p.Get("missing") != "" || p.Has("missing") {
		t.Error("missing key should be absent")
	}
	if !p.Has("state") {
		t.Error("Has(state) = false")
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
}

func TestParameterSet_InsertAfter(t *testing.T) {
	tests := []struct {
		name         string
		start        []string
		anchor       string
		key          string
		want         []string
		wantInserted bool
	}{
		{name: "after first", start: []string{"code", "user"}, anchor: "code", key: "access_token", want: []string{"code", "access_token", "user"}, wantInserted: true},
		{name: "after last", start: []string{"code", "user"}, anchor: "user", key: "userIdentifier", want: []string{"code", "user", "userIdentifier"}, wantInserted: true},
		{name: "missing anchor appends", start: []string{"state"}, anchor: "code", key: "access_token", want: []string{"state", "access_token"}, wantInserted: true},
		{name: "existing key is left alone", start: []string{"id_token", "code", "user"}, anchor: "code", key: "id_token", want: []string{"id_token", "code", "user"}},
		{name: "empty set", start: nil, anchor: "code", key: "x", want: []string{"x"}, wantInserted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ParameterSet{}
			for _, k := range tt.start {
				p.Set(k, "orig")
			}

			inserted := p.InsertAfter(tt.anchor, tt.key, "new")

			if inserted != tt.wantInserted {
				t.Errorf("InsertAfter() = %v, want %v", inserted, tt.wantInserted)
			}
			if got := p.Keys(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Keys() = %v, want %v", got, tt.want)
			}
			wantValue := "new"
			if !tt.wantInserted {
				wantValue = "orig"
			}
			if p.Get(tt.key) != wantValue {
				t.Errorf("Get(%s) = %q, want %q", tt.key, p.Get(tt.key), wantValue)
			}
		})
	}
}

func TestParameterSet_Encode(t *testing.T) {
	p := NewParameterSet(
		Parameter{Key: "z", Value: "1"},
		Parameter{Key: "email", Value: "a@b.com"},
		Parameter{Key: "name", Value: "Jane Doe"},
		Parameter{Key: "a&b", Value: "x=y"},
	)

	want := "z=1&email=a%40b.com&name=Jane+Doe&a%26b=x%3Dy"
	if got := p.Encode(); got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}

	if got := (&ParameterSet{}).Encode(); got != "" {
		t.Errorf("empty Encode() = %q", got)
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantKeys []string
		wantVals map[string]string
	}{
		{
			name:     "preserves order",
			query:    "state=s1&code=abc&user=%7B%22sub%22%3A%22u1%22%7D",
			wantKeys: []string{"state", "code", "user"},
			wantVals: map[string]string{"code": "abc", "user": `{"sub":"u1"}`},
		},
		{
			name:     "plus is a space",
			query:    "name=Jane+Doe",
			wantKeys: []string{"name"},
			wantVals: map[string]string{"name": "Jane Doe"},
		},
		{
			name:     "repeated key keeps first position and last value",
			query:    "code=a&state=s&code=b",
			wantKeys: []string{"code", "state"},
			wantVals: map[string]string{"code": "b"},
		},
		{
			name:     "key without value",
			query:    "code&&state=",
			wantKeys: []string{"code", "state"},
			wantVals: map[string]string{"code": "", "state": ""},
		},
		{name: "empty", query: "", wantKeys: []string{}},
		{
			name:     "bad escape in one value keeps the other fields",
			query:    "code=abc123&state=50%25off%zz",
			wantKeys: []string{"code", "state"},
			wantVals: map[string]string{"code": "abc123", "state": "50%25off%zz"},
		},
		{
			name:     "bad escape in a key is kept as sent",
			query:    "%zz=1&code=abc123",
			wantKeys: []string{"%zz", "code"},
			wantVals: map[string]string{"%zz": "1", "code": "abc123"},
		},
		{
			name:     "semicolon is part of the value",
			query:    "code=abc123&state=a;b",
			wantKeys: []string{"code", "state"},
			wantVals: map[string]string{"code": "abc123", "state": "a;b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParseQuery(tt.query)
			if got := p.Keys(); !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("Keys() = %v, want %v", got, tt.wantKeys)
			}
			for k, v := range tt.wantVals {
				if p.Get(k) != v {
					t.Errorf("Get(%s) = %q, want %q", k, p.Get(k), v)
				}
			}
		})
	}
}

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKeys []string
		wantVals map[string]string
		wantErr  bool
	}{
		{
			name:     "strings in order",
			body:     `{"state":"s1","code":"abc","user":"{\"sub\":\"u1\"}"}`,
			wantKeys: []string{"state", "code", "user"},
			wantVals: map[string]string{"user": `{"sub":"u1"}`},
		},
		{
			name:     "non-string values keep their JSON text",
			body:     `{"n": 42, "ok": true, "user": {"sub": "u1", "email": "a@b.com"}}`,
			wantKeys: []string{"n", "ok", "user"},
			wantVals: map[string]string{"n": "42", "ok": "true", "user": `{"sub":"u1","email":"a@b.com"}`},
		},
		{
			name:     "null dropped",
			body:     `{"code":"abc","user":null}`,
			wantKeys: []string{"code"},
		},
		{name: "empty body", body: "", wantKeys: []string{}},
		{name: "empty object", body: "{}", wantKeys: []string{}},
		{name: "array", body: `["code"]`, wantErr: true},
		{name: "truncated", body: `{"code":"abc"`, wantErr: true},
		{name: "garbage", body: `code=abc`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseJSONObject(strings.NewReader(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseJSONObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := p.Keys(); !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("Keys() = %v, want %v", got, tt.wantKeys)
			}
			for k, v := range tt.wantVals {
				if p.Get(k) != v {
					t.Errorf("Get(%s) = %q, want %q", k, p.Get(k), v)
				}
			}
		})
	}
}
