package imagegen

import (
	"encoding/json"
	"strings"
)

// Kind tags which payload a Result carries.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindURL
	KindBase64
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindBase64:
		return "base64"
	default:
		return "unrecognized"
	}
}

// Result is the decoded image payload: a URL to download or a base64 body.
type Result struct {
	Kind  Kind
	Value string
}

// envelope recognises one top-level response shape.
type envelope func(doc map[string]json.RawMessage) (Result, bool)

// envelopes are tried in order; adding an accepted shape is one entry here.
var envelopes = []envelope{
	dataEnvelope,
	outputEnvelope,
}

// Decode maps a JSON response body onto a Result. It returns a Result with
// KindUnrecognized when no known envelope matches.
func Decode(body []byte) Result {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return Result{}
	}
	for _, env := range envelopes {
		if res, ok := env(doc); ok {
			return res
		}
	}
	return Result{}
}

// {"data":[{"b64_json"|"b64"|"url": ...}]}
func dataEnvelope(doc map[string]json.RawMessage) (Result, bool) {
	first, ok := firstElement(doc["data"])
	if !ok {
		return Result{}, false
	}
	return fromObject(first)
}

// {"output":["<base64>"]} or {"output":[{...same fields as data...}]}
func outputEnvelope(doc map[string]json.RawMessage) (Result, bool) {
	first, ok := firstElement(doc["output"])
	if !ok {
		return Result{}, false
	}
	var s string
	if err := json.Unmarshal(first, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return Result{}, false
		}
		return Result{Kind: KindBase64, Value: s}, true
	}
	return fromObject(first)
}

func firstElement(raw json.RawMessage) (json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

func fromObject(raw json.RawMessage) (Result, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Result{}, false
	}
	fields := []struct {
		key  string
		kind Kind
	}{
		{"b64_json", KindBase64},
		{"b64", KindBase64},
		{"url", KindURL},
	}
	for _, f := range fields {
		if s, ok := obj[f.key].(string); ok && strings.TrimSpace(s) != "" {
			return Result{Kind: f.kind, Value: s}, true
		}
	}
	return Result{}, false
}
