package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// JSONMap stores an arbitrary JSON object inside a JSONB column. Columns
// using it are tagged `serializer:json` so gorm handles the encoding.
type JSONMap map[string]any

// Lookup walks a dotted path ("a.b.c") through nested objects.
func (j JSONMap) Lookup(path string) (any, bool) {
	var current any = map[string]any(j)
	for _, part := range strings.Split(path, ".") {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

// String returns the first non-empty scalar found at any of paths, rendered
// as a trimmed string. Numbers are formatted without exponent.
func (j JSONMap) String(paths ...string) string {
	for _, path := range paths {
		raw, ok := j.Lookup(path)
		if !ok {
			continue
		}
		if s := scalarString(raw); s != "" {
			return s
		}
	}
	return ""
}

// Object returns the nested object at path.
func (j JSONMap) Object(path string) JSONMap {
	raw, ok := j.Lookup(path)
	if !ok {
		return nil
	}
	obj, ok := asObject(raw)
	if !ok {
		return nil
	}
	return JSONMap(obj)
}

// ParseJSONMap decodes a JSON object. Empty input yields a nil map.
func ParseJSONMap(raw string) (JSONMap, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out JSONMap
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode json object: %w", err)
	}
	return out, nil
}

func asObject(v any) (map[string]any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, true
	case JSONMap:
		return typed, true
	default:
		return nil, false
	}
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return ""
	}
}
