package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vshulcz/Lumectra/internal/domain"
)

// object returns the child object under key. A missing key yields (nil, false, nil);
// a key holding anything but an object is a shape error.
func object(parent map[string]any, key string) (map[string]any, bool, error) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false, &domain.SnapshotShapeError{Path: key, Reason: "not an object"}
	}
	return obj, true, nil
}

// list is object for JSON arrays.
func list(parent map[string]any, key string) ([]any, bool, error) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false, &domain.SnapshotShapeError{Path: key, Reason: "not a list"}
	}
	return items, true, nil
}

// leaf walks keys and renders the scalar found at the end.
func leaf(n any, keys ...string) (string, bool) {
	for _, k := range keys {
		obj, ok := n.(map[string]any)
		if !ok {
			return "", false
		}
		if n, ok = obj[k]; !ok {
			return "", false
		}
	}
	return scalar(n)
}

// scalar renders JSON leaves as the device sent them.
func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case json.Number:
		return x.String(), true
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

func number(v any) (float64, bool) {
	s, ok := scalar(v)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
