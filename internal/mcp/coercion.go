package mcp

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ctxforge/taskmcp/internal/controller"
)

// boolParams and intParams name every argument key any controller reads
// as a bool or an int (see internal/controller/params.go's boolDefault/
// intDefault callers). listParams names every key read as a plain string
// list via stringSlice. Coercion is applied by key, not by guessing from
// the string's contents, so a text field that happens to read "yes" or
// "true" is never misread as a boolean.
var (
	boolParams = map[string]bool{
		"propagate":         true,
		"force_refresh":     true,
		"include_inherited": true,
		"auto_delegated":    true,
		"auto_delegate":     true,
	}
	intParams = map[string]bool{
		"progress_percentage": true,
	}
	listParams = map[string]bool{
		"assignees":    true,
		"labels":       true,
		"dependencies": true,
		"capabilities": true,
	}
)

// coerceArguments decodes a raw tools/call arguments payload into a
// controller.Params bag, applying spec.md §4.8's lenient coercion policy:
// a client may send "true"/"1"/"yes" for a boolean field, a numeric string
// for an integer field, or a comma-separated/JSON-encoded-array string for
// a list field, and still produce the typed Go value the controller layer
// expects.
func coerceArguments(raw json.RawMessage) (controller.Params, error) {
	if len(raw) == 0 {
		return controller.Params{}, nil
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	out := make(controller.Params, len(generic))
	for k, v := range generic {
		out[k] = coerceField(k, v)
	}
	return out, nil
}

func coerceField(key string, v interface{}) interface{} {
	if s, ok := v.(string); ok && s == "" {
		return nil // nullable string fields treat empty string as null
	}
	switch {
	case boolParams[key]:
		if b, ok := coerceBool(v); ok {
			return b
		}
	case intParams[key]:
		if n, ok := coerceInt(v); ok {
			return n
		}
	case listParams[key]:
		if list, ok := coerceList(v); ok {
			return list
		}
	}
	return v
}

func coerceBool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float64:
		return x != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}

// coerceInt accepts an int, an int64, a float64 (from JSON numbers), or a
// numeric string, per spec.md §4.8's integer coercion rule.
func coerceInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// coerceList accepts a native JSON array, a comma-separated string, or a
// JSON-encoded array string (repairing minor malformation with jsonrepair
// before giving up) and returns a []interface{} the way a native JSON
// array would decode.
func coerceList(v interface{}) ([]interface{}, bool) {
	if arr, ok := v.([]interface{}); ok {
		return arr, true
	}
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") {
		var arr []interface{}
		if err := json.Unmarshal([]byte(trimmed), &arr); err == nil {
			return arr, true
		}
		if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil {
			if err := json.Unmarshal([]byte(repaired), &arr); err == nil {
				return arr, true
			}
		}
		return nil, false
	}
	if strings.Contains(trimmed, ",") {
		parts := strings.Split(trimmed, ",")
		arr := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			if item := strings.TrimSpace(p); item != "" {
				arr = append(arr, item)
			}
		}
		return arr, true
	}
	return []interface{}{trimmed}, true
}
