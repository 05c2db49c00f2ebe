// Package controller implements the tool-level facades the MCP transport
// dispatches to: one controller per manage_* tool plus call_agent, each
// translating coerced JSON-RPC params into domain-service calls and a
// response envelope.
package controller

import (
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
)

// Params is the coerced parameter bag a controller action receives; the
// mcp package applies spec §4.8's coercion policy before handing this map
// to a controller.
type Params map[string]interface{}

func (p Params) str(key string) string {
	v, _ := p[key].(string)
	return v
}

func (p Params) strPtr(key string) *string {
	v, ok := p[key].(string)
	if !ok || v == "" {
		return nil
	}
	return &v
}

func (p Params) requireStr(operation, key string) (string, error) {
	v, ok := p[key].(string)
	if !ok || v == "" {
		return "", apperrors.ValidationError(operation, fmt.Errorf("%q is required", key))
	}
	return v, nil
}

func (p Params) uuid(operation, key string) (uuid.UUID, error) {
	s, err := p.requireStr(operation, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError(operation, fmt.Errorf("%q is not a valid uuid: %w", key, err))
	}
	return id, nil
}

func (p Params) uuidPtr(key string) *uuid.UUID {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func (p Params) boolDefault(key string, def bool) bool {
	v, ok := p[key].(bool)
	if !ok {
		return def
	}
	return v
}

func (p Params) intDefault(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func (p Params) stringSlice(key string) []string {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p Params) dataMap(key string) map[string]interface{} {
	m, _ := p[key].(map[string]interface{})
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
