package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceArgumentsByKeyOnly(t *testing.T) {
	raw := json.RawMessage(`{
		"propagate": "true",
		"progress_percentage": "42",
		"labels": "urgent, backend",
		"title": "yes"
	}`)

	params, err := coerceArguments(raw)
	require.NoError(t, err)

	assert.Equal(t, true, params["propagate"])
	assert.Equal(t, 42, params["progress_percentage"])
	assert.Equal(t, []interface{}{"urgent", "backend"}, params["labels"])

	// "title" is not a known bool/int/list key, so a string value that
	// happens to look like a boolean keyword passes through unchanged.
	assert.Equal(t, "yes", params["title"])
}

func TestCoerceArgumentsEmptyStringBecomesNil(t *testing.T) {
	raw := json.RawMessage(`{"description": ""}`)
	params, err := coerceArguments(raw)
	require.NoError(t, err)
	assert.Nil(t, params["description"])
}

func TestCoerceListHandlesJSONArrayStringAndRepair(t *testing.T) {
	list, ok := coerceList(`["a", "b"]`)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, list)

	// missing closing bracket: jsonrepair should recover it.
	list, ok = coerceList(`["a", "b"`)
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, list)
}

func TestCoerceBoolRejectsUnrecognizedString(t *testing.T) {
	_, ok := coerceBool("maybe")
	assert.False(t, ok)
}

func TestCoerceArgumentsNoArguments(t *testing.T) {
	params, err := coerceArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, params)
}
