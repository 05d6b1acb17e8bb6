package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        "test_tool",
		Description: "a tool for testing",
		Parameters: []ToolParameter{
			{Name: "name", Type: "string", Required: true, MaxLength: intPtr(10)},
			{Name: "count", Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(5)},
			{Name: "mode", Type: "string", Enum: []string{"a", "b"}},
			{Name: "tags", Type: "array", MaxItems: intPtr(2), Items: &ToolParameter{Type: "string"}},
		},
	}
}

func TestValidator_RegisterAndValidate(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Register(sampleToolDefinition()))

	t.Run("valid params pass", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{
			"name":  "ok",
			"count": float64(3),
			"mode":  "a",
			"tags":  []interface{}{"x", "y"},
		})
		assert.NoError(t, err)
	})

	t.Run("missing required field fails", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("maxLength violation fails", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{"name": "way-too-long-value"})
		assert.Error(t, err)
	})

	t.Run("out of range number fails", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{"name": "ok", "count": float64(99)})
		assert.Error(t, err)
	})

	t.Run("enum violation fails", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{"name": "ok", "mode": "z"})
		assert.Error(t, err)
	})

	t.Run("too many array items fails", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{
			"name": "ok",
			"tags": []interface{}{"a", "b", "c"},
		})
		assert.Error(t, err)
	})

	t.Run("additional property rejected", func(t *testing.T) {
		err := v.Validate("test_tool", map[string]interface{}{"name": "ok", "extra": "nope"})
		assert.Error(t, err)
	})

	t.Run("unregistered tool errors", func(t *testing.T) {
		err := v.Validate("missing_tool", map[string]interface{}{})
		assert.Error(t, err)
	})
}

func TestValidator_Definitions(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Register(sampleToolDefinition()))

	defs := v.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "test_tool", defs[0].Name)
}
