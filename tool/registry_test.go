package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Tool = (*FunctionTool)(nil)

func upperTool() *FunctionTool {
	return NewFunctionTool(
		"to_upper",
		"Uppercase the input text",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			return strings.ToUpper(args["text"].(string)), nil
		},
	)
}

func TestRegistry_RegisterAndCall(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(upperTool()))

	out, err := reg.Call(context.Background(), "to_upper", `{"text":"bad001"}`)
	require.NoError(t, err)
	assert.Equal(t, "BAD001", out)
}

func TestRegistry_DuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(upperTool()))
	assert.Error(t, reg.Register(upperTool()))
}

func TestRegistry_UnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Call(context.Background(), "nope", "{}")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeNotFound, toolErr.Code)
}

func TestRegistry_MalformedArguments(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(upperTool()))

	_, err := reg.Call(context.Background(), "to_upper", `{"text":`)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_MissingRequiredParameter(t *testing.T) {
	_, err := upperTool().Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

func TestFunctionTool_WrapsExecutionError(t *testing.T) {
	boom := NewFunctionTool("boom", "always fails", map[string]any{"type": "object", "properties": map[string]any{}},
		func(context.Context, map[string]any) (string, error) {
			return "", errors.New("backend unreachable")
		})

	_, err := boom.Call(context.Background(), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Error(), "backend unreachable")
}

func TestRegistry_CatalogPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		n := name
		require.NoError(t, reg.Register(NewFunctionTool(n, fmt.Sprintf("tool %s", n),
			map[string]any{"type": "object", "properties": map[string]any{}},
			func(context.Context, map[string]any) (string, error) { return n, nil })))
	}

	specs := reg.Catalog([]string{"gamma", "alpha", "unknown"})
	require.Len(t, specs, 2)
	assert.Equal(t, "gamma", specs[0].Name)
	assert.Equal(t, "alpha", specs[1].Name)
}
