// Package tool implements the function calling subsystem that lets team
// agents invoke structured capabilities (log lookups, document search,
// database queries) with schema validated arguments and consistent error
// handling. The Registry is populated at startup and read-only afterwards.
package tool

import (
	"context"
	"fmt"

	"github.com/agentwerk/teamrouter/internal/util"
)

// Tool defines a callable capability exposed to the reasoning oracle.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Define a JSON schema for parameters
//   - Return a textual result suitable for folding back into model context
//   - Be safe for concurrent use; same-turn calls may run in parallel
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the oracle to help it decide when to call the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool and returns a textual result. Arguments have
	// already been decoded from JSON; required-field presence is validated
	// against the schema before execution.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Spec is the declarative description of a tool handed to the oracle as part
// of a team's catalog.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes attached to ToolError for categorization.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
