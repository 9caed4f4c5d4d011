// Package dispatch maps a tool request onto exactly one registered file
// operation and converts its outcome into a ToolResult.
package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/petasbytes/fsagent/internal/safety"
)

// ToolRequest names a tool and carries its raw JSON object arguments.
type ToolRequest struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of one dispatch.
// Read-only tools return their output in Data; mutating tools only set Message.
type ToolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
	Code    string `json:"code,omitempty"`

	// Err is the underlying failure, kept for callers that map it onward
	// (HTTP status codes). It is never serialised.
	Err error `json:"-"`
}

// Content is the text handed back to the model as the tool_result body.
// Failures render as the compact {"code","message"} error object.
func (r ToolResult) Content() string {
	if !r.Success {
		return safety.ToolError{Code: r.Code, Message: r.Message}.Error()
	}
	if r.Data != "" {
		return r.Data
	}
	return r.Message
}

// Failure converts err into a failed result. Errors that are not ToolErrors
// are reported as ERR_INTERNAL without their text.
func Failure(err error) ToolResult {
	var te safety.ToolError
	if !errors.As(err, &te) {
		te = safety.ToolError{Code: safety.CodeInternal, Message: "internal error"}
	}
	return ToolResult{Success: false, Message: te.Message, Code: te.Code, Err: err}
}
