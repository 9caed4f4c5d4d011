package safety

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// Error codes surfaced to callers and to the model.
const (
	CodeUnsupportedTool  = "ERR_UNSUPPORTED_TOOL"
	CodeInvalidArguments = "ERR_INVALID_ARGUMENTS"
	CodePathEscapesRoot  = "ERR_PATH_ESCAPES_ROOT"
	CodePathDenied       = "ERR_PATH_DENIED"
	CodeFileSystem       = "ERR_FILESYSTEM"
	CodeNotAFile         = "ERR_NOT_A_FILE"
	CodeNotADirectory    = "ERR_NOT_A_DIRECTORY"
	CodeInternal         = "ERR_INTERNAL"
)

// Kind groups codes into the coarse error families callers branch on.
type Kind string

const (
	KindUnsupportedTool  Kind = "UnsupportedTool"
	KindInvalidArguments Kind = "InvalidArguments"
	KindPathEscapesRoot  Kind = "PathEscapesRoot"
	KindPathDenied       Kind = "PathDenied"
	KindFileSystemError  Kind = "FileSystemError"
	KindInternal         Kind = "Internal"
)

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
// Err, when set, is the underlying OS error and is reachable through errors.Is/As.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func (e ToolError) Unwrap() error { return e.Err }

// Kind reports the error family of e.Code.
func (e ToolError) Kind() Kind {
	switch e.Code {
	case CodeUnsupportedTool:
		return KindUnsupportedTool
	case CodeInvalidArguments:
		return KindInvalidArguments
	case CodePathEscapesRoot:
		return KindPathEscapesRoot
	case CodePathDenied:
		return KindPathDenied
	case CodeFileSystem, CodeNotAFile, CodeNotADirectory:
		return KindFileSystemError
	default:
		return KindInternal
	}
}

// CodeOf returns the ToolError code carried by err, or CodeInternal for any
// other non-nil error. It returns "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var te ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return CodeInternal
}

// KindOf returns the error family of err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te ToolError
	if errors.As(err, &te) {
		return te.Kind()
	}
	return KindInternal
}

// UnsupportedTool reports a tool name outside the registry.
func UnsupportedTool(name string) ToolError {
	return ToolError{Code: CodeUnsupportedTool, Message: fmt.Sprintf("unsupported tool %q", name)}
}

// InvalidArguments reports missing or malformed tool arguments.
func InvalidArguments(format string, args ...any) ToolError {
	return ToolError{Code: CodeInvalidArguments, Message: fmt.Sprintf(format, args...)}
}

// PathEscapesRoot reports a path that resolves outside the safe root.
func PathEscapesRoot(p string) ToolError {
	return ToolError{Code: CodePathEscapesRoot, Message: fmt.Sprintf("path %q resolves outside the safe root", p)}
}

// PathDenied reports a path inside the root that policy forbids touching.
func PathDenied(p string) ToolError {
	return ToolError{Code: CodePathDenied, Message: fmt.Sprintf("access to %q is not allowed", p)}
}

// NotAFile reports a directory where a file was required.
func NotAFile(p string) ToolError {
	return ToolError{Code: CodeNotAFile, Message: fmt.Sprintf("%q is a directory", p), Err: syscall.EISDIR}
}

// NotADirectory reports a file where a directory was required.
func NotADirectory(p string) ToolError {
	return ToolError{Code: CodeNotADirectory, Message: fmt.Sprintf("%q is not a directory", p), Err: syscall.ENOTDIR}
}

// FileSystemError wraps an OS failure. The message names the caller-supplied
// path and the bare errno text so host paths outside the root never leak.
func FileSystemError(op, p string, err error) ToolError {
	return ToolError{Code: CodeFileSystem, Message: fmt.Sprintf("%s %s: %s", op, p, describe(err)), Err: err}
}

func describe(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	var le *os.LinkError
	if errors.As(err, &le) {
		return le.Err.Error()
	}
	return err.Error()
}
