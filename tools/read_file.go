package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type ReadFileInput struct {
	Path   string `json:"path" jsonschema_description:"File path relative to the safe root."`
	Offset int    `json:"offset,omitempty" jsonschema_description:"Line offset (0-based) to start reading from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum lines to return from offset (default 200)."`
}

const (
	defaultReadFileLimit = 200 // fallback page size when limit <= 0
	truncationSentinel   = "-- truncated; use offset/limit to fetch more --\n"
	maxLineRunes         = 2000   // per-line clamp
	overallRuneCap       = 12_000 // overall cap after join
)

func ReadFile(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "read_file",
		Description: "Read a text file inside the safe root. Long files are paged by line; a trailing marker signals more content.",
		InputSchema: GenerateSchema[ReadFileInput](),
		ReadOnly:    true,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[ReadFileInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			content, err := ws.Read(in.Path)
			if err != nil {
				return "", err
			}
			return page(content, in.Offset, in.Limit), nil
		},
	}
}

// clampRunes cuts s to at most n runes and reports whether it cut anything.
func clampRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// page selects limit lines from offset and applies small, deterministic caps
// so results stay predictably sized for windowing. A sentinel line is appended
// whenever anything was left out.
func page(content string, offset, limit int) string {
	if limit <= 0 {
		limit = defaultReadFileLimit
	}
	offset = max(offset, 0)

	lines := strings.Split(content, "\n")
	offset = min(offset, len(lines))
	end := offset + min(limit, len(lines)-offset)

	truncated := end < len(lines)
	for i := offset; i < end; i++ {
		if clamped, did := clampRunes(lines[i], maxLineRunes); did {
			lines[i] = clamped
			truncated = true
		}
	}

	out := strings.Join(lines[offset:end], "\n")
	if clamped, did := clampRunes(out, overallRuneCap); did {
		out = clamped
		truncated = true
	}

	if truncated {
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += truncationSentinel
	}
	return out
}
