package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type ListDirectoryInput struct {
	Path     string `json:"path,omitempty" jsonschema_description:"Directory relative to the safe root; empty for the root itself."`
	Page     int    `json:"page,omitempty" jsonschema_description:"1-based page number (default 1)."`
	PageSize int    `json:"page_size,omitempty" jsonschema_description:"Page size (default 200)."`
}

// defaultListPageSize is the fallback page size when page_size <= 0.
const defaultListPageSize = 200

// ListDirectoryOutput is the JSON body returned by list_directory.
type ListDirectoryOutput struct {
	Entries []fsops.Entry `json:"entries"`
	Total   int           `json:"total"`
	Page    int           `json:"page"`
}

func ListDirectory(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "list_directory",
		Description: "List the entries of a directory inside the safe root (non-recursive). Directories end in '/', files carry their size in bytes.",
		InputSchema: GenerateSchema[ListDirectoryInput](),
		ReadOnly:    true,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[ListDirectoryInput](input)
			if err != nil {
				return "", err
			}
			entries, err := ws.List(in.Path)
			if err != nil {
				return "", err
			}

			// Default benign inputs for LLM callers to keep behaviour predictable.
			page := max(in.Page, 1)
			pageSize := in.PageSize
			if pageSize <= 0 {
				pageSize = defaultListPageSize
			}
			out := ListDirectoryOutput{Entries: []fsops.Entry{}, Total: len(entries), Page: page}
			// page-1 is compared by division so huge page numbers cannot overflow.
			if n := len(entries); n > 0 && page-1 <= (n-1)/pageSize {
				start := (page - 1) * pageSize
				out.Entries = entries[start : start+min(pageSize, n-start)]
			}

			b, err := json.Marshal(out)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
