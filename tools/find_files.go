package tools

import (
	"context"
	"encoding/json"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type FindFilesInput struct {
	Pattern string `json:"pattern" jsonschema_description:"Shell pattern matched against file base names, e.g. '*.txt'."`
	Path    string `json:"path,omitempty" jsonschema_description:"Directory to search from, relative to the safe root (default: the root)."`
}

func FindFiles(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "find_files",
		Description: "Recursively find files whose name matches a pattern. Returns sorted paths relative to the safe root.",
		InputSchema: GenerateSchema[FindFilesInput](),
		ReadOnly:    true,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[FindFilesInput](input)
			if err != nil {
				return "", err
			}
			if err := require("pattern", in.Pattern); err != nil {
				return "", err
			}
			res, err := ws.Find(in.Pattern, in.Path)
			if err != nil {
				return "", err
			}
			b, err := json.Marshal(res)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
