package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type DeletePathInput struct {
	Path string `json:"path" jsonschema_description:"Path relative to the safe root."`
}

func DeleteFile(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "delete_file",
		Description: "Delete a file inside the safe root. Directories are rejected; a symlink is removed without touching its target.",
		InputSchema: GenerateSchema[DeletePathInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[DeletePathInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			if err := ws.DeleteFile(in.Path); err != nil {
				return "", err
			}
			return fmt.Sprintf("File '%s' deleted.", in.Path), nil
		},
	}
}

func DeleteDirectory(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "delete_directory",
		Description: "Delete an empty directory inside the safe root. Non-empty directories and the safe root itself are rejected.",
		InputSchema: GenerateSchema[DeletePathInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[DeletePathInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			if err := ws.DeleteDir(in.Path); err != nil {
				return "", err
			}
			return fmt.Sprintf("Directory '%s' deleted.", in.Path), nil
		},
	}
}
