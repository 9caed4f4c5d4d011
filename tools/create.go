package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type CreateFileInput struct {
	Path    string `json:"path" jsonschema_description:"New file path relative to the safe root. Its directory must already exist; use create_directory first."`
	Content string `json:"content,omitempty" jsonschema_description:"Optional initial content."`
}

type CreateDirectoryInput struct {
	Path string `json:"path" jsonschema_description:"New directory path relative to the safe root."`
}

func CreateFile(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "create_file",
		Description: "Create a new file inside the safe root. Fails if anything already exists at the path or its parent directory is missing; existing files are never overwritten.",
		InputSchema: GenerateSchema[CreateFileInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[CreateFileInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			if err := ws.CreateFile(in.Path, in.Content); err != nil {
				return "", err
			}
			return fmt.Sprintf("File '%s' created.", in.Path), nil
		},
	}
}

func CreateDirectory(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "create_directory",
		Description: "Create a directory (and any missing parents) inside the safe root. Fails if the path already exists.",
		InputSchema: GenerateSchema[CreateDirectoryInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[CreateDirectoryInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			if err := ws.CreateDir(in.Path); err != nil {
				return "", err
			}
			return fmt.Sprintf("Directory '%s' created.", in.Path), nil
		},
	}
}
