package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type RenameFileInput struct {
	From string `json:"from" jsonschema_description:"Existing path relative to the safe root."`
	To   string `json:"to" jsonschema_description:"New path relative to the safe root. Must not exist yet."`
}

func RenameFile(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "rename_file",
		Description: "Rename or move a file or directory within the safe root. Never overwrites: fails if the destination exists.",
		InputSchema: GenerateSchema[RenameFileInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[RenameFileInput](input)
			if err != nil {
				return "", err
			}
			if err := require("from", in.From); err != nil {
				return "", err
			}
			if err := require("to", in.To); err != nil {
				return "", err
			}
			if err := ws.Rename(in.From, in.To); err != nil {
				return "", err
			}
			return fmt.Sprintf("Renamed '%s' to '%s'.", in.From, in.To), nil
		},
	}
}
