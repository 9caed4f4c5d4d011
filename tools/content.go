package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petasbytes/fsagent/internal/fsops"
)

type AppendContentInput struct {
	Path    string `json:"path" jsonschema_description:"Existing file path relative to the safe root."`
	Content string `json:"content" jsonschema_description:"Text to add; it is written on a new line at the end of the file."`
}

type DeleteContentInput struct {
	Path string `json:"path" jsonschema_description:"Existing file path relative to the safe root."`
	Text string `json:"text" jsonschema_description:"Every line containing this text is removed."`
}

type EditFileInput struct {
	Path   string `json:"path" jsonschema_description:"Existing file path relative to the safe root."`
	OldStr string `json:"old_str" jsonschema_description:"Exact text to replace; must occur at least once."`
	NewStr string `json:"new_str" jsonschema_description:"Replacement text; must differ from old_str."`
}

type AnalyzeFileInput struct {
	Path     string `json:"path" jsonschema_description:"File path relative to the safe root."`
	Keywords string `json:"keywords" jsonschema_description:"Comma-separated keywords to count, case-insensitively."`
}

func AppendContent(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "append_content",
		Description: "Append text on a new line at the end of an existing file inside the safe root.",
		InputSchema: GenerateSchema[AppendContentInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[AppendContentInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			if err := require("content", in.Content); err != nil {
				return "", err
			}
			if err := ws.Append(in.Path, strings.TrimSpace(in.Content)); err != nil {
				return "", err
			}
			return fmt.Sprintf("Content added to '%s'.", in.Path), nil
		},
	}
}

func DeleteContent(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "delete_content",
		Description: "Remove every line containing the given text from a file inside the safe root.",
		InputSchema: GenerateSchema[DeleteContentInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[DeleteContentInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			n, err := ws.DeleteLines(in.Path, in.Text)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Deleted %d line(s) containing '%s' from '%s'.", n, in.Text, in.Path), nil
		},
	}
}

func EditFile(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "edit_file",
		Description: "Replace every occurrence of old_str with new_str in an existing file inside the safe root. Use create_file for new files.",
		InputSchema: GenerateSchema[EditFileInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[EditFileInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			n, err := ws.Replace(in.Path, in.OldStr, in.NewStr)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Replaced %d occurrence(s) in '%s'.", n, in.Path), nil
		},
	}
}

func AnalyzeFile(ws *fsops.Workspace) ToolDefinition {
	return ToolDefinition{
		Name:        "analyze_file",
		Description: "Count case-insensitive occurrences of each keyword in a file inside the safe root.",
		InputSchema: GenerateSchema[AnalyzeFileInput](),
		ReadOnly:    true,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			in, err := Decode[AnalyzeFileInput](input)
			if err != nil {
				return "", err
			}
			if err := require("path", in.Path); err != nil {
				return "", err
			}
			if err := require("keywords", in.Keywords); err != nil {
				return "", err
			}
			counts, err := ws.Analyze(in.Path, strings.Split(in.Keywords, ","))
			if err != nil {
				return "", err
			}
			b, err := json.Marshal(counts)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}
