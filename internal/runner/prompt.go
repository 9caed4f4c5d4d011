package runner

import (
	"fmt"
	"strings"

	"github.com/petasbytes/fsagent/tools"
)

// SystemPrompt tells the model where it works and what it may call.
func SystemPrompt(root string, defs []tools.ToolDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You operate on files inside a single working directory: %s.\n", root)
	b.WriteString("Every path you pass to a tool is relative to that directory. ")
	b.WriteString("Paths that leave it are rejected, so never use absolute paths or '..' to get out.\n\n")
	b.WriteString("Available tools:\n")
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	b.WriteString("\nBreak the request into steps and call one tool at a time when a step depends on the previous result. ")
	b.WriteString("If a tool fails, read the error code and adjust the plan instead of repeating the same call. ")
	b.WriteString("When the request is done, reply with a short summary of what changed.")
	return b.String()
}
