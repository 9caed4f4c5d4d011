package tools

import "github.com/petasbytes/fsagent/internal/fsops"

// Registry returns every tool bound to ws in a stable order.
func Registry(ws *fsops.Workspace) []ToolDefinition {
	return []ToolDefinition{
		ListDirectory(ws),
		CreateFile(ws),
		CreateDirectory(ws),
		DeleteFile(ws),
		DeleteDirectory(ws),
		RenameFile(ws),
		FindFiles(ws),
		ReadFile(ws),
		AppendContent(ws),
		DeleteContent(ws),
		EditFile(ws),
		AnalyzeFile(ws),
	}
}

// Lookup finds a definition by name.
func Lookup(defs []ToolDefinition, name string) (ToolDefinition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return ToolDefinition{}, false
}
