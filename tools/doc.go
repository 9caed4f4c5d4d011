// Package tools defines the file tools offered to the model.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - File tools bound to an fsops.Workspace: list_directory, create_file,
//     create_directory, delete_file, delete_directory, rename_file, find_files,
//     read_file, append_content, delete_content, edit_file, analyze_file.
//
// Arguments are decoded strictly: anything other than a JSON object, unknown
// fields, or missing required fields fail with ERR_INVALID_ARGUMENTS.
package tools
