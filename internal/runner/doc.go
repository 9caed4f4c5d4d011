// Package runner is the agent loop. It sends the conversation to the model,
// hands every tool_use block to the dispatcher and feeds the results back
// until the model replies with text only or the step limit is hit.
//
// Results for one assistant turn go back in a single user message, in call
// order, right after the tool_use message that asked for them:
//
//	user(text) -> assistant(tool_use...) -> user(tool_result...) -> assistant(text)
package runner
