package tools

import "context"

// ToolExecutor is the contract every assistant capability implements.
//
// The manager only ever talks to this interface, so new capabilities plug in
// without it knowing anything about calendars, search engines, or whatever
// comes next.
type ToolExecutor interface {
	// Definition returns the schema handed to the LLM so it knows the tool's
	// name, purpose, and arguments.
	Definition() Tool

	// Execute runs the tool with the JSON arguments produced by the model.
	// The returned string goes straight back into the conversation as a tool
	// result, so it should be plain text the model can read.
	//
	// Transport and backend failures are returned as errors; conditions the
	// model should reason about ("no upcoming events found") are returned as
	// normal results.
	Execute(ctx context.Context, arguments string) (string, error)
}
