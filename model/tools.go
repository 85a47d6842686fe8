package model

// ToolCall is a tool invocation parsed from model output.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the model-readable outcome of a dispatched ToolCall.
type ToolResult struct {
	Tool    string
	Result  string
	IsError bool
}
