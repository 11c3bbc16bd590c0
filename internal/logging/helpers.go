package logging

// Convenience functions for common categories. Info-level helpers log the
// normal operational trail; Debug helpers are for verbose tracing.

// Session logs info to the session category
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// API logs info to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// Agent logs info to the agent category
func Agent(format string, args ...interface{}) {
	Get(CategoryAgent).Info(format, args...)
}

// AgentDebug logs debug to the agent category
func AgentDebug(format string, args ...interface{}) {
	Get(CategoryAgent).Debug(format, args...)
}

// Tools logs info to the tools category
func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Info(format, args...)
}

// ToolsDebug logs debug to the tools category
func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debug(format, args...)
}

// ToolCall logs info to the toolcall category
func ToolCall(format string, args ...interface{}) {
	Get(CategoryToolCall).Info(format, args...)
}

// ToolCallDebug logs debug to the toolcall category
func ToolCallDebug(format string, args ...interface{}) {
	Get(CategoryToolCall).Debug(format, args...)
}

// Hooks logs info to the hooks category
func Hooks(format string, args ...interface{}) {
	Get(CategoryHooks).Info(format, args...)
}

// HooksDebug logs debug to the hooks category
func HooksDebug(format string, args ...interface{}) {
	Get(CategoryHooks).Debug(format, args...)
}

// Context logs info to the context category
func Context(format string, args ...interface{}) {
	Get(CategoryContext).Info(format, args...)
}

// ContextDebug logs debug to the context category
func ContextDebug(format string, args ...interface{}) {
	Get(CategoryContext).Debug(format, args...)
}

// Prompt logs info to the prompt category
func Prompt(format string, args ...interface{}) {
	Get(CategoryPrompt).Info(format, args...)
}

// PromptDebug logs debug to the prompt category
func PromptDebug(format string, args ...interface{}) {
	Get(CategoryPrompt).Debug(format, args...)
}

// Notes logs info to the notes category
func Notes(format string, args ...interface{}) {
	Get(CategoryNotes).Info(format, args...)
}

// NotesDebug logs debug to the notes category
func NotesDebug(format string, args ...interface{}) {
	Get(CategoryNotes).Debug(format, args...)
}
