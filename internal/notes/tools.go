package notes

import (
	"context"
	"fmt"
	"os"

	"aide/internal/tools"
)

// contextKey resolves the key for contextual-note tools: an explicit path
// argument wins, otherwise the current working directory.
func contextKey(args map[string]any) (string, error) {
	if path := tools.StringArg(args, "path"); path != "" {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return cwd, nil
}

// ReadLongTermNoteTool returns the read_long_term_note tool.
func ReadLongTermNoteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "read_long_term_note",
		Description: "Read the global long-term note containing durable facts and preferences that apply everywhere.",
		Schema:      tools.ToolSchema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			content, err := store.ReadGlobal()
			if err != nil {
				return "", err
			}
			if content == "" {
				return "The long-term note is empty.", nil
			}
			return content, nil
		},
	}
}

// WriteLongTermNoteTool returns the write_long_term_note tool.
func WriteLongTermNoteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "write_long_term_note",
		Description: "Replace the global long-term note. Keep it short and factual; the previous content is overwritten.",
		Schema: tools.ToolSchema{
			Required: []string{"content"},
			Properties: map[string]tools.Property{
				"content": {Type: "string", Description: "New note content"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			if err := store.WriteGlobal(tools.StringArg(args, "content")); err != nil {
				return "", err
			}
			return "Successfully updated the long-term note", nil
		},
	}
}

// ReadContextualNoteTool returns the read_contextual_note tool.
func ReadContextualNoteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "read_contextual_note",
		Description: "Read the note attached to a directory (default: the current working directory).",
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "Directory the note is attached to"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			key, err := contextKey(args)
			if err != nil {
				return "", err
			}
			content, err := store.Read(key)
			if err != nil {
				return "", err
			}
			if content == "" {
				return fmt.Sprintf("No contextual note for %s.", key), nil
			}
			return content, nil
		},
	}
}

// WriteContextualNoteTool returns the write_contextual_note tool.
func WriteContextualNoteTool(store *Store) *tools.Tool {
	return &tools.Tool{
		Name:        "write_contextual_note",
		Description: "Replace the note attached to a directory (default: the current working directory). The previous content is overwritten.",
		Schema: tools.ToolSchema{
			Required: []string{"content"},
			Properties: map[string]tools.Property{
				"content": {Type: "string", Description: "New note content"},
				"path":    {Type: "string", Description: "Directory the note is attached to"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			key, err := contextKey(args)
			if err != nil {
				return "", err
			}
			if err := store.Write(key, tools.StringArg(args, "content")); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully updated the contextual note for %s", key), nil
		},
	}
}

// RegisterAll adds every note tool to the registry.
func RegisterAll(r *tools.Registry, store *Store) {
	r.MustRegister(ReadLongTermNoteTool(store))
	r.MustRegister(WriteLongTermNoteTool(store))
	r.MustRegister(ReadContextualNoteTool(store))
	r.MustRegister(WriteContextualNoteTool(store))
}
