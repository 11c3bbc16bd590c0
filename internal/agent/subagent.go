package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"aide/internal/conversation"
	"aide/internal/logging"
	"aide/internal/tools"
	"aide/internal/ux"
)

// SubAgentDefinition describes a delegatable specialist.
type SubAgentDefinition struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	SystemPrompt string   `yaml:"system_prompt"`
	Tools        []string `yaml:"tools"`
}

// SubAgentRegistry holds sub-agent definitions keyed by name.
type SubAgentRegistry struct {
	mu   sync.RWMutex
	defs map[string]*SubAgentDefinition
}

// NewSubAgentRegistry creates an empty registry.
func NewSubAgentRegistry() *SubAgentRegistry {
	return &SubAgentRegistry{defs: make(map[string]*SubAgentDefinition)}
}

// Register adds or replaces a definition.
func (r *SubAgentRegistry) Register(def *SubAgentDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("sub-agent name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	logging.AgentDebug("Registered sub-agent %s", def.Name)
	return nil
}

// Get returns the named definition, or nil.
func (r *SubAgentRegistry) Get(name string) *SubAgentDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[name]
}

// Names lists registered sub-agents, sorted.
func (r *SubAgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDefinitions reads every YAML sub-agent definition in dir. A missing
// directory is not an error.
func (r *SubAgentRegistry) LoadDefinitions(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sub-agent directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read sub-agent file %s: %w", name, err)
		}
		var def SubAgentDefinition
		if err := yaml.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("invalid sub-agent file %s: %w", name, err)
		}
		if err := r.Register(&def); err != nil {
			return fmt.Errorf("sub-agent file %s: %w", name, err)
		}
	}
	return nil
}

// SubAgentHistories isolates nested conversations per parent conversation
// and sub-agent name.
type SubAgentHistories interface {
	LoadSubAgent(parent, agent string) (*conversation.History, error)
	SaveSubAgent(parent, agent string, h *conversation.History) error
}

// DelegateToAgentTool builds the delegate_to_agent tool. The nested agent
// shares the parent's model client but runs with its own system prompt, a
// tool subset, an isolated history, and an indented UI so its output nests
// under the parent's. Failures come back as tool result text, never as an
// error into the parent loop.
func DelegateToAgentTool(
	registry *SubAgentRegistry,
	runner *Runner,
	parent *Agent,
	parentConversation string,
	histories SubAgentHistories,
	ui ux.UI,
) *tools.Tool {
	describe := func() string {
		var b strings.Builder
		b.WriteString("Delegate a task to a specialist sub-agent and return its final answer. Available sub-agents:\n")
		for _, name := range registry.Names() {
			def := registry.Get(name)
			fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
		}
		return b.String()
	}

	return &tools.Tool{
		Name:        "delegate_to_agent",
		Description: describe(),
		Schema: tools.ToolSchema{
			Required: []string{"name", "task"},
			Properties: map[string]tools.Property{
				"name":    {Type: "string", Description: "Sub-agent to delegate to"},
				"task":    {Type: "string", Description: "Task for the sub-agent"},
				"context": {Type: "string", Description: "Extra context passed along with the task"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			name := tools.StringArg(args, "name")
			task := tools.StringArg(args, "task")

			def := registry.Get(name)
			if def == nil {
				return fmt.Sprintf("Error executing sub-agent '%s': no such sub-agent (available: %s)",
					name, strings.Join(registry.Names(), ", ")), nil
			}

			if extra := tools.StringArg(args, "context"); extra != "" {
				task = task + "\n\nContext:\n" + extra
			}

			history, err := histories.LoadSubAgent(parentConversation, name)
			if err != nil {
				return fmt.Sprintf("Error executing sub-agent '%s': %v", name, err), nil
			}

			child := &Agent{
				Name:         def.Name,
				SystemPrompt: def.SystemPrompt,
				Client:       parent.Client,
				Registry:     parent.Registry.Subset(def.Tools),
			}

			logging.Agent("Delegating to sub-agent %s", name)
			nested := ux.NewIndentedUI(ui)
			output, newHistory, err := runner.Run(ctx, child, task, history.Messages, nested)
			if err != nil {
				return fmt.Sprintf("Error executing sub-agent '%s': %v", name, err), nil
			}

			history.Messages = newHistory
			if err := histories.SaveSubAgent(parentConversation, name, history); err != nil {
				logging.Agent("Failed to persist sub-agent %s history: %v", name, err)
			}

			return fmt.Sprintf("Sub-agent '%s' completed the task:\n%s", name, output), nil
		},
	}
}
