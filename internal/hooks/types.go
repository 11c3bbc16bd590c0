package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"aide/internal/llm"
)

// CommandFunc builds the runnable for a command hook. Config keys:
// command (required), working_dir, env (string map overlaid on the
// environment).
func CommandFunc(config map[string]any) (Func, error) {
	command, _ := config["command"].(string)
	if command == "" {
		return nil, errors.New("command hook requires a command")
	}
	workingDir, _ := config["working_dir"].(string)

	var env []string
	if overlay, ok := config["env"].(map[string]any); ok && len(overlay) > 0 {
		env = os.Environ()
		for k, v := range overlay {
			env = append(env, fmt.Sprintf("%s=%v", k, v))
		}
	}

	return func(ctx context.Context, payload map[string]any) (*Result, error) {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = workingDir
		cmd.Env = env
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		res := &Result{Success: err == nil, Output: stdout.String()}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				res.ExitCode = exitErr.ExitCode()
			} else {
				res.ExitCode = 1
			}
			res.Message = strings.TrimSpace(stderr.String())
			if res.Message == "" {
				res.Message = err.Error()
			}
		}
		return res, nil
	}, nil
}

// PromptFunc builds the runnable for a prompt hook: one short model call
// with a user prompt templated from the event payload. Config keys:
// prompt (required, Go template over the payload), system_prompt.
func PromptFunc(config map[string]any, client llm.Client) (Func, error) {
	promptTpl, _ := config["prompt"].(string)
	if promptTpl == "" {
		return nil, errors.New("prompt hook requires a prompt")
	}
	systemPrompt, _ := config["system_prompt"].(string)

	tpl, err := template.New("hook").Option("missingkey=zero").Parse(promptTpl)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}

	return func(ctx context.Context, payload map[string]any) (*Result, error) {
		var rendered bytes.Buffer
		if err := tpl.Execute(&rendered, payload); err != nil {
			return nil, fmt.Errorf("failed to render prompt: %w", err)
		}

		reply, err := client.Complete(ctx, systemPrompt, rendered.String())
		if err != nil {
			return nil, fmt.Errorf("prompt hook model call failed: %w", err)
		}
		return &Result{Success: true, Output: reply}, nil
	}, nil
}

// AgentRunnerFunc runs a nested agent for an agent hook. Injected by the
// task layer so this package stays below the agent runner.
type AgentRunnerFunc func(ctx context.Context, systemPrompt string, toolNames []string, task string) (string, error)

// AgentFunc builds the runnable for an agent hook: a nested agent with its
// own system prompt and tool subset. Config keys: task (required, Go
// template over the payload), system_prompt, tools (string list).
func AgentFunc(config map[string]any, run AgentRunnerFunc) (Func, error) {
	taskTpl, _ := config["task"].(string)
	if taskTpl == "" {
		return nil, errors.New("agent hook requires a task")
	}
	systemPrompt, _ := config["system_prompt"].(string)

	var toolNames []string
	if raw, ok := config["tools"].([]any); ok {
		for _, t := range raw {
			if name, ok := t.(string); ok {
				toolNames = append(toolNames, name)
			}
		}
	}

	tpl, err := template.New("hook").Option("missingkey=zero").Parse(taskTpl)
	if err != nil {
		return nil, fmt.Errorf("invalid task template: %w", err)
	}

	return func(ctx context.Context, payload map[string]any) (*Result, error) {
		var rendered bytes.Buffer
		if err := tpl.Execute(&rendered, payload); err != nil {
			return nil, fmt.Errorf("failed to render task: %w", err)
		}

		output, err := run(ctx, systemPrompt, toolNames, rendered.String())
		if err != nil {
			return nil, fmt.Errorf("agent hook failed: %w", err)
		}
		return &Result{Success: true, Output: output}, nil
	}, nil
}
