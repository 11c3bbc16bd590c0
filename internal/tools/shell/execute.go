// Package shell provides the run_shell_command tool.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"aide/internal/logging"
	"aide/internal/tools"
)

// defaultTimeoutSeconds bounds a command when the model passes no timeout.
const defaultTimeoutSeconds = 30

// result is the structured return the model receives.
type result struct {
	ReturnCode int    `json:"return_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// RunShellCommandTool returns the run_shell_command tool. Command failures
// and timeouts are reported in the structured result, not as tool errors,
// so the model can read the exit code and react.
func RunShellCommandTool() *tools.Tool {
	return &tools.Tool{
		Name:        "run_shell_command",
		Description: "Run a shell command and return {return_code, stdout, stderr} as JSON. A timeout (seconds, default 30) kills the command and yields return_code 124.",
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {Type: "string", Description: "Shell command to run"},
				"timeout": {Type: "integer", Description: "Timeout in seconds", Default: defaultTimeoutSeconds},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command := tools.StringArg(args, "command")
			timeout := tools.IntArg(args, "timeout", defaultTimeoutSeconds)
			if timeout <= 0 {
				timeout = defaultTimeoutSeconds
			}

			ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
			defer cancel()

			logging.ToolsDebug("Running shell command (timeout=%ds): %s", timeout, command)

			var stdout, stderr bytes.Buffer
			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			res := result{Stdout: stdout.String(), Stderr: stderr.String()}

			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				res.ReturnCode = 124
				res.Stderr = fmt.Sprintf("Command timed out after %d seconds", timeout)
			case err != nil:
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					res.ReturnCode = exitErr.ExitCode()
				} else {
					res.ReturnCode = 1
					res.Stderr = err.Error()
				}
			}

			out, err := json.Marshal(res)
			if err != nil {
				return "", fmt.Errorf("failed to encode result: %w", err)
			}
			return string(out), nil
		},
	}
}

// RegisterAll adds the shell tools to the registry.
func RegisterAll(r *tools.Registry) {
	r.MustRegister(RunShellCommandTool())
}
