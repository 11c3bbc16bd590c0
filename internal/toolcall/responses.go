package toolcall

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"aide/internal/logging"
	"aide/internal/ux"
)

// EditResponseHandler interprets an "edit" answer on replace_in_file calls.
// It writes old_text and new_text to temp files, runs the configured diff
// editor command (with {old} and {new} placeholders), reads the edited
// new_text back, and approves the call with overridden arguments.
func EditResponseHandler(commandTpl string) ResponseHandler {
	return func(ctx context.Context, ui ux.UI, call *Call, answer string) Decision {
		if strings.ToLower(strings.TrimSpace(answer)) != "edit" {
			return nil
		}
		if call.Name != "replace_in_file" || call.Args == nil {
			return nil
		}
		if commandTpl == "" {
			ui.Print(ux.Error("No diff editor configured (set DIFF_EDIT_COMMAND_TPL)"))
			return Denied{Reason: "User wanted to edit the change but no diff editor is configured"}
		}

		oldText, _ := call.Args["old_text"].(string)
		newText, _ := call.Args["new_text"].(string)

		oldFile, err := writeTemp("old-*.txt", oldText)
		if err != nil {
			return Denied{Reason: fmt.Sprintf("Failed to prepare edit session: %v", err)}
		}
		defer os.Remove(oldFile)

		newFile, err := writeTemp("new-*.txt", newText)
		if err != nil {
			return Denied{Reason: fmt.Sprintf("Failed to prepare edit session: %v", err)}
		}
		defer os.Remove(newFile)

		command := strings.ReplaceAll(commandTpl, "{old}", oldFile)
		command = strings.ReplaceAll(command, "{new}", newFile)
		logging.ToolCallDebug("Launching diff editor: %s", command)

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return Denied{Reason: fmt.Sprintf("Diff editor failed: %v", err)}
		}

		edited, err := os.ReadFile(newFile)
		if err != nil {
			return Denied{Reason: fmt.Sprintf("Failed to read edited text: %v", err)}
		}

		override := make(map[string]any, len(call.Args))
		for k, v := range call.Args {
			override[k] = v
		}
		override["new_text"] = string(edited)

		ui.Print(ux.Success("Applying user-edited replacement"))
		return Approved{OverrideArgs: override}
	}
}

func writeTemp(pattern, content string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
