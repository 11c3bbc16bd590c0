package toolcall

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// AllowToolPolicy auto-approves calls for a named tool. With no patterns,
// a name match alone approves. With patterns, every pattern key present in
// the call arguments must have a value matching its regex; a single
// non-matching value passes the call through to the next policy.
func AllowToolPolicy(toolName string, patterns map[string]string) Policy {
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for key, pattern := range patterns {
		compiled[key] = regexp.MustCompile(pattern)
	}
	return func(call *Call) Decision {
		if call.Name != toolName {
			return nil
		}
		if len(compiled) == 0 {
			return Approved{}
		}
		if call.Args == nil {
			return nil
		}
		for key, re := range compiled {
			value, ok := call.Args[key]
			if !ok {
				continue
			}
			if !re.MatchString(argText(value)) {
				return nil
			}
		}
		return Approved{}
	}
}

// argText renders one argument value for pattern matching. Strings are used
// as-is; everything else gets its JSON form.
func argText(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if data, err := json.Marshal(value); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", value)
}

// pathArgKeys are argument names treated as filesystem paths when deciding
// whether a call stays inside an allowed root.
var pathArgKeys = []string{"path", "directory"}

// SafePathPolicy auto-approves file tools whose target path resolves inside
// one of the allowed roots (typically the working directory and the journal
// directory). Calls without a path argument pass through.
func SafePathPolicy(roots ...string) Policy {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if root == "" {
			continue
		}
		if abs, err := filepath.Abs(root); err == nil {
			cleaned = append(cleaned, abs)
		}
	}

	return func(call *Call) Decision {
		if call.Args == nil {
			return nil
		}
		for _, key := range pathArgKeys {
			target, ok := call.Args[key].(string)
			if !ok || target == "" {
				continue
			}
			abs, err := filepath.Abs(target)
			if err != nil {
				return nil
			}
			for _, root := range cleaned {
				if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
					return Approved{}
				}
			}
			return nil
		}
		return nil
	}
}

// EditValidationPolicy rejects replace_in_file calls that cannot possibly
// succeed, with a reason the model can act on. Valid edits pass through to
// the approval prompt.
func EditValidationPolicy() Policy {
	return func(call *Call) Decision {
		if call.Name != "replace_in_file" || call.Args == nil {
			return nil
		}
		// The batch form is validated by the tool itself.
		if _, ok := call.Args["replacements"]; ok {
			return nil
		}

		path, _ := call.Args["path"].(string)
		oldText, _ := call.Args["old_text"].(string)
		newText, _ := call.Args["new_text"].(string)

		if oldText != "" && oldText == newText {
			return Denied{Reason: "old_text and new_text are identical, nothing to change"}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return Denied{Reason: fmt.Sprintf("File not found: %s", path)}
		}
		if oldText != "" && !strings.Contains(string(data), oldText) {
			return Denied{Reason: fmt.Sprintf(
				"Old text not found in %s. Please read the file first and retry with text that matches exactly.", path)}
		}
		return nil
	}
}
