package hooks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"aide/internal/logging"
)

// lookupField resolves a dotted field path inside the payload. Missing
// segments return ("", false).
func lookupField(payload map[string]any, field string) (string, bool) {
	var current any = payload
	for _, segment := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[segment]
		if !ok {
			return "", false
		}
	}
	switch v := current.(type) {
	case string:
		return v, true
	case nil:
		return "", false
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// matches evaluates one matcher against the payload. Unknown operators and
// invalid patterns never match.
func (m Matcher) matches(payload map[string]any) bool {
	actual, ok := lookupField(payload, m.Field)
	if !ok {
		return false
	}

	expected := m.Value
	if !m.CaseSensitive {
		actual = strings.ToLower(actual)
		expected = strings.ToLower(expected)
	}

	switch m.Operator {
	case "equals":
		return actual == expected
	case "contains":
		return strings.Contains(actual, expected)
	case "starts_with":
		return strings.HasPrefix(actual, expected)
	case "ends_with":
		return strings.HasSuffix(actual, expected)
	case "regex":
		re, err := regexp.Compile(expected)
		if err != nil {
			logging.HooksDebug("Invalid regex matcher %q: %v", m.Value, err)
			return false
		}
		return re.MatchString(actual)
	case "glob":
		hit, err := doublestar.Match(expected, actual)
		if err != nil {
			logging.HooksDebug("Invalid glob matcher %q: %v", m.Value, err)
			return false
		}
		return hit
	default:
		logging.HooksDebug("Unknown matcher operator %q", m.Operator)
		return false
	}
}

// matchesAll reports whether every matcher passes. A hook with no matchers
// always runs.
func matchesAll(matchers []Matcher, payload map[string]any) bool {
	for _, m := range matchers {
		if !m.matches(payload) {
			return false
		}
	}
	return true
}
