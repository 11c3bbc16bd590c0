package agent

import (
	"regexp"
	"sort"
	"strings"
)

// Reasoning tags stripped from model output before it reaches the user or
// the persisted history.
var thinkingTagRe = regexp.MustCompile(`</?(thinking|thought)>`)

// RemoveThinkingTags strips <thinking> and <thought> blocks from text.
// Nested balanced pairs are removed whole. Unclosed openers and stray
// closers are preserved as literal text. Fenced code blocks are never
// modified. The function is idempotent.
func RemoveThinkingTags(text string) string {
	if !strings.Contains(text, "<think") && !strings.Contains(text, "<thought") {
		return text
	}

	var out strings.Builder
	for _, segment := range splitFences(text) {
		if segment.fenced {
			out.WriteString(segment.text)
		} else {
			out.WriteString(stripBalanced(segment.text))
		}
	}
	return out.String()
}

type fenceSegment struct {
	text   string
	fenced bool
}

// splitFences partitions text into alternating plain and fenced-code
// segments. An unterminated fence runs to the end of the text.
func splitFences(text string) []fenceSegment {
	var segments []fenceSegment
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open == -1 {
			segments = append(segments, fenceSegment{text: rest})
			return segments
		}
		segments = append(segments, fenceSegment{text: rest[:open]})

		close := strings.Index(rest[open+3:], "```")
		if close == -1 {
			segments = append(segments, fenceSegment{text: rest[open:], fenced: true})
			return segments
		}
		end := open + 3 + close + 3
		segments = append(segments, fenceSegment{text: rest[open:end], fenced: true})
		rest = rest[end:]
	}
}

type span struct{ start, end int }

// stripBalanced removes balanced thinking/thought spans from text. A closer
// matches the nearest open tag of the same name; open tags above it on the
// stack are abandoned and stay literal.
func stripBalanced(text string) string {
	matches := thinkingTagRe.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	type openTag struct {
		name  string
		start int
	}
	var stack []openTag
	var removed []span

	for _, m := range matches {
		tag := text[m[0]:m[1]]
		name := text[m[2]:m[3]]
		if !strings.HasPrefix(tag, "</") {
			stack = append(stack, openTag{name: name, start: m[0]})
			continue
		}

		matched := -1
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].name == name {
				matched = i
				break
			}
		}
		if matched == -1 {
			continue
		}
		removed = append(removed, span{start: stack[matched].start, end: m[1]})
		stack = stack[:matched]
	}

	if len(removed) == 0 {
		return text
	}

	sort.Slice(removed, func(i, j int) bool { return removed[i].start < removed[j].start })

	var out strings.Builder
	pos := 0
	for _, s := range removed {
		if s.start < pos {
			continue
		}
		out.WriteString(text[pos:s.start])
		pos = s.end
	}
	out.WriteString(text[pos:])
	return out.String()
}
