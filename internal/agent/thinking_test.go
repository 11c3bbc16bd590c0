package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveThinkingTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			"no tags",
			"plain answer",
			"plain answer",
		},
		{
			"simple block",
			"<thinking>let me see</thinking>The answer is 4.",
			"The answer is 4.",
		},
		{
			"thought variant",
			"before <thought>hmm</thought> after",
			"before  after",
		},
		{
			"nested balanced removed whole",
			"a<thinking>outer<thinking>inner</thinking>more</thinking>b",
			"ab",
		},
		{
			"unclosed opener preserved",
			"a<thinking>never closed b",
			"a<thinking>never closed b",
		},
		{
			"stray closer preserved",
			"a</thinking>b",
			"a</thinking>b",
		},
		{
			"mismatched names stay literal",
			"<thinking>x</thought>y",
			"<thinking>x</thought>y",
		},
		{
			"abandoned opener inside the removed span goes with it",
			"<thinking>a<thought>b</thinking>c",
			"c",
		},
		{
			"abandoned opener outside the removed span stays literal",
			"<thought>a<thinking>b</thinking>c",
			"<thought>ac",
		},
		{
			"fenced code untouched",
			"use this:\n```\n<thinking>not stripped</thinking>\n```\ndone",
			"use this:\n```\n<thinking>not stripped</thinking>\n```\ndone",
		},
		{
			"stripped outside fence only",
			"<thinking>gone</thinking>keep\n```\n<thinking>kept</thinking>\n```",
			"keep\n```\n<thinking>kept</thinking>\n```",
		},
		{
			"unterminated fence runs to end",
			"<thinking>gone</thinking>text\n```\n<thinking>kept",
			"text\n```\n<thinking>kept",
		},
		{
			"multiple blocks",
			"<thinking>a</thinking>x<thinking>b</thinking>y",
			"xy",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RemoveThinkingTags(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, RemoveThinkingTags(got), "must be idempotent")
		})
	}
}
