package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInline(t *testing.T) {
	testCases := []struct {
		input       string
		expected    []string
		description string
	}{
		{"", nil, "empty note"},
		{"#alpha and #beta", []string{"alpha", "beta"}, "paragraph tags"},
		{"# Heading #inhead", []string{"inhead"}, "heading text is scanned"},
		{"email me@host#frag", nil, "marker glued to a word"},
		{"issue #123 and #v2", []string{"v2"}, "numeric tags skipped"},
		{"`#code` then #real", []string{"real"}, "code span ignored"},
		{"```\n#fenced\n```\n\n#after", []string{"after"}, "fenced block ignored"},
		{"    #indented code\n", nil, "indented code ignored"},
		{"- item #one\n- item #two", []string{"one", "two"}, "list items"},
		{"#snake_case_tag end", []string{"snake_case_tag"}, "underscores survive emphasis parsing"},
		{"*#emph* text", []string{"emph"}, "emphasised tag"},
		{"[link](http://x/#anchor) #t", []string{"t"}, "link destinations ignored"},
		{"line one #a\nline two #b", []string{"a", "b"}, "soft line breaks"},
		{"nested/#x #area/sub", []string{"x", "area/sub"}, "hierarchical tags"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			md := Parse([]byte(tc.input))
			assert.Equal(t, tc.expected, md.Inline)
		})
	}
}

func TestParseFrontmatter(t *testing.T) {
	testCases := []struct {
		input       string
		expected    []string
		description string
	}{
		{"---\ntags: [a, b]\n---\n", []string{"a", "b"}, "flow list"},
		{"---\ntags:\n  - a\n  - '#b'\n---\nbody", []string{"a", "b"}, "block list with marker"},
		{"---\ntags: a, b c\n---\n", []string{"a", "b", "c"}, "string list"},
		{"---\ntag: single\n---\n", []string{"single"}, "singular key"},
		{"---\ntags: 2024\n---\n", []string{"2024"}, "scalar"},
		{"---\ntitle: x\n---\n", nil, "no tags key"},
		{"---\ntags: [a\n---\n", nil, "malformed yaml"},
		{"\xef\xbb\xbf---\r\ntags: [bom]\r\n---\r\n", []string{"bom"}, "bom and crlf"},
		{"---\ntags: [a]\n...\n", []string{"a"}, "dot terminator"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			md := Parse([]byte(tc.input))
			assert.Equal(t, tc.expected, md.Frontmatter)
		})
	}
}

func TestParseUnterminatedFrontmatterIsBody(t *testing.T) {
	md := Parse([]byte("---\ntags: [a]\n#body"))
	assert.Nil(t, md.Frontmatter)
	assert.Equal(t, []string{"body"}, md.Inline)
}

func TestParseBodyAfterFrontmatter(t *testing.T) {
	md := Parse([]byte("---\ntags: [front]\n---\nText #inline\n"))
	assert.Equal(t, []string{"front"}, md.Frontmatter)
	assert.Equal(t, []string{"inline"}, md.Inline)
}
