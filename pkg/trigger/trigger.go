// Package trigger detects a tag completion trigger in the text before the
// cursor and builds the text that replaces it once a tag is chosen.
package trigger

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bastiangx/tagserve/pkg/tags"
)

// DefaultMarker opens a completion in the editor.
const DefaultMarker = '@'

// Context is an active trigger. Start and End are rune columns in the line;
// Start points at the marker and End at the cursor.
type Context struct {
	Query string
	Start int
	End   int
}

// Detect checks whether before (the line up to the cursor) ends with marker
// followed by zero or more word characters.
func Detect(before string, marker rune) (Context, bool) {
	var at int
	if marker < utf8.RuneSelf {
		at = strings.LastIndexByte(before, byte(marker))
	} else {
		at = strings.LastIndex(before, string(marker))
	}
	if at < 0 {
		return Context{}, false
	}

	query := before[at+utf8.RuneLen(marker):]
	for _, r := range query {
		if !isWord(r) {
			return Context{}, false
		}
	}

	start := utf8.RuneCountInString(before[:at])
	return Context{
		Query: query,
		Start: start,
		End:   start + 1 + utf8.RuneCountInString(query),
	}, true
}

// Replacement is the text written over a trigger span when tag is selected.
func Replacement(tag string) string {
	return string(tags.Marker) + tag + " "
}

// Apply replaces the trigger span of line with the replacement for tag.
// Out of range spans leave the line untouched.
func Apply(line string, ctx Context, tag string) string {
	runes := []rune(line)
	if ctx.Start < 0 || ctx.End < ctx.Start || ctx.End > len(runes) {
		return line
	}
	return string(runes[:ctx.Start]) + Replacement(tag) + string(runes[ctx.End:])
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
