// Package tags extracts tag strings from note text and from precomputed note metadata.
//
// Tags are returned without their leading marker and with their case untouched.
// Nothing in this package fails: a document without tags simply yields an empty slice.
package tags

import (
	"regexp"
	"strings"
)

// Marker is the character that opens a tag in note text.
const Marker = '#'

// Excluded holds every character that ends a tag in live text.
const Excluded = ` !@#$%^&*(),.?":{}|<>`

var liveTagPattern = regexp.MustCompile(`#[^` + regexp.QuoteMeta(Excluded) + `]*`)

// Metadata is the indexed tag information of one document.
type Metadata struct {
	Frontmatter []string
	Inline      []string
}

// ExtractLive scans raw text for marker-prefixed tokens.
// Duplicates are kept in the order they appear.
func ExtractLive(text string) []string {
	matches := liveTagPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{}
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1:]
	}
	return out
}

// FromMetadata returns the tags listed in a document's metadata entry.
// A nil entry contributes no tags.
func FromMetadata(md *Metadata) []string {
	if md == nil {
		return []string{}
	}
	out := make([]string, 0, len(md.Frontmatter)+len(md.Inline))
	for _, t := range md.Frontmatter {
		out = append(out, strings.TrimPrefix(t, string(Marker)))
	}
	for _, t := range md.Inline {
		out = append(out, strings.TrimPrefix(t, string(Marker)))
	}
	return out
}

// Normalize trims whitespace and one leading marker.
func Normalize(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), string(Marker))
}
