package vault

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/bastiangx/tagserve/pkg/tags"
	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// inlineTagPattern matches a marker that is not glued to a preceding word.
var inlineTagPattern = regexp.MustCompile(`(^|[^\p{L}\p{N}_])#([^\s!@#$%^&*(),.?":{}|<>\[\]]+)`)

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func getMarkdownParser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New()
	})
	return markdownParser
}

// Parse builds the metadata entry of a note: tags declared in its YAML
// frontmatter and tags written inline in its body. Tags inside code spans,
// code blocks and raw HTML are not tags.
func Parse(source []byte) *tags.Metadata {
	front, body := splitFrontmatter(source)
	md := &tags.Metadata{}
	if front != nil {
		fm, err := frontmatterTags(front)
		if err != nil {
			log.Debugf("Ignoring malformed frontmatter: %v", err)
		}
		md.Frontmatter = fm
	}
	md.Inline = inlineTags(body)
	return md
}

// splitFrontmatter separates a leading "---" fenced YAML block from the body.
func splitFrontmatter(source []byte) (front, body []byte) {
	source = bytes.TrimPrefix(source, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(source, []byte("---\n")) && !bytes.HasPrefix(source, []byte("---\r\n")) {
		return nil, source
	}
	rest := source[bytes.IndexByte(source, '\n')+1:]
	offset := 0
	for offset <= len(rest) {
		end := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest)
		if end < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+end]
			next = offset + end + 1
		}
		trimmed := bytes.TrimRight(line, "\r \t")
		if bytes.Equal(trimmed, []byte("---")) || bytes.Equal(trimmed, []byte("...")) {
			return rest[:offset], rest[next:]
		}
		if end < 0 {
			break
		}
		offset = next
	}
	return nil, source
}

func frontmatterTags(front []byte) ([]string, error) {
	var fields map[string]any
	if err := yaml.Unmarshal(front, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode frontmatter: %w", err)
	}

	var out []string
	for _, key := range []string{"tags", "tag"} {
		switch v := fields[key].(type) {
		case string:
			for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
				out = appendTag(out, f)
			}
		case []any:
			for _, item := range v {
				if item == nil {
					continue
				}
				out = appendTag(out, fmt.Sprint(item))
			}
		case nil:
		default:
			out = appendTag(out, fmt.Sprint(v))
		}
	}
	return out, nil
}

func appendTag(out []string, raw string) []string {
	if tag := tags.Normalize(raw); tag != "" {
		out = append(out, tag)
	}
	return out
}

// inlineTags walks the markdown AST and scans the text of each block.
func inlineTags(body []byte) []string {
	doc := getMarkdownParser().Parser().Parse(text.NewReader(body))

	var (
		out []string
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		for _, m := range inlineTagPattern.FindAllStringSubmatch(buf.String(), -1) {
			if isNumeric(m[2]) {
				continue
			}
			out = append(out, m[2])
		}
		buf.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindCodeSpan, ast.KindRawHTML:
			if entering {
				buf.WriteByte(' ')
			}
			return ast.WalkSkipChildren, nil
		case ast.KindCodeBlock, ast.KindFencedCodeBlock, ast.KindHTMLBlock:
			return ast.WalkSkipChildren, nil
		case ast.KindText:
			if entering {
				t := n.(*ast.Text)
				buf.Write(t.Segment.Value(body))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock && !entering {
			flush()
		}
		return ast.WalkContinue, nil
	})
	flush()
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
