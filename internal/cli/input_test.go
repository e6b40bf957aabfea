package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bastiangx/tagserve/pkg/suggest"
	"github.com/bastiangx/tagserve/pkg/vault"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) (*InputHandler, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	notes := map[string]string{
		"today.md": "#project",
		"a.md":     "#project #billing",
		"b.md":     "#project #planning",
		"c.md":     "#misc",
	}
	for name, body := range notes {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0644))
	}
	v, err := vault.Open(vault.Options{Root: root})
	require.NoError(t, err)

	engine := suggest.New(v, suggest.WithLogger(log.New(io.Discard)))
	h := NewInputHandler(engine, v, "today.md", "#project", '@', 5, 60)

	var buf bytes.Buffer
	h.out = log.New(&buf)
	return h, &buf
}

func TestHandleInputRanksTags(t *testing.T) {
	h, buf := newHandler(t)
	h.handleInput(context.Background(), "meeting about @p")

	out := buf.String()
	assert.Contains(t, out, "Found 1 suggestions for query 'p'")
	assert.Contains(t, out, "planning")
	assert.NotContains(t, out, "billing")
	assert.Contains(t, out, "meeting about #planning ")
}

func TestHandleInputWithoutTrigger(t *testing.T) {
	h, buf := newHandler(t)
	h.handleInput(context.Background(), "plain text")
	assert.Contains(t, buf.String(), "No trigger")
}

func TestHandleInputQueryTooLong(t *testing.T) {
	h, buf := newHandler(t)
	h.maxQuery = 2
	h.handleInput(context.Background(), "@abc")
	assert.Contains(t, buf.String(), "Query too long")
}

func TestListTags(t *testing.T) {
	h, buf := newHandler(t)
	h.handleInput(context.Background(), ":tags pro")
	assert.Contains(t, buf.String(), "project")
	assert.Contains(t, buf.String(), "3")

	buf.Reset()
	h.handleInput(context.Background(), ":tags zzz")
	assert.Contains(t, buf.String(), "No tags start with 'zzz'")
}

func TestRunStopsAtEOF(t *testing.T) {
	h, buf := newHandler(t)
	err := h.run(context.Background(), strings.NewReader("@b\n\n:tags"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "billing")
	assert.Contains(t, buf.String(), "Known tags for ''")
}

func TestRunStopsWhenCancelled(t *testing.T) {
	h, buf := newHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.run(ctx, strings.NewReader("@b\n")))
	assert.NotContains(t, buf.String(), "billing")
}
