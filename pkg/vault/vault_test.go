package vault

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, root, id, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(id))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestVault(t *testing.T) (*Vault, string) {
	t.Helper()
	root := t.TempDir()
	writeNote(t, root, "a.md", "---\ntags: [project, urgent]\n---\nBody with #billing.\n")
	writeNote(t, root, "sub/b.md", "Only #project here")
	writeNote(t, root, "sub/c.MD", "#misc")
	writeNote(t, root, "notes.txt", "#ignored-extension")
	writeNote(t, root, ".obsidian/workspace.md", "#ignored-dir")

	v, err := Open(Options{Root: root})
	require.NoError(t, err)
	return v, root
}

func TestOpen(t *testing.T) {
	_, err := Open(Options{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.md")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Open(Options{Root: file})
	assert.Error(t, err)

	v, err := Open(Options{Root: t.TempDir(), Extensions: []string{"markdown"}})
	require.NoError(t, err)
	assert.Equal(t, []string{".markdown"}, v.extensions)
}

func TestDocuments(t *testing.T) {
	v, _ := newTestVault(t)
	docs, err := v.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "sub/b.md", "sub/c.MD"}, docs)
}

func TestDocumentsCancelled(t *testing.T) {
	v, _ := newTestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.Documents(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTagsFor(t *testing.T) {
	v, _ := newTestVault(t)
	ctx := context.Background()

	got, err := v.TagsFor(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"project", "urgent", "billing"}, got)

	got, err = v.TagsFor(ctx, "sub/b.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"project"}, got)

	assert.Equal(t, 2, v.Cached())
}

func TestTagsForMissingDocument(t *testing.T) {
	v, _ := newTestVault(t)
	got, err := v.TagsFor(context.Background(), "gone.md")
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, v.Cached())
}

func TestInvalidateRereads(t *testing.T) {
	v, root := newTestVault(t)
	ctx := context.Background()

	_, err := v.TagsFor(ctx, "sub/b.md")
	require.NoError(t, err)

	writeNote(t, root, "sub/b.md", "#changed")
	got, _ := v.TagsFor(ctx, "sub/b.md")
	assert.Equal(t, []string{"project"}, got, "served from the index until invalidated")

	v.Invalidate("sub/b.md")
	got, _ = v.TagsFor(ctx, "sub/b.md")
	assert.Equal(t, []string{"changed"}, got)

	v.Reset()
	assert.Equal(t, 0, v.Cached())
}

func TestInvalidateDuringReadIsNotCached(t *testing.T) {
	v, root := newTestVault(t)
	ctx := context.Background()

	// The note changes and is invalidated after its old bytes were read.
	v.readFile = func(name string) ([]byte, error) {
		data, err := os.ReadFile(name)
		writeNote(t, root, "sub/b.md", "#changed")
		v.Invalidate("sub/b.md")
		return data, err
	}
	got, err := v.TagsFor(ctx, "sub/b.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"project"}, got)
	assert.Equal(t, 0, v.Cached())

	v.readFile = os.ReadFile
	got, err = v.TagsFor(ctx, "sub/b.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"changed"}, got)
	assert.Equal(t, 1, v.Cached())
}

func TestResetDuringReadIsNotCached(t *testing.T) {
	v, _ := newTestVault(t)
	v.readFile = func(name string) ([]byte, error) {
		data, err := os.ReadFile(name)
		v.Reset()
		return data, err
	}
	_, err := v.TagsFor(context.Background(), "a.md")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cached())
}

func TestIndex(t *testing.T) {
	v, _ := newTestVault(t)
	ti, err := v.Index(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, ti.Len())
	assert.Equal(t, 2, ti.Count("project"))
	assert.Equal(t, 0, ti.Count("ignored-dir"))

	assert.Equal(t, []TagCount{{"project", 2}}, ti.WithPrefix("pro"))
	assert.Equal(t, []TagCount{
		{"project", 2},
		{"billing", 1},
		{"misc", 1},
		{"urgent", 1},
	}, ti.WithPrefix(""))
	assert.Empty(t, ti.WithPrefix("zzz"))
}

func TestTagIndexCountsDocumentsOnce(t *testing.T) {
	ti := NewTagIndex()
	ti.Add([]string{"a", "a", "", "b"})
	ti.Add([]string{"a"})
	assert.Equal(t, 2, ti.Count("a"))
	assert.Equal(t, 1, ti.Count("b"))
	assert.Equal(t, 2, ti.Len())
}

func TestWatchInvalidatesChangedNotes(t *testing.T) {
	v, root := newTestVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got, err := v.TagsFor(ctx, "sub/b.md")
	require.NoError(t, err)
	require.Equal(t, []string{"project"}, got)

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- v.Watch(ctx, ready) }()
	<-ready

	writeNote(t, root, "sub/b.md", "#rewritten")
	assert.Eventually(t, func() bool {
		got, err := v.TagsFor(ctx, "sub/b.md")
		return err == nil && len(got) == 1 && got[0] == "rewritten"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
