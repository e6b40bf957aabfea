/*
Package vault serves a directory of markdown notes as a tag corpus.

A Vault enumerates notes below its root and keeps a metadata index holding
the tags parsed out of every note it has read. Entries are filled on first
use and dropped when the watcher sees the file change, so the index always
reflects what is on disk without re-reading unchanged notes.

Documents are identified by their slash separated path relative to the root:

	v, err := vault.Open(vault.Options{Root: "~/notes"})
	docs, err := v.Documents(ctx)
	tags, err := v.TagsFor(ctx, "projects/billing.md")

A document that does not exist has no metadata entry and contributes no tags.
*/
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bastiangx/tagserve/pkg/tags"
	"github.com/charmbracelet/log"
)

// Options configures a Vault.
type Options struct {
	Root       string
	Extensions []string
	Ignore     []string
}

// DefaultExtensions lists the note file types read when Options.Extensions is empty.
var DefaultExtensions = []string{".md"}

// DefaultIgnore lists directory names skipped when Options.Ignore is nil.
var DefaultIgnore = []string{".git", ".obsidian", ".trash"}

// Vault is a note directory plus its metadata index.
type Vault struct {
	root       string
	extensions []string
	ignore     []string

	mu    sync.RWMutex
	cache map[string]*tags.Metadata
	// bumped by Invalidate and Reset; a parse started under an older
	// generation is not stored
	gen uint64

	readFile func(name string) ([]byte, error)
}

// Open checks that the root is a directory and returns a Vault over it.
func Open(opts Options) (*Vault, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root %s: %w", opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", root)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	lowered := make([]string, len(exts))
	for i, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		lowered[i] = strings.ToLower(e)
	}

	ignore := opts.Ignore
	if ignore == nil {
		ignore = DefaultIgnore
	}

	return &Vault{
		root:       root,
		extensions: lowered,
		ignore:     ignore,
		cache:      make(map[string]*tags.Metadata),
		readFile:   os.ReadFile,
	}, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string {
	return v.root
}

// Documents lists every note in the vault, sorted by id.
func (v *Vault) Documents(ctx context.Context) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.root && v.ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !v.isNote(path) {
			return nil
		}
		id, err := v.id(path)
		if err != nil {
			return err
		}
		docs = append(docs, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault documents: %w", err)
	}
	sort.Strings(docs)
	return docs, nil
}

// TagsFor returns the tags of a document from the metadata index, parsing
// the note on a cache miss. Missing notes yield no tags and no error.
func (v *Vault) TagsFor(ctx context.Context, id string) ([]string, error) {
	md, err := v.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}
	if md == nil {
		return nil, nil
	}
	return tags.FromMetadata(md), nil
}

// Metadata returns the index entry for id, or nil if the note does not exist.
func (v *Vault) Metadata(ctx context.Context, id string) (*tags.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	md, ok := v.cache[id]
	gen := v.gen
	v.mu.RUnlock()
	if ok {
		return md, nil
	}

	source, err := v.readFile(v.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("No metadata for %s", id)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}

	md = Parse(source)
	v.mu.Lock()
	if v.gen == gen {
		v.cache[id] = md
	} else {
		log.Debugf("Not caching %s, invalidated during read", id)
	}
	v.mu.Unlock()
	return md, nil
}

// Invalidate drops the cached metadata of one document.
func (v *Vault) Invalidate(id string) {
	v.mu.Lock()
	delete(v.cache, id)
	v.gen++
	v.mu.Unlock()
}

// Reset drops the whole metadata index.
func (v *Vault) Reset() {
	v.mu.Lock()
	clear(v.cache)
	v.gen++
	v.mu.Unlock()
}

// Cached returns the number of documents held in the metadata index.
func (v *Vault) Cached() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.cache)
}

func (v *Vault) ignored(name string) bool {
	return slices.Contains(v.ignore, name)
}

func (v *Vault) isNote(path string) bool {
	return slices.Contains(v.extensions, strings.ToLower(filepath.Ext(path)))
}

func (v *Vault) id(path string) (string, error) {
	rel, err := filepath.Rel(v.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (v *Vault) path(id string) string {
	return filepath.Join(v.root, filepath.FromSlash(id))
}
