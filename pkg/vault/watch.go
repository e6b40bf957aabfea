package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watch keeps the metadata index in sync with the filesystem until ctx is
// done. Changed notes are dropped from the index and re-read on next use.
// ready, if not nil, is closed once every directory is being watched.
func (v *Vault) Watch(ctx context.Context, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := v.watchTree(watcher, v.root); err != nil {
		return err
	}
	log.Debugf("Watching vault at %s", v.root)
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			v.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Vault watcher error: %v", err)
		}
	}
}

func (v *Vault) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if v.ignored(info.Name()) {
				return
			}
			if err := v.watchTree(watcher, event.Name); err != nil {
				log.Warnf("Failed to watch %s: %v", event.Name, err)
			}
			return
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if !v.isNote(event.Name) {
			// Could have been a directory full of notes.
			v.Reset()
			return
		}
	case event.Op&fsnotify.Write == 0:
		return
	}

	if !v.isNote(event.Name) {
		return
	}
	id, err := v.id(event.Name)
	if err != nil {
		return
	}
	log.Debugf("Invalidating %s (%s)", id, event.Op)
	v.Invalidate(id)
}

func (v *Vault) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != v.root && v.ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
