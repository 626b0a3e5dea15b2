package ipod

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForDevice blocks until dir contains a track catalog, typically
// because the device was mounted. It watches the deepest existing
// ancestor of dir and re-anchors as intermediate directories appear.
func WaitForDevice(ctx context.Context, dir string) error {
	if catalogPresent(dir) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchNearest(watcher, dir); err != nil {
		return err
	}

	for {
		// The catalog may have appeared between adding the watch and
		// the previous check.
		if catalogPresent(dir) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watcher.Errors:
			return fmt.Errorf("watch %s: %w", dir, err)
		case <-watcher.Events:
			if err := watchNearest(watcher, dir); err != nil {
				return err
			}
		}
	}
}

func catalogPresent(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, CatalogFile))
	return err == nil
}

// watchNearest adds a watch on dir or, failing that, its deepest
// existing ancestor. Stale ancestor watches are left in place; the
// watcher is short-lived.
func watchNearest(watcher *fsnotify.Watcher, dir string) error {
	for d := dir; ; d = filepath.Dir(d) {
		if err := watcher.Add(d); err == nil {
			return nil
		}
		if filepath.Dir(d) == d {
			return fmt.Errorf("watch %s: no existing ancestor", dir)
		}
	}
}
